package validate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/qbank/pkg/qbank/corpus/corpustest"
	"github.com/cognicore/qbank/pkg/qbank/internalerr"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func newValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := New()
	require.NoError(t, err)
	return v
}

func TestCleanCorpusPasses(t *testing.T) {
	root := corpustest.Write(t,
		corpustest.Topic{ID: "a", Name: "A", Subcategories: []corpustest.Subcategory{
			{ID: "a1", Name: "A1", Questions: []map[string]any{corpustest.Q("1", "x"), corpustest.Q("2", "y")}},
			{ID: "a2", Name: "A2", Nested: true, Questions: []map[string]any{corpustest.Q("3", "z")}},
		}},
	)

	rep, err := newValidator(t).Run(root, corpustest.IndexPath, Options{})
	require.NoError(t, err)
	assert.True(t, rep.Passed())
	assert.Empty(t, rep.Warnings)
	assert.Equal(t, []TopicSummary{{ID: "a", Subcategories: 2, Questions: 3, Files: []string{"data/a.json"}}}, rep.Topics)
}

func integrityFixture(t *testing.T) string {
	return writeFiles(t, map[string]string{
		"data/topics.json": `{"topics": [
			{"id": "a", "name": "A", "file": "data/a.json", "subcategories": [{"id": "a1"}, {"id": "a1"}, {"id": "ghost"}, {"id": "empty"}]},
			{"id": "a", "name": "A again", "file": "data/a2.json"},
			{"id": "nofile", "name": "No file"},
			{"id": "broken", "file": "data/broken.json"},
			{"id": "b", "file": "data/b.json", "subcategories": [{"id": "b1"}]}
		]}`,
		"data/a.json": `{"subcategories": [
			{"id": "a1", "questions": [{"id": "x", "question": "Q"}]},
			{"id": "empty", "questions": []}
		]}`,
		"data/broken.json": `{not json`,
		"data/b.json": `{"subcategories": [
			{"id": "b1", "questions": [{"b1": [{"id": "x", "question": "Q2"}]}]}
		]}`,
	})
}

func TestIntegrityFindings(t *testing.T) {
	root := integrityFixture(t)

	rep, err := newValidator(t).Run(root, "data/topics.json", Options{})
	require.NoError(t, err)
	assert.False(t, rep.Passed())

	require.Len(t, rep.Errors, 6)
	assert.Equal(t, "Duplicate topic ids: a", rep.Errors[0])
	assert.Equal(t, "Topic 'a' has duplicate subcategory ids: a1", rep.Errors[1])
	assert.Equal(t, "Topic 'a' references unknown subcategory ids: ghost", rep.Errors[2])
	assert.Equal(t, "Topic file missing: data/a2.json", rep.Errors[3])
	assert.Equal(t, "Topic 'nofile' has no data file configured", rep.Errors[4])
	assert.True(t, strings.HasPrefix(rep.Errors[5], "Failed parsing 'data/broken.json'"), rep.Errors[5])

	assert.Equal(t, []string{
		"Topic 'a' has subcategories with zero questions: empty",
		"Found 1 duplicate question IDs across source files",
	}, rep.Warnings)
	assert.Equal(t, map[string][]string{"x": {"data/a.json:a1", "data/b.json:b1"}}, rep.DuplicateQuestionIDs)

	ids := []string{}
	for _, s := range rep.Topics {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"a", "a", "broken", "b"}, ids)
}

func TestStrictDuplicates(t *testing.T) {
	rep, err := newValidator(t).Run(integrityFixture(t), "data/topics.json", Options{StrictDuplicates: true})
	require.NoError(t, err)
	assert.Contains(t, rep.Errors, "Found 1 duplicate question IDs across source files")
	assert.NotContains(t, rep.Warnings, "Found 1 duplicate question IDs across source files")
}

func TestSchemaViolations(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"data/topics.json": `{"topics": [{"id": 5, "file": "data/t.json"}]}`,
		"data/t.json":      `{"subcategories": [{"id": "s"}]}`,
	})

	rep, err := newValidator(t).Run(root, "data/topics.json", Options{})
	require.NoError(t, err)
	require.NotEmpty(t, rep.Errors)
	assert.Contains(t, rep.Errors[0], "topics.0.id")

	joined := strings.Join(rep.Warnings, "\n")
	assert.Contains(t, joined, "data/t.json")
	assert.Contains(t, joined, "questions")
}

func TestUnreadableIndex(t *testing.T) {
	_, err := newValidator(t).Run(t.TempDir(), "data/topics.json", Options{})
	assert.ErrorIs(t, err, internalerr.ErrIndexUnreadable)
}
