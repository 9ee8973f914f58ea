package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/qbank/pkg/qbank/internalerr"
)

func TestAddTopic(t *testing.T) {
	tax := NewTaxonomy()
	require.NoError(t, tax.AddTopic("procurement_act", []string{"Tender", " bid ", ""}, `\b(bpp|procurement)\b`, "proc_general"))

	assert.Equal(t, []string{"tender", "bid"}, tax.Hints("procurement_act"))
	assert.Nil(t, tax.Hints("unknown"))

	fb, ok := tax.Fallback("procurement_act")
	assert.True(t, ok)
	assert.Equal(t, "proc_general", fb)

	_, ok = tax.Fallback("unknown")
	assert.False(t, ok)
}

func TestAddTopicErrors(t *testing.T) {
	tax := NewTaxonomy()
	assert.ErrorIs(t, tax.AddTopic("  ", nil, "", ""), internalerr.ErrInvalidConfig)
	assert.ErrorIs(t, tax.AddTopic("x", nil, "(", ""), internalerr.ErrInvalidConfig)
	assert.Empty(t, tax.TopicIDs())
}

func TestAddTopicReplaceKeepsOrder(t *testing.T) {
	tax := NewTaxonomy()
	require.NoError(t, tax.AddTopic("a", nil, "", ""))
	require.NoError(t, tax.AddTopic("b", nil, "", ""))
	require.NoError(t, tax.AddTopic("a", []string{"x"}, "", "a_general"))

	assert.Equal(t, []string{"a", "b"}, tax.TopicIDs())
	assert.Equal(t, []string{"x"}, tax.Hints("a"))
}

func TestHasSignal(t *testing.T) {
	tax := NewTaxonomy()
	require.NoError(t, tax.AddTopic("ict_management", nil, `\b(ict|e-?governance|ssl)\b`, ""))
	require.NoError(t, tax.AddTopic("quiet", nil, "", ""))

	assert.True(t, tax.HasSignal("ict_management", "Benefits of E-Governance"))
	assert.True(t, tax.HasSignal("ict_management", "SSL handshake"))
	assert.False(t, tax.HasSignal("ict_management", "dictionary words"))
	assert.False(t, tax.HasSignal("quiet", "anything"))
	assert.False(t, tax.HasSignal("missing", "ict"))
}

func TestInferCanonical(t *testing.T) {
	tax := NewTaxonomy()
	tax.AddCanonical("psr", []string{"psr", "gl "})
	tax.AddCanonical("procurement_act", []string{"procurement", "bpp"})

	topic, evidence, ok := tax.InferCanonical("Which BPP procurement rule applies?")
	assert.True(t, ok)
	assert.Equal(t, "procurement_act", topic)
	assert.Equal(t, "token:procurement", evidence)

	// Earlier rules win even when a later rule also matches.
	topic, evidence, ok = tax.InferCanonical("PSR rules on procurement")
	assert.True(t, ok)
	assert.Equal(t, "psr", topic)
	assert.Equal(t, "token:psr", evidence)

	topic, evidence, ok = tax.InferCanonical("Officers on GL 08")
	assert.True(t, ok)
	assert.Equal(t, "psr", topic)
	assert.Equal(t, "token:gl ", evidence)

	topic, evidence, ok = tax.InferCanonical("Nothing relevant")
	assert.False(t, ok)
	assert.Equal(t, "", topic)
	assert.Equal(t, "none", evidence)
}
