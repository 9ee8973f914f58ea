package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/cognicore/qbank/pkg/qbank/review"
)

const queueCSS = `body{font-family:sans-serif;margin:2em}
table{border-collapse:collapse;width:100%}
th,td{border:1px solid #ccc;padding:4px 8px;vertical-align:top;text-align:left}
th{background:#ddebf7}
tr.approved{background:#e2f0d9}
tr.rejected{background:#fbe5d6}
td.num{text-align:right}`

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

func textNode(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func attr(key, val string) html.Attribute {
	return html.Attribute{Key: key, Val: val}
}

// appendText adds an element holding only text to parent.
func appendText(parent *html.Node, a atom.Atom, text string, attrs ...html.Attribute) *html.Node {
	n := element(a, attrs...)
	n.AppendChild(textNode(text))
	parent.AppendChild(n)
	return n
}

// RenderQueueHTML writes the review queue as a standalone HTML page. The
// page is built as a node tree so every value is escaped by the renderer.
func RenderQueueHTML(w io.Writer, q *review.Queue) error {
	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	root := element(atom.Html, attr("lang", "en"))
	doc.AppendChild(root)

	head := element(atom.Head)
	root.AppendChild(head)
	head.AppendChild(element(atom.Meta, attr("charset", "utf-8")))
	appendText(head, atom.Title, "Relevance Review Queue")
	appendText(head, atom.Style, queueCSS)

	body := element(atom.Body)
	root.AppendChild(body)
	appendText(body, atom.H1, "Relevance Review Queue")
	appendText(body, atom.P, fmt.Sprintf("Total high-confidence manual review items: %d", q.Count))

	table := element(atom.Table)
	body.AppendChild(table)

	thead := element(atom.Thead)
	table.AppendChild(thead)
	hr := element(atom.Tr)
	thead.AppendChild(hr)
	for _, h := range []string{"ID", "Source", "Suggested", "Own topic", "Own sub", "Best other", "Reasons", "Question", "Decision"} {
		appendText(hr, atom.Th, h)
	}

	tbody := element(atom.Tbody)
	table.AppendChild(tbody)
	for _, it := range q.Items {
		tr := element(atom.Tr, attr("class", strings.ReplaceAll(it.RecommendedAction, "_", "-")))
		tbody.AppendChild(tr)

		code := element(atom.Td)
		appendText(code, atom.Code, it.QuestionID)
		tr.AppendChild(code)

		appendText(tr, atom.Td, it.SourceTopic+"/"+it.SourceSubcategory, attr("title", it.SourceFile))
		appendText(tr, atom.Td, it.SuggestedTargetTopic)
		appendText(tr, atom.Td, strconv.Itoa(it.Scores.OwnTopic), attr("class", "num"))
		appendText(tr, atom.Td, strconv.Itoa(it.Scores.OwnSubcategory), attr("class", "num"))
		appendText(tr, atom.Td, strconv.Itoa(it.Scores.BestOther), attr("class", "num"))
		appendText(tr, atom.Td, strings.Join(it.Reasons, ", "))
		appendText(tr, atom.Td, it.Question)
		appendText(tr, atom.Td, it.RecommendedAction)
	}

	return html.Render(w, doc)
}
