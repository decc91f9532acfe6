// render implements the blog body pipeline: Markdown to HTML, sanitization
// against a fixed allow-list, then linkification of bare URLs and emails.
// The pipeline is a pure function of its input and never fails; hostile or
// malformed input degrades to stripped output.
package render

import (
	"bytes"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"mvdan.cc/xurls/v2"
)

var (
	// WithUnsafe lets raw HTML in the Markdown source through to the
	// sanitizer, which strips anything outside the allow-list instead of
	// escaping it.
	markdown = goldmark.New(
		goldmark.WithExtensions(extension.Table),
		goldmark.WithRendererOptions(
			goldmarkhtml.WithHardWraps(),
			goldmarkhtml.WithUnsafe(),
		),
	)

	policy = newPolicy()

	urlPattern   = xurls.Relaxed()
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9-]+(\.[a-zA-Z0-9-]+)+`)

	codeLangPattern = regexp.MustCompile(`^language-[a-zA-Z0-9#+-]+$`)
)

// newPolicy builds the fixed allow-list. Tags or attributes not listed here
// are stripped from the output, not escaped.
func newPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements(
		"a", "abbr", "b", "blockquote", "code", "em", "i", "li", "ol", "pre",
		"strong", "ul", "h1", "h2", "h3", "p", "img", "div", "span",
		"table", "tr", "td", "th", "tbody", "thead",
	)
	p.AllowAttrs("href", "rel", "target").OnElements("a")
	p.AllowAttrs("src", "alt").OnElements("img")
	// Fenced code blocks carry their language annotation as a class.
	p.AllowAttrs("class").Matching(codeLangPattern).OnElements("code")
	p.AllowAttrs("style").OnElements("div", "span", "p", "td", "th")
	p.AllowStyles("text-align", "color", "font-weight").OnElements("div", "span", "p", "td", "th")
	p.AllowURLSchemes("http", "https", "mailto")
	return p
}

// Body converts raw Markdown into safe HTML. Deterministic, side-effect
// free, and total: any input, including invalid tag soup, yields sanitized
// output rather than an error.
func Body(raw string) string {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(raw), &buf); err != nil {
		// Markdown conversion is not expected to fail; fall back to
		// sanitizing the input as-is.
		return linkify(policy.Sanitize(raw))
	}
	return linkify(policy.Sanitize(buf.String()))
}

// skip linkification inside these elements, existing anchors most of all
var linkifySkip = map[string]bool{"a": true, "code": true, "pre": true}

// linkify turns bare URLs and email addresses in text nodes into anchors.
// It runs strictly after sanitization and only ever inserts <a> elements
// whose content is plain text, so it cannot reintroduce unsafe markup.
func linkify(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	body := doc.Find("body")
	if len(body.Nodes) == 0 {
		return fragment
	}
	for _, n := range body.Nodes {
		linkifyNode(n)
	}
	out, err := body.Html()
	if err != nil {
		return fragment
	}
	return out
}

func linkifyNode(n *html.Node) {
	for child := n.FirstChild; child != nil; {
		next := child.NextSibling
		switch {
		case child.Type == html.ElementNode && linkifySkip[child.Data]:
		case child.Type == html.TextNode:
			linkifyText(n, child)
		case child.Type == html.ElementNode:
			linkifyNode(child)
		}
		child = next
	}
}

type linkSpan struct {
	start, end int
	href       string
}

func linkifyText(parent, text *html.Node) {
	data := text.Data
	var spans []linkSpan

	// Emails first: the relaxed URL pattern would otherwise claim the bare
	// domain inside an address.
	for _, loc := range emailPattern.FindAllStringIndex(data, -1) {
		spans = append(spans, linkSpan{loc[0], loc[1], "mailto:" + data[loc[0]:loc[1]]})
	}
	for _, loc := range urlPattern.FindAllStringIndex(data, -1) {
		if overlapsAny(spans, loc[0], loc[1]) {
			continue
		}
		match := data[loc[0]:loc[1]]
		spans = append(spans, linkSpan{loc[0], loc[1], hrefFor(match)})
	}
	if len(spans) == 0 {
		return
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	pos := 0
	for _, s := range spans {
		if s.start > pos {
			parent.InsertBefore(textNode(data[pos:s.start]), text)
		}
		parent.InsertBefore(anchorNode(s.href, data[s.start:s.end]), text)
		pos = s.end
	}
	if pos < len(data) {
		parent.InsertBefore(textNode(data[pos:]), text)
	}
	parent.RemoveChild(text)
}

// hrefFor completes schemeless matches so the resulting anchor is
// navigable: bare emails become mailto links, bare domains get http.
func hrefFor(match string) string {
	if strings.Contains(match, "://") || strings.HasPrefix(match, "mailto:") {
		return match
	}
	if emailPattern.MatchString(match) && !strings.Contains(match, "/") {
		return "mailto:" + match
	}
	return "http://" + match
}

func overlapsAny(spans []linkSpan, start, end int) bool {
	for _, s := range spans {
		if start < s.end && end > s.start {
			return true
		}
	}
	return false
}

func textNode(data string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: data}
}

func anchorNode(href, label string) *html.Node {
	a := &html.Node{
		Type:     html.ElementNode,
		Data:     "a",
		DataAtom: atom.A,
		Attr: []html.Attribute{
			{Key: "href", Val: href},
			{Key: "rel", Val: "nofollow"},
		},
	}
	a.AppendChild(textNode(label))
	return a
}
