// Package htmlconv converts between HTML text and dom documents using
// golang.org/x/net/html.
package htmlconv

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"

	"github.com/livefir/livelayout/internal/dom"
)

// Mode selects how markup is turned into a tree
type Mode int

const (
	// ModeStrict builds the tree exactly as written: no element is added or
	// moved. Missing <head> or <body> elements stay missing, which is what
	// decoration relies on to tell "absent" from "empty".
	ModeStrict Mode = iota

	// ModeHTML5 runs the HTML5 tree construction algorithm, which supplies
	// html, head and body elements when the markup omits them.
	ModeHTML5
)

// voidElements never have children; their end tag is optional
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// Parser turns HTML markup into dom documents
type Parser struct {
	mode     Mode
	encoding encoding.Encoding
}

// ParserOption configures a Parser
type ParserOption func(*Parser)

// WithEncoding decodes input from enc instead of treating it as UTF-8
func WithEncoding(enc encoding.Encoding) ParserOption {
	return func(p *Parser) {
		p.encoding = enc
	}
}

// NewParser creates a parser using mode
func NewParser(mode Mode, opts ...ParserOption) *Parser {
	p := &Parser{mode: mode}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// LookupEncoding finds the encoding for a WHATWG label such as
// "windows-1252" or "shift_jis". UTF-8 labels yield nil, meaning no decoding.
func LookupEncoding(label string) (encoding.Encoding, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", label, err)
	}
	if enc == unicode.UTF8 {
		return nil, nil
	}
	return enc, nil
}

// ParseString parses htmlContent into a document called name
func (p *Parser) ParseString(name, htmlContent string) (*dom.Document, error) {
	return p.Parse(name, strings.NewReader(htmlContent))
}

// Parse reads HTML from r into a document called name
func (p *Parser) Parse(name string, r io.Reader) (*dom.Document, error) {
	if p.encoding != nil {
		r = p.encoding.NewDecoder().Reader(r)
	}
	if p.mode == ModeHTML5 {
		root, err := html.Parse(r)
		if err != nil {
			return nil, fmt.Errorf("failed to parse HTML %s: %w", name, err)
		}
		return FromNode(name, root), nil
	}
	return p.parseStrict(name, r)
}

func (p *Parser) parseStrict(name string, r io.Reader) (*dom.Document, error) {
	doc := dom.NewDocument(name)
	z := html.NewTokenizer(r)
	open := []dom.NodeID{dom.Root}
	current := func() dom.NodeID { return open[len(open)-1] }

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("failed to parse HTML %s: %w", name, err)
			}
			return doc, nil

		case html.DoctypeToken:
			doc.SetDoctype(parseDoctype(string(z.Text())))

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			el := doc.CreateElement(tok.Data, convertAttrs(tok.Attr)...)
			doc.AppendChild(current(), el)
			if tt == html.StartTagToken && !voidElements[tok.Data] {
				open = append(open, el)
			}

		case html.EndTagToken:
			tag := z.Token().Data
			for i := len(open) - 1; i > 0; i-- {
				if doc.Tag(open[i]) == tag {
					open = open[:i]
					break
				}
			}

		case html.TextToken:
			text := string(z.Text())
			if current() == dom.Root && strings.TrimSpace(text) == "" {
				continue
			}
			doc.AppendChild(current(), doc.CreateText(text))

		case html.CommentToken:
			doc.AppendChild(current(), commentNode(doc, string(z.Text())))
		}
	}
}

// FromNode converts an x/net/html tree into a document. Doctype nodes are
// recorded on the document rather than kept as children.
func FromNode(name string, root *html.Node) *dom.Document {
	doc := dom.NewDocument(name)
	if root.Type == html.DocumentNode {
		for c := root.FirstChild; c != nil; c = c.NextSibling {
			convertNode(doc, dom.Root, c)
		}
		return doc
	}
	convertNode(doc, dom.Root, root)
	return doc
}

func convertNode(doc *dom.Document, parent dom.NodeID, n *html.Node) {
	var id dom.NodeID
	switch n.Type {
	case html.DoctypeNode:
		dt := &dom.Doctype{Name: n.Data}
		for _, a := range n.Attr {
			switch a.Key {
			case "public":
				dt.PublicID = a.Val
			case "system":
				dt.SystemID = a.Val
			}
		}
		doc.SetDoctype(dt)
		return
	case html.ElementNode:
		id = doc.CreateElement(n.Data, convertAttrs(n.Attr)...)
	case html.TextNode:
		id = doc.CreateText(n.Data)
	case html.CommentNode:
		id = commentNode(doc, n.Data)
	default:
		return
	}

	doc.AppendChild(parent, id)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		convertNode(doc, id, c)
	}
}

func convertAttrs(attrs []html.Attribute) []dom.Attr {
	if len(attrs) == 0 {
		return nil
	}
	out := make([]dom.Attr, 0, len(attrs))
	for _, a := range attrs {
		key := a.Key
		if a.Namespace != "" {
			key = a.Namespace + ":" + key
		}
		out = append(out, dom.Attr{Key: key, Val: a.Val})
	}
	return out
}

// commentNode turns "<?target data?>", which HTML tokenizes as a bogus
// comment, back into a processing instruction.
func commentNode(doc *dom.Document, data string) dom.NodeID {
	if len(data) >= 2 && strings.HasPrefix(data, "?") && strings.HasSuffix(data, "?") {
		return doc.CreateProcessingInstruction(data[1 : len(data)-1])
	}
	return doc.CreateComment(data)
}

// parseDoctype reads the text of a doctype token, e.g.
// `html PUBLIC "-//W3C//DTD XHTML 1.0 Strict//EN" "http://..."`.
func parseDoctype(text string) *dom.Doctype {
	text = strings.TrimSpace(text)
	name, rest, _ := strings.Cut(text, " ")
	dt := &dom.Doctype{Name: strings.ToLower(name)}

	rest = strings.TrimSpace(rest)
	keyword, rest, _ := strings.Cut(rest, " ")
	ids := quoted(rest)
	switch strings.ToUpper(keyword) {
	case "PUBLIC":
		if len(ids) > 0 {
			dt.PublicID = ids[0]
		}
		if len(ids) > 1 {
			dt.SystemID = ids[1]
		}
	case "SYSTEM":
		if len(ids) > 0 {
			dt.SystemID = ids[0]
		}
	}
	return dt
}

func quoted(s string) []string {
	var out []string
	for {
		i := strings.IndexAny(s, `"'`)
		if i < 0 {
			return out
		}
		q := s[i]
		end := strings.IndexByte(s[i+1:], q)
		if end < 0 {
			return out
		}
		out = append(out, s[i+1:i+1+end])
		s = s[i+1+end+1:]
	}
}
