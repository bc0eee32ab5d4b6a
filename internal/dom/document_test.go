package dom_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livefir/livelayout/internal/dom"
	. "github.com/livefir/livelayout/internal/dom/domtest"
)

func TestDocument_InsertAndDetach(t *testing.T) {
	d := dom.NewDocument("t")
	html := d.CreateElement("html")
	d.AppendChild(dom.Root, html)
	a := d.CreateElement("a")
	b := d.CreateElement("b")
	c := d.CreateElement("c")

	d.AppendChild(html, a)
	d.AppendChild(html, c)
	d.InsertBefore(html, c, b)
	assert.Equal(t, "<html><a></a><b></b><c></c></html>", Dump(d, html))

	d.InsertChild(html, 0, c)
	assert.Equal(t, "<html><c></c><a></a><b></b></html>", Dump(d, html))

	d.Detach(a)
	assert.Equal(t, "<html><c></c><b></b></html>", Dump(d, html))
	assert.Equal(t, dom.InvalidNode, d.Parent(a))
	assert.False(t, d.Attached(a))
	assert.True(t, d.Attached(b))

	// detached nodes keep their identity
	assert.Equal(t, "a", d.Tag(a))
}

func TestDocument_InsertClampsAndAppendsUnknownRef(t *testing.T) {
	d := Doc("t", E("ul", E("li", T("1"))))
	ul := Find(d, "ul")

	d.InsertChild(ul, 99, d.CreateText("end"))
	d.InsertChild(ul, -3, d.CreateText("start"))
	d.InsertBefore(ul, dom.NodeID(12345), d.CreateText("!"))

	assert.Equal(t, "<ul>start<li>1</li>end!</ul>", Dump(d, ul))
}

func TestDocument_InsertCyclePanics(t *testing.T) {
	d := Doc("t", E("div", E("p")))
	div := Find(d, "div")
	p := Find(d, "p")

	assert.Panics(t, func() { d.AppendChild(p, div) })
	assert.Panics(t, func() { d.AppendChild(div, dom.Root) })
}

func TestDocument_Replace(t *testing.T) {
	d := Doc("t", E("head", E("title", T("Old")), E("meta")))
	old := Find(d, "title")
	repl := d.CreateElement("title")
	d.AppendChild(repl, d.CreateText("New"))

	d.Replace(old, repl)

	assert.Equal(t, "<head><title>New</title><meta></meta></head>", Dump(d, Find(d, "head")))
	assert.False(t, d.Attached(old))
}

func TestDocument_Attributes(t *testing.T) {
	d := Doc("t", E("body", A("class", "a"), A("id", "x")))
	body := Find(d, "body")

	d.SetAttr(body, "class", "b")
	d.SetAttr(body, "lang", "en")
	assert.Equal(t, []dom.Attr{{Key: "class", Val: "b"}, {Key: "id", Val: "x"}, {Key: "lang", Val: "en"}}, d.Attrs(body))

	assert.True(t, d.RemoveAttr(body, "id"))
	assert.False(t, d.RemoveAttr(body, "id"))
	v, ok := d.Attr(body, "lang")
	assert.True(t, ok)
	assert.Equal(t, "en", v)

	text := d.CreateText("x")
	assert.Panics(t, func() { d.SetAttr(text, "k", "v") })
}

func TestDocument_ElementChildren(t *testing.T) {
	d := Doc("t", C("lead"), T("\n"), E("html"), C("trail"))

	first, ok := d.FirstElementChild(dom.Root)
	require.True(t, ok)
	assert.Equal(t, "html", d.Tag(first))
	assert.Len(t, d.ElementChildren(dom.Root), 1)
	assert.Len(t, d.Children(dom.Root), 4)

	empty := dom.NewDocument("empty")
	_, ok = empty.FirstElementChild(dom.Root)
	assert.False(t, ok)
}

func TestDocument_Clone(t *testing.T) {
	orig := Doc("base", Doctype("html"), E("html", E("body", A("class", "x"), T("hi"))))
	cl := orig.Clone()

	body := Find(cl, "body")
	cl.SetAttr(body, "class", "changed")
	cl.AppendChild(body, cl.CreateText("!"))
	cl.SetDoctype(nil)

	assert.Equal(t, `<!DOCTYPE html><html><body class="x">hi</body></html>`, DumpDocument(orig))
	assert.Equal(t, `<html><body class="changed">hi!</body></html>`, DumpDocument(cl))
	assert.Equal(t, "base", cl.Name)
}

func TestDocument_AdoptAndMove(t *testing.T) {
	src := Doc("src", E("div", A("id", "a"), E("p", T("one")), T("two")))
	dst := Doc("dst", E("section"))
	div := Find(src, "div")

	adopted := dst.Adopt(src, div)
	assert.Equal(t, dom.InvalidNode, dst.Parent(adopted))
	assert.True(t, src.Attached(div), "adopt leaves the source untouched")

	moved := dom.Move(dst, src, div)
	dst.AppendChild(Find(dst, "section"), moved)
	assert.False(t, src.Attached(div))
	assert.Equal(t, `<section><div id="a"><p>one</p>two</div></section>`, DumpDocument(dst))

	// moving within one document keeps the id
	p := Find(dst, "p")
	assert.Equal(t, p, dom.Move(dst, dst, p))
	assert.False(t, dst.Attached(p))
}

func TestDocument_AdoptIntoSelf(t *testing.T) {
	d := Doc("t", E("ul", E("li", T("x"))))
	li := Find(d, "li")

	cp := d.Adopt(d, li)
	d.AppendChild(Find(d, "ul"), cp)

	assert.Equal(t, "<ul><li>x</li><li>x</li></ul>", DumpDocument(d))
}

func TestDocument_Doctype(t *testing.T) {
	d := dom.NewDocument("t")
	assert.False(t, d.HasDoctype())

	dt := &dom.Doctype{Name: "html"}
	d.SetDoctype(dt)
	dt.Name = "mutated"

	require.True(t, d.HasDoctype())
	assert.Equal(t, "html", d.Doctype().Name)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "element", dom.ElementNode.String())
	assert.Equal(t, "processing-instruction", dom.ProcessingInstructionNode.String())
	assert.Equal(t, "kind(42)", dom.Kind(42).String())
}
