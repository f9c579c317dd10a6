// Package postprocess rewrites rendered pages before they are written:
// page metadata injection followed by minification.
package postprocess

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/starford/dainiki/internal/models"
)

// ApplyMetadata sets the document title and the description meta tag.
// Elements missing from the page are left missing.
func ApplyMetadata(src string, meta models.PageMeta) (string, error) {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return "", fmt.Errorf("postprocess: parse html: %w", err)
	}

	if title := findElement(doc, func(n *html.Node) bool { return n.DataAtom == atom.Title }); title != nil {
		for c := title.FirstChild; c != nil; {
			next := c.NextSibling
			title.RemoveChild(c)
			c = next
		}
		title.AppendChild(&html.Node{Type: html.TextNode, Data: meta.Title})
	}

	if desc := findElement(doc, isDescriptionMeta); desc != nil {
		setAttr(desc, "content", meta.Description)
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return "", fmt.Errorf("postprocess: render html: %w", err)
	}
	return buf.String(), nil
}

func isDescriptionMeta(n *html.Node) bool {
	return n.DataAtom == atom.Meta && strings.EqualFold(getAttr(n, "name"), "description")
}

// findElement returns the first element in document order matching match.
func findElement(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, match); found != nil {
			return found
		}
	}
	return nil
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
