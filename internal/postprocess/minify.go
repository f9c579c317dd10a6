package postprocess

import (
	"fmt"
	"regexp"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
)

const mediaTypeHTML = "text/html"

// Minifier minifies whole HTML documents, including inline styles and scripts.
type Minifier struct {
	m *minify.M
}

// NewMinifier creates a Minifier. Comments and empty attributes are dropped;
// html, head and body tags and end tags are kept.
func NewMinifier() *Minifier {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFuncRegexp(regexp.MustCompile("^(application|text)/(x-)?(java|ecma)script$"), js.Minify)
	m.Add(mediaTypeHTML, &html.Minifier{
		KeepDocumentTags: true,
		KeepEndTags:      true,
		KeepQuotes:       true,
	})
	return &Minifier{m: m}
}

// Minify returns the minified form of src.
func (mf *Minifier) Minify(src string) (string, error) {
	out, err := mf.m.String(mediaTypeHTML, src)
	if err != nil {
		return "", fmt.Errorf("postprocess: minify: %w", err)
	}
	return out, nil
}
