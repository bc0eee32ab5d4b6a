package htmlconv

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/html"
)

const mediaType = "text/html"

var (
	minifier *minify.M
	once     sync.Once
)

// getMinifier returns a configured HTML minifier (singleton)
func getMinifier() *minify.M {
	once.Do(func() {
		minifier = minify.New()
		minifier.Add(mediaType, &html.Minifier{
			KeepDocumentTags: true,
			KeepEndTags:      true,
		})
	})
	return minifier
}

// Minify copies HTML from r to w with insignificant whitespace removed
func Minify(w io.Writer, r io.Reader) error {
	if err := getMinifier().Minify(mediaType, w, r); err != nil {
		return fmt.Errorf("failed to minify HTML: %w", err)
	}
	return nil
}

// MinifyBytes minifies b, returning the original when minification fails
func MinifyBytes(b []byte) []byte {
	var buf bytes.Buffer
	if err := Minify(&buf, bytes.NewReader(b)); err != nil {
		return b
	}
	return buf.Bytes()
}
