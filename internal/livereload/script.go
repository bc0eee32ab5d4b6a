package livereload

import (
	"bytes"
	"fmt"
)

// DefaultPath is where the hub's handler is usually mounted
const DefaultPath = "/_livereload"

// Script returns the script element that connects a page to the hub mounted
// at path and reloads the page when told to.
func Script(path string) string {
	return fmt.Sprintf(`<script>(function(){`+
		`var p=location.protocol==="https:"?"wss://":"ws://";`+
		`var ws=new WebSocket(p+location.host+%q+"?page="+encodeURIComponent(location.pathname));`+
		`ws.onmessage=function(e){var m=JSON.parse(e.data);if(m.type==="reload"){location.reload();}};`+
		`})();</script>`, path)
}

// Inject places script before the last closing body tag of page, or at the
// end when there is none.
func Inject(page []byte, script string) []byte {
	i := bytes.LastIndex(bytes.ToLower(page), []byte("</body>"))
	if i < 0 {
		return append(page[:len(page):len(page)], script...)
	}

	out := make([]byte, 0, len(page)+len(script))
	out = append(out, page[:i]...)
	out = append(out, script...)
	return append(out, page[i:]...)
}
