package highlight

import "strings"

var _escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

// Escape escapes the characters of src that would otherwise
// be interpreted as HTML markup: '&', '<', and '>'.
// Nothing else is changed.
func Escape(src []byte) string {
	return _escaper.Replace(string(src))
}
