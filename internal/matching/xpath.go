package matching

import (
	"strings"

	"github.com/beevik/etree"
)

// matchXPath finds elements at the given path in an XML payload and
// compares their text against the expected pattern. Invalid XML or an
// unparsable path is a non-match.
func matchXPath(path, expected string, payload []byte, caseSensitive bool) bool {
	compiled, err := etree.CompilePath(path)
	if err != nil {
		return false
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(payload); err != nil {
		return false
	}
	for _, el := range doc.FindElementsPath(compiled) {
		if equalStrings(strings.TrimSpace(el.Text()), expected, caseSensitive) {
			return true
		}
	}
	return false
}
