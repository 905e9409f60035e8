package matching

import (
	"fmt"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// matchJSONPath extracts values at the given JSONPath and compares
// their string form against the expected pattern. A payload that is
// not valid JSON, an unparsable path, or an empty result set is a
// non-match.
func matchJSONPath(path, expected string, payload []byte, caseSensitive bool) bool {
	expr, err := jp.ParseString(path)
	if err != nil {
		return false
	}
	data, err := oj.Parse(payload)
	if err != nil {
		return false
	}
	for _, result := range expr.Get(data) {
		if equalStrings(stringify(result), expected, caseSensitive) {
			return true
		}
	}
	return false
}

// stringify renders an extracted JSON value the way a stub author
// would write it: strings bare, everything else in JSON notation.
func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%v", t)
	}
}
