package urlform

import (
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// MalformedKeyError reports a key segment containing a bracket, which would
// corrupt the nesting grammar of the wire format. Bracket characters in
// values are escaped as usual; only key segments are restricted.
type MalformedKeyError struct {
	Key string
}

func (e *MalformedKeyError) Error() string {
	return "urlform: malformed key " + strconv.Quote(e.Key)
}

// serialize renders a form tree as an application/x-www-form-urlencoded
// string. Composite keys grow one bracketed segment per level of nesting,
// with the reserved empty segment rendered as a bare "[]" suffix. Values are
// emitted in insertion order and sibling keys in sorted order, so equal trees
// always serialize to equal bytes. Key segments and raw values are
// percent-escaped individually, with spaces written as '+'; the brackets
// themselves stay literal.
func serialize(root *formData) (string, error) {
	var b strings.Builder
	if err := serializeNode(&b, "", root, true); err != nil {
		return "", err
	}
	return b.String(), nil
}

func serializeNode(b *strings.Builder, key string, node *formData, root bool) error {
	for _, f := range node.values {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(f.escaped())
	}
	for _, segment := range slices.Sorted(maps.Keys(node.children)) {
		if strings.ContainsAny(segment, "[]") {
			return &MalformedKeyError{Key: segment}
		}
		var childKey string
		switch {
		case root:
			childKey = url.QueryEscape(segment)
		case segment == "":
			childKey = key + "[]"
		default:
			childKey = key + "[" + url.QueryEscape(segment) + "]"
		}
		if err := serializeNode(b, childKey, node.children[segment], false); err != nil {
			return err
		}
	}
	return nil
}
