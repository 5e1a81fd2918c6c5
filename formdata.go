package urlform

import "net/url"

// fragment is a single atomic form value. A raw fragment is percent-escaped
// when it reaches the wire; a pre-encoded fragment already went through
// escaping (for example when several values have been imploded around a
// separator) and is emitted verbatim.
type fragment struct {
	value   string
	encoded bool
}

func rawFragment(s string) fragment {
	return fragment{value: s}
}

func preEncodedFragment(s string) fragment {
	return fragment{value: s, encoded: true}
}

// escaped returns the wire form of the fragment.
func (f fragment) escaped() string {
	if f.encoded {
		return f.value
	}
	return url.QueryEscape(f.value)
}

// formData is one node of the intermediate form tree built between Go values
// and the wire string. A node holds the values attached directly at its path
// together with its named children. The empty-string child is reserved: it
// collects bare array values and is rendered as a "[]" suffix on the parent
// key rather than as a named bracket segment.
type formData struct {
	values   []fragment
	children map[string]*formData
}

func newFormData() *formData {
	return &formData{children: make(map[string]*formData)}
}

// child returns the node below d for the given segment, creating it first if
// it does not exist yet.
func (d *formData) child(segment string) *formData {
	c, ok := d.children[segment]
	if !ok {
		c = newFormData()
		d.children[segment] = c
	}
	return c
}
