package urlform

import (
	"reflect"
	"strings"
	"sync"
)

// fieldTags caches parsed struct tags keyed by [reflect.Type], since the same
// struct type is typically encoded and decoded many times over. Safe for
// concurrent use.
var fieldTags sync.Map

// tag carries the per-field directives read from the form and format struct
// tags.
type tag struct {
	Name    string
	Omit    bool
	Ignore  bool
	Unix    bool
	ISO8601 bool

	// Layout comes from the separate format struct tag and holds a reference
	// time layout for time.Time fields. It wins over Unix and ISO8601, which
	// in turn win over the call-level date encoding. All three are ignored on
	// fields that are not dates.
	Layout string
}

// tags returns one parsed tag per field of the struct behind fv, indexed in
// field order. Unexported fields come back as ignored; fields without an
// explicit name fall back to the Go field name.
func tags(fv reflect.Value) []*tag {
	tt := reflect.Indirect(fv).Type()
	if tt.Kind() != reflect.Struct {
		return []*tag{}
	}

	if cached, ok := fieldTags.Load(tt); ok {
		return cached.([]*tag)
	}

	parsed := make([]*tag, tt.NumField())
	for i := 0; i < tt.NumField(); i++ {
		f := tt.Field(i)
		t := parseTag(f.Tag.Get("form"))
		if !f.IsExported() {
			t.Ignore = true
		}
		if !t.Ignore && t.Name == "" {
			t.Name = f.Name
		}
		t.Layout = f.Tag.Get("format")
		parsed[i] = t
	}

	fieldTags.Store(tt, parsed)
	return parsed
}

// parseTag reads a single form tag value of the shape "name,flag,flag".
func parseTag(str string) *tag {
	name, flags, _ := strings.Cut(strings.TrimSpace(str), ",")

	t := &tag{}
	if name = strings.TrimSpace(name); name == "-" {
		t.Ignore = true
	} else {
		t.Name = name
	}

	for _, flag := range strings.Split(flags, ",") {
		switch strings.TrimSpace(flag) {
		case "omitempty":
			t.Omit = true
		case "ignore":
			t.Ignore = true
		case "unix":
			t.Unix = true
		case "iso8601":
			t.ISO8601 = true
		}
	}

	return t
}
