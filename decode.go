package urlform

import (
	"cmp"
	"fmt"
	"maps"
	"math"
	"net/url"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"
)

// InvalidUnmarshalError describes an invalid argument passed to [Unmarshal].
// (The argument to [Unmarshal] must be a non-nil pointer.)
type InvalidUnmarshalError struct {
	Type reflect.Type
}

func (e *InvalidUnmarshalError) Error() string {
	if e.Type == nil {
		return "urlform: Unmarshal(nil)"
	}

	if e.Type.Kind() != reflect.Pointer {
		return "urlform: Unmarshal(non-pointer " + e.Type.String() + ")"
	}
	return "urlform: Unmarshal(nil " + e.Type.String() + ")"
}

// Unmarshaler is the interface implemented by types that can unmarshal a form
// description of themselves. The input can be assumed to be a valid encoding of
// a form value. [Unmarshaler.UnmarshalForm] must copy the form data if it
// wishes to retain the data after returning.
type Unmarshaler interface {
	UnmarshalForm(string) error
}

// DecodeString is a convenience function that parses the form data in the
// string and stores the result in the value pointed to by v. If v is nil or not
// a pointer, DecodeString returns an [InvalidUnmarshalError].
func DecodeString(data string, v interface{}) error {
	return Unmarshal([]byte(data), v)
}

// Unmarshal parses the form data and stores the result in the value pointed to
// by v using the zero [Options]. If v is nil or not a pointer, Unmarshal
// returns an [InvalidUnmarshalError].
func Unmarshal(data []byte, v interface{}) error {
	return UnmarshalWithOptions(data, v, Options{})
}

// UnmarshalWithOptions parses the form data under opts and stores the result
// in the value pointed to by v. Sequences and dates are read back with the
// same strategies the options select for encoding, so a value marshalled
// under a given Options round-trips through the same Options.
func UnmarshalWithOptions(data []byte, v interface{}, opts Options) error {
	if len(data) == 0 {
		return fmt.Errorf("urlform: empty input")
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return &InvalidUnmarshalError{reflect.TypeOf(v)}
	}

	rv = rv.Elem()
	if rv.Kind() != reflect.Struct && rv.Kind() != reflect.Map {
		return fmt.Errorf("urlform: top-level value must be struct or map")
	}

	// Ensure map keys are strings.
	if rv.Kind() == reflect.Map && rv.Type().Key().Kind() != reflect.String {
		return fmt.Errorf("urlform: map keys must be strings")
	}

	root, err := parseWire(string(data))
	if err != nil {
		return err
	}

	if err := decodeNode(opts, root, rv); err != nil {
		return fmt.Errorf("urlform: %w", err)
	}
	return nil
}

// parseWire parses a form-urlencoded body into a form tree, the inverse of
// serialize. Values for a repeated key accumulate in arrival order and bare
// "[]" segments land on the reserved empty-string child.
func parseWire(data string) (*formData, error) {
	// Make sure to trim spaces to avoid future parse errors. url.ParseQuery
	// does not do this automatically and can produce keys containing only
	// spaces.
	values, err := url.ParseQuery(strings.TrimSpace(data))
	if err != nil {
		return nil, fmt.Errorf("urlform: invalid form data: %w", err)
	}

	root := newFormData()
	for rawKey, vals := range values {
		path, err := parseKey(rawKey)
		if err != nil {
			return nil, err
		}
		node := root
		for _, segment := range path {
			if segment.Index {
				node = node.child("")
			} else {
				node = node.child(segment.Key)
			}
		}
		for _, val := range vals {
			node.values = append(node.values, rawFragment(val))
		}
	}
	return root, nil
}

// decodeNode assigns one form tree node onto v, dispatching on the kind of
// the target.
func decodeNode(opts Options, node *formData, v reflect.Value) error {
	v = deref(v)

	if u, ok := asUnmarshaler(v); ok && len(node.children) == 0 {
		for _, f := range node.values {
			if err := u.UnmarshalForm(f.value); err != nil {
				return err
			}
		}
		return nil
	}
	if isTimeType(v.Type()) {
		s, ok := lastValue(node)
		if !ok {
			return nil
		}
		t, err := parseDate(opts, s)
		if err != nil {
			return err
		}
		v.Set(reflect.ValueOf(t).Convert(v.Type()))
		return nil
	}

	switch v.Kind() {
	case reflect.Struct:
		return decodeStruct(opts, node, v)
	case reflect.Map:
		return decodeMap(opts, node, v)
	case reflect.Slice:
		return decodeSlice(opts, node, v)
	case reflect.Array:
		return decodeArray(opts, node, v)
	case reflect.Interface:
		return decodeInterface(opts, node, v)
	default:
		return decodeLeaf(node, v)
	}
}

// dereference a pointer value, allocating a new value if needed.
func deref(v reflect.Value) reflect.Value {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			v.Set(reflect.New(v.Type().Elem()))
		}
		return v.Elem()
	}
	return v
}

// decodeLeaf assigns a node's values to a scalar target in arrival order, so
// the last value of a repeated key wins.
func decodeLeaf(node *formData, v reflect.Value) error {
	if len(node.children) > 0 {
		return fmt.Errorf("cannot assign to %v", v.Kind())
	}
	for _, f := range node.values {
		if err := setScalar(v, f.value); err != nil {
			return err
		}
	}
	return nil
}

func decodeStruct(opts Options, node *formData, v reflect.Value) error {
	if len(node.values) > 0 {
		return fmt.Errorf("unsupported type: %v", v.Type())
	}
	for _, segment := range slices.Sorted(maps.Keys(node.children)) {
		field, tag := findStructField(v, segment)
		if !field.IsValid() || !field.CanSet() {
			return fmt.Errorf("unknown field %q in struct %v", segment, v.Type())
		}
		if err := decodeField(opts, tag, node.children[segment], field); err != nil {
			return err
		}
	}
	return nil
}

// decodeField assigns one child node to a struct field, honouring the
// per-field date tag options before the call-level policy.
func decodeField(opts Options, tag *tag, node *formData, v reflect.Value) error {
	v = deref(v)
	if _, ok := asUnmarshaler(v); !ok && isTimeType(v.Type()) {
		s, ok := lastValue(node)
		if !ok {
			return nil
		}
		t, err := parseTaggedDate(opts, tag, s)
		if err != nil {
			return err
		}
		v.Set(reflect.ValueOf(t).Convert(v.Type()))
		return nil
	}
	return decodeNode(opts, node, v)
}

func decodeMap(opts Options, node *formData, v reflect.Value) error {
	if len(node.values) > 0 {
		return fmt.Errorf("unsupported type: %v", v.Type())
	}
	keyType := v.Type().Key()
	if keyType.Kind() != reflect.String {
		return fmt.Errorf("map keys must be strings")
	}
	if v.IsNil() {
		v.Set(reflect.MakeMap(v.Type()))
	}
	elemType := v.Type().Elem()
	for segment, child := range node.children {
		elem := reflect.New(elemType).Elem()
		if err := decodeNode(opts, child, elem); err != nil {
			return err
		}
		v.SetMapIndex(reflect.ValueOf(segment).Convert(keyType), elem)
	}
	return nil
}

func decodeSlice(opts Options, node *formData, v reflect.Value) error {
	elems, err := decodeElems(opts, node, v.Type().Elem())
	if err != nil {
		return err
	}
	for _, elem := range elems {
		v.Set(reflect.Append(v, elem))
	}
	return nil
}

func decodeArray(opts Options, node *formData, v reflect.Value) error {
	elems, err := decodeElems(opts, node, v.Type().Elem())
	if err != nil {
		return err
	}
	n := min(len(elems), v.Len())
	for i := 0; i < n; i++ {
		v.Index(i).Set(elems[i])
	}
	return nil
}

// decodeElems rebuilds the ordered element list of a sequence node: direct
// values first, splitting each one when the separator strategy is active,
// then bare bracket values, then structured elements in index order.
func decodeElems(opts Options, node *formData, elemType reflect.Type) ([]reflect.Value, error) {
	var elems []reflect.Value

	appendLeaf := func(f fragment) error {
		for _, s := range splitElems(opts, f.value) {
			elem := reflect.New(elemType).Elem()
			if err := assignElem(opts, elem, s); err != nil {
				return err
			}
			elems = append(elems, elem)
		}
		return nil
	}

	for _, f := range node.values {
		if err := appendLeaf(f); err != nil {
			return nil, err
		}
	}
	if bucket, ok := node.children[""]; ok {
		for _, f := range bucket.values {
			if err := appendLeaf(f); err != nil {
				return nil, err
			}
		}
		if len(bucket.children) > 0 {
			// Unindexed structured elements share the bracket bucket on the
			// wire, so they merge into a single element here.
			elem := reflect.New(elemType).Elem()
			if err := decodeNode(opts, &formData{children: bucket.children}, elem); err != nil {
				return nil, err
			}
			elems = append(elems, elem)
		}
	}

	segments, err := indexSegments(node)
	if err != nil {
		return nil, err
	}
	for _, segment := range segments {
		elem := reflect.New(elemType).Elem()
		if err := decodeNode(opts, node.children[segment], elem); err != nil {
			return nil, err
		}
		elems = append(elems, elem)
	}
	return elems, nil
}

// indexSegments returns the numeric child keys of a sequence node in index
// order.
func indexSegments(node *formData) ([]string, error) {
	var segments []string
	for segment := range node.children {
		if segment == "" {
			continue
		}
		if _, err := strconv.Atoi(segment); err != nil {
			return nil, fmt.Errorf("expected sequence index, got key %q", segment)
		}
		segments = append(segments, segment)
	}
	slices.SortFunc(segments, func(a, b string) int {
		ai, _ := strconv.Atoi(a)
		bi, _ := strconv.Atoi(b)
		return cmp.Compare(ai, bi)
	})
	return segments, nil
}

func splitElems(opts Options, s string) []string {
	if opts.ArrayEncoding == ArrayEncodingSeparator {
		return strings.Split(s, string(opts.separator()))
	}
	return []string{s}
}

// assignElem assigns one primitive element string, inferring a string for
// empty interface targets and honouring the date policy for time targets.
func assignElem(opts Options, v reflect.Value, s string) error {
	v = deref(v)
	if v.Kind() == reflect.Interface && v.NumMethod() == 0 {
		v.Set(reflect.ValueOf(s))
		return nil
	}
	if _, ok := asUnmarshaler(v); !ok && isTimeType(v.Type()) {
		t, err := parseDate(opts, s)
		if err != nil {
			return err
		}
		v.Set(reflect.ValueOf(t).Convert(v.Type()))
		return nil
	}
	return assignLeaf(v, s)
}

// assign a leaf value (string) to v. If v implements [Unmarshaler], use that.
func assignLeaf(v reflect.Value, s string) error {
	if u, ok := asUnmarshaler(v); ok {
		return u.UnmarshalForm(s)
	}
	return setScalar(v, s)
}

func decodeInterface(opts Options, node *formData, v reflect.Value) error {
	val, err := inferValue(opts, node)
	if err != nil {
		return err
	}
	if val == nil {
		return nil
	}
	rv := reflect.ValueOf(val)
	if !rv.Type().AssignableTo(v.Type()) {
		return fmt.Errorf("cannot assign %v to %v", rv.Type(), v.Type())
	}
	v.Set(rv)
	return nil
}

// inferValue picks a dynamic shape for an empty-interface target. Leaf nodes
// become strings with the last value winning, matching scalar targets. A node
// with a bracket bucket becomes []interface{}, folding the same three sources
// as decodeElems in the same order: direct values, bucket values and the
// merged bucket element, then indexed siblings in index order. A sibling key
// that is not numeric means the node was never a sequence, so every child,
// the bucket included, becomes a map entry instead. Numeric index keys
// without a bucket stay map keys: without type information a sequence cannot
// be told apart from a map with numeric keys.
func inferValue(opts Options, node *formData) (interface{}, error) {
	if bucket, ok := node.children[""]; ok {
		if segments, err := indexSegments(node); err == nil {
			out := make([]interface{}, 0, len(node.values)+len(bucket.values)+len(segments))
			for _, f := range node.values {
				out = append(out, f.value)
			}
			for _, f := range bucket.values {
				out = append(out, f.value)
			}
			if len(bucket.children) > 0 {
				elem, err := inferValue(opts, &formData{children: bucket.children})
				if err != nil {
					return nil, err
				}
				out = append(out, elem)
			}
			for _, segment := range segments {
				elem, err := inferValue(opts, node.children[segment])
				if err != nil {
					return nil, err
				}
				out = append(out, elem)
			}
			return out, nil
		}
	}
	if len(node.children) > 0 {
		m := make(map[string]interface{}, len(node.children))
		for segment, child := range node.children {
			cv, err := inferValue(opts, child)
			if err != nil {
				return nil, err
			}
			m[segment] = cv
		}
		return m, nil
	}
	if len(node.values) == 0 {
		return nil, nil
	}
	return node.values[len(node.values)-1].value, nil
}

func lastValue(node *formData) (string, bool) {
	if len(node.values) == 0 {
		return "", false
	}
	return node.values[len(node.values)-1].value, true
}

// parseTaggedDate parses a date honouring the per-field tag options before
// the call-level policy.
func parseTaggedDate(opts Options, tag *tag, s string) (time.Time, error) {
	switch {
	case tag.Layout != "":
		t, err := time.Parse(tag.Layout, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
		}
		return t, nil
	case tag.Unix:
		return parseEpochSeconds(s)
	case tag.ISO8601:
		return parseISO8601(s)
	default:
		return parseDate(opts, s)
	}
}

func parseDate(opts Options, s string) (time.Time, error) {
	switch opts.DateEncoding {
	case DateEncodingSecondsSince1970:
		return parseEpochSeconds(s)
	case DateEncodingISO8601:
		return parseISO8601(s)
	case DateEncodingCustom:
		if opts.DateDecodeFunc == nil {
			return time.Time{}, fmt.Errorf("DateEncodingCustom requires DateDecodeFunc")
		}
		return opts.DateDecodeFunc(s)
	default:
		return time.Time{}, fmt.Errorf("unknown date encoding %d", opts.DateEncoding)
	}
}

func parseEpochSeconds(s string) (time.Time, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch seconds %q: %w", s, err)
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
}

func parseISO8601(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid ISO 8601 date %q: %w", s, err)
	}
	return t, nil
}

func isTimeType(t reflect.Type) bool {
	return t == timeType || (t.Kind() == reflect.Struct && t.ConvertibleTo(timeType))
}

func asUnmarshaler(v reflect.Value) (Unmarshaler, bool) {
	if v.CanAddr() {
		if u, ok := v.Addr().Interface().(Unmarshaler); ok {
			return u, true
		}
	}
	if u, ok := v.Interface().(Unmarshaler); ok {
		return u, true
	}
	return nil, false
}

func findStructField(v reflect.Value, key string) (reflect.Value, *tag) {
	tags := tags(v)
	for i := 0; i < v.NumField(); i++ {
		if tags[i].Ignore {
			continue
		}
		if tags[i].Name == key {
			return v.Field(i), tags[i]
		}
	}
	return reflect.Value{}, nil
}

func setScalar(v reflect.Value, val string) error {
	switch v.Kind() {
	case reflect.String:
		v.SetString(val)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return setInt(v, val)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return setUint(v, val)
	case reflect.Float32, reflect.Float64:
		return setFloat(v, val)
	case reflect.Bool:
		return setBool(v, val)
	default:
		return fmt.Errorf("unsupported type: %v", v.Type())
	}
	return nil
}

func setInt(v reflect.Value, s string) error {
	if s == "" {
		v.SetInt(0)
		return nil
	}
	i, err := strconv.ParseInt(s, 10, v.Type().Bits())
	if err != nil {
		return fmt.Errorf("parseInt: %w", err)
	}
	v.SetInt(i)
	return nil
}

func setUint(v reflect.Value, s string) error {
	if s == "" {
		v.SetUint(0)
		return nil
	}
	i, err := strconv.ParseUint(s, 10, v.Type().Bits())
	if err != nil {
		return fmt.Errorf("parseUint: %w", err)
	}
	v.SetUint(i)
	return nil
}

func setFloat(v reflect.Value, s string) error {
	if s == "" {
		v.SetFloat(0)
		return nil
	}
	f, err := strconv.ParseFloat(s, v.Type().Bits())
	if err != nil {
		return fmt.Errorf("parseFloat: %w", err)
	}
	v.SetFloat(f)
	return nil
}

func setBool(v reflect.Value, s string) error {
	if s == "" {
		v.SetBool(false)
		return nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("parseBool: %w", err)
	}
	v.SetBool(b)
	return nil
}
