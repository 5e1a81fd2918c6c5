package urlform

import (
	"fmt"
	"reflect"
	"strconv"
	"time"
)

// Marshaler is the interface implemented by types that can marshal themselves
// into a single form value.
type Marshaler interface {
	MarshalForm() (string, error)
}

// EncodeToString is a convenience function that returns the form encoding of v
// as a string.
func EncodeToString(v interface{}) (string, error) {
	b, err := Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// EncodeToStringWithOptions is a convenience function that returns the form
// encoding of v under opts as a string.
func EncodeToStringWithOptions(v interface{}, opts Options) (string, error) {
	b, err := MarshalWithOptions(v, opts)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Marshal returns the form encoding of v using the zero [Options]: bracket
// array notation and seconds-since-epoch dates.
func Marshal(v interface{}) ([]byte, error) {
	return MarshalWithOptions(v, Options{})
}

// MarshalWithOptions returns the form encoding of v under opts.
//
// The top-level value must be a struct or a string-keyed map; it becomes the
// root of a form tree which is then serialized with one bracketed key per
// level of nesting. Nil pointers and nil interface values are omitted
// entirely, as are keys whose fields carry the omitempty flag with a zero
// value.
func MarshalWithOptions(v interface{}, opts Options) ([]byte, error) {
	if v == nil {
		return []byte{}, nil
	}

	// Dereference pointer if needed.
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return []byte{}, nil
		}
		rv = rv.Elem()
	}

	// Ensure the top-level value is a struct or map.
	if rv.Kind() != reflect.Struct && rv.Kind() != reflect.Map {
		return nil, fmt.Errorf("urlform: top-level value must be struct or map")
	}

	tree, err := encodeValue(opts, rv)
	if err != nil {
		return nil, err
	}

	s, err := serialize(tree)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

// encodeValue builds the form tree for v by driving the sink matching its
// shape. Unlike the exported entry points it accepts any encodable kind, so
// nested walks (sequence elements, custom date payloads) can produce scalar
// and sequence trees too.
func encodeValue(opts Options, v reflect.Value) (*formData, error) {
	if isNilValue(v) {
		return newFormData(), nil
	}
	if v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		return encodeValue(opts, v.Elem())
	}

	if m, ok := asMarshaler(v); ok {
		s, err := m.MarshalForm()
		if err != nil {
			return nil, err
		}
		sink := newScalarSink(opts)
		sink.setFragment(rawFragment(s))
		return sink.data(), nil
	}
	if t, ok := timeValue(v); ok {
		return dateTree(opts, t)
	}

	switch v.Kind() {
	case reflect.Struct:
		sink := newKeyedSink(opts)
		if err := encodeStruct(sink, opts, v); err != nil {
			return nil, err
		}
		return sink.data(), nil
	case reflect.Map:
		sink := newKeyedSink(opts)
		if err := encodeMap(sink, opts, v); err != nil {
			return nil, err
		}
		return sink.data(), nil
	case reflect.Slice, reflect.Array:
		sink := newListSink(opts)
		if err := encodeSlice(sink, opts, v); err != nil {
			return nil, err
		}
		return sink.data(), nil
	default:
		s, err := scalarString(v)
		if err != nil {
			return nil, err
		}
		sink := newScalarSink(opts)
		sink.setFragment(rawFragment(s))
		return sink.data(), nil
	}
}

func encodeStruct(sink *keyedSink, opts Options, v reflect.Value) error {
	tags := tags(v)
	for i := 0; i < v.NumField(); i++ {
		tag := tags[i]
		if tag.Ignore {
			continue
		}
		fv := v.Field(i)
		if tag.Omit && isEmptyValue(fv) {
			continue
		}
		if tag.Name == "" {
			continue
		}
		if err := encodeField(sink, opts, tag, fv); err != nil {
			return err
		}
	}
	return nil
}

func encodeMap(sink *keyedSink, opts Options, v reflect.Value) error {
	// Ensure map keys are strings.
	if v.Type().Key().Kind() != reflect.String {
		return fmt.Errorf("urlform: map keys must be strings")
	}
	iter := v.MapRange()
	for iter.Next() {
		mv := iter.Value()
		if !mv.IsValid() || (mv.Kind() == reflect.Interface && mv.IsNil()) {
			continue
		}
		if err := encodeField(sink, opts, &tag{Name: iter.Key().String()}, mv); err != nil {
			return err
		}
	}
	return nil
}

// encodeField folds one keyed value into the sink: primitives and custom
// marshalers as single fragments, dates by the date policy, and containers
// through a live nested sink.
func encodeField(sink *keyedSink, opts Options, tag *tag, v reflect.Value) error {
	if isNilValue(v) {
		return nil
	}
	if v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		return encodeField(sink, opts, tag, v.Elem())
	}

	if m, ok := asMarshaler(v); ok {
		s, err := m.MarshalForm()
		if err != nil {
			return err
		}
		sink.setFragment(tag.Name, rawFragment(s))
		return nil
	}
	if t, ok := timeValue(v); ok {
		return encodeDate(sink, opts, tag, t)
	}

	switch v.Kind() {
	case reflect.Struct:
		return encodeStruct(sink.nestedKeyed(tag.Name), opts, v)
	case reflect.Map:
		return encodeMap(sink.nestedKeyed(tag.Name), opts, v)
	case reflect.Slice, reflect.Array:
		return encodeSlice(sink.nestedList(tag.Name), opts, v)
	default:
		s, err := scalarString(v)
		if err != nil {
			return err
		}
		sink.setFragment(tag.Name, rawFragment(s))
		return nil
	}
}

func encodeSlice(sink *listSink, opts Options, v reflect.Value) error {
	for i := 0; i < v.Len(); i++ {
		if err := encodeElem(sink, opts, v.Index(i)); err != nil {
			return err
		}
	}
	return nil
}

// encodeElem folds one sequence element into the sink. Nil elements are
// skipped without advancing the arrival counter, so the index keys of the
// remaining structured elements stay contiguous.
func encodeElem(sink *listSink, opts Options, v reflect.Value) error {
	if isNilValue(v) {
		return nil
	}
	if v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		return encodeElem(sink, opts, v.Elem())
	}

	if m, ok := asMarshaler(v); ok {
		s, err := m.MarshalForm()
		if err != nil {
			return err
		}
		sink.appendFragment(rawFragment(s))
		return nil
	}
	if t, ok := timeValue(v); ok {
		tree, err := dateTree(opts, t)
		if err != nil {
			return err
		}
		sink.appendTree(tree)
		return nil
	}

	switch v.Kind() {
	case reflect.Struct, reflect.Map, reflect.Slice, reflect.Array:
		tree, err := encodeValue(opts, v)
		if err != nil {
			return err
		}
		sink.appendTree(tree)
		return nil
	default:
		s, err := scalarString(v)
		if err != nil {
			return err
		}
		sink.appendFragment(rawFragment(s))
		return nil
	}
}

// encodeDate folds one date into the sink, honouring the per-field tag
// options before the call-level policy.
func encodeDate(sink *keyedSink, opts Options, tag *tag, t time.Time) error {
	switch {
	case tag.Layout != "":
		sink.setFragment(tag.Name, rawFragment(t.Format(tag.Layout)))
	case tag.Unix:
		sink.setFragment(tag.Name, rawFragment(epochSeconds(t)))
	case tag.ISO8601:
		sink.setFragment(tag.Name, rawFragment(iso8601(t)))
	default:
		tree, err := dateTree(opts, t)
		if err != nil {
			return err
		}
		sink.setTree(tag.Name, tree)
	}
	return nil
}

func isNilValue(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}
	return (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) && v.IsNil()
}

func asMarshaler(v reflect.Value) (Marshaler, bool) {
	if v.CanAddr() {
		if m, ok := v.Addr().Interface().(Marshaler); ok {
			return m, true
		}
	}
	if m, ok := v.Interface().(Marshaler); ok {
		return m, true
	}
	return nil, false
}

var timeType = reflect.TypeOf(time.Time{})

// timeValue reports whether v is a time.Time or a struct type derived from
// one, returning the underlying time when it is.
func timeValue(v reflect.Value) (time.Time, bool) {
	if v.Type() == timeType {
		return v.Interface().(time.Time), true
	}
	if v.Kind() == reflect.Struct && v.Type().ConvertibleTo(timeType) {
		return v.Convert(timeType).Interface().(time.Time), true
	}
	return time.Time{}, false
}

func scalarString(v reflect.Value) (string, error) {
	switch v.Kind() {
	case reflect.String:
		return v.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, v.Type().Bits()), nil
	case reflect.Bool:
		return strconv.FormatBool(v.Bool()), nil
	default:
		return "", fmt.Errorf("urlform: unsupported type: %s", v.Type())
	}
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.Interface, reflect.Pointer:
		return v.IsZero()
	}
	return false
}
