package urlform

import "time"

// ArrayEncoding selects how the elements of a slice or array appear on the
// wire.
type ArrayEncoding int

const (
	// ArrayEncodingBracket emits one key[]=value pair per element. This is
	// the default.
	ArrayEncodingBracket ArrayEncoding = iota

	// ArrayEncodingSeparator emits a single key=value pair whose value joins
	// every element with [Options.ArraySeparator]. Each element is escaped
	// before joining, so the separator itself never appears escaped.
	ArrayEncodingSeparator

	// ArrayEncodingValues emits one key=value pair per element, repeating the
	// key without brackets.
	ArrayEncodingValues
)

// DateEncoding selects how time.Time values appear on the wire.
type DateEncoding int

const (
	// DateEncodingSecondsSince1970 emits the number of seconds since the Unix
	// epoch, with a fractional part when the time carries sub-second
	// precision. This is the default.
	DateEncodingSecondsSince1970 DateEncoding = iota

	// DateEncodingISO8601 emits an RFC 3339 timestamp in UTC.
	DateEncodingISO8601

	// DateEncodingCustom delegates to [Options.DateEncodeFunc] when encoding
	// and [Options.DateDecodeFunc] when decoding.
	DateEncodingCustom
)

// Options configures a single encode or decode call. The zero value uses
// bracket array notation and seconds-since-epoch dates. An Options value is
// copied into every nested step of a call, so mutating it afterwards has no
// effect on work already in flight.
type Options struct {
	// ArrayEncoding selects the wire shape of slice and array values.
	ArrayEncoding ArrayEncoding

	// ArraySeparator joins elements under [ArrayEncodingSeparator]. The zero
	// value means ','. Element values containing the separator are escaped on
	// encode, but decoding splits on every occurrence of the separator after
	// unescaping, so such values do not round-trip.
	ArraySeparator rune

	// DateEncoding selects the wire shape of time.Time values. Per-field
	// "unix", "iso8601" and format tag options take precedence.
	DateEncoding DateEncoding

	// DateEncodeFunc renders a date under [DateEncodingCustom]. The returned
	// value may be of any encodable shape and is encoded in place of the
	// date, under the same options, so a time.Time inside it would invoke the
	// callback again; returning one directly is an error. An error returned
	// here aborts the call and reaches the caller unchanged.
	DateEncodeFunc func(time.Time) (interface{}, error)

	// DateDecodeFunc parses a wire value into a date under
	// [DateEncodingCustom].
	DateDecodeFunc func(string) (time.Time, error)
}

func (o Options) separator() rune {
	if o.ArraySeparator == 0 {
		return ','
	}
	return o.ArraySeparator
}
