// Package urlform provides encoding and decoding of form data into Go types.
//
// This package handles application/x-www-form-urlencoded data with support
// for nested structures, slices, maps and dates. Built on reflection, urlform
// provides type-safe encoding and decoding whilst preserving the structure of
// complex data types: nesting is expressed with bracketed key segments, so
// the struct field path user.address.city becomes the wire key
// user[address][city].
//
// Encoding is deterministic. Sibling keys are serialized in sorted order and
// the values under a single key keep their arrival order, so equal inputs
// always produce byte-equal output. Key segments and values are
// percent-escaped individually with spaces written as '+'; the brackets that
// express nesting stay literal. A key segment that itself contains a bracket
// cannot be represented and is rejected with a [MalformedKeyError].
//
// How slices and dates appear on the wire is controlled per call with
// [Options]. Slices default to one key[]=value pair per element and can
// instead be imploded around a separator character or repeated without
// brackets; time.Time values default to seconds since the Unix epoch and can
// instead use ISO 8601 or a custom callback. The same options drive decoding,
// so values round-trip through a matching Options value.
package urlform
