package urlform

import (
	"net/url"
	"strconv"
)

// InvalidURLError reports a base URL that could not be parsed into components
// before a query string was attached to it.
type InvalidURLError struct {
	URL string
	Err error
}

func (e *InvalidURLError) Error() string {
	return "urlform: invalid url " + strconv.Quote(e.URL) + ": " + e.Err.Error()
}

func (e *InvalidURLError) Unwrap() error { return e.Err }

// MarshalURL encodes v using the zero [Options] and attaches the result as
// the query component of base, returning the recomposed URL. Any query
// already present on base is replaced.
func MarshalURL(base string, v interface{}) (string, error) {
	return MarshalURLWithOptions(base, v, Options{})
}

// MarshalURLWithOptions encodes v under opts and attaches the result as the
// query component of base.
func MarshalURLWithOptions(base string, v interface{}, opts Options) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", &InvalidURLError{URL: base, Err: err}
	}

	data, err := MarshalWithOptions(v, opts)
	if err != nil {
		return "", err
	}

	u.RawQuery = string(data)
	return u.String(), nil
}
