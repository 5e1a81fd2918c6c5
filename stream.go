package urlform

import (
	"fmt"
	"io"
)

// Decoder reads form-urlencoded data from an [io.Reader] and decodes it into a
// Go value.
type Decoder struct {
	r    io.Reader
	opts Options
}

// NewDecoder creates a new [Decoder] that reads from r using the zero
// [Options].
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// WithOptions returns a copy of the decoder that uses opts for subsequent
// calls to Decode. The receiver is left unchanged.
func (d *Decoder) WithOptions(opts Options) *Decoder {
	return &Decoder{r: d.r, opts: opts}
}

// Decode reads the form-urlencoded data from the underlying [io.Reader] and
// decodes it into v.
func (d *Decoder) Decode(v interface{}) error {
	body, err := io.ReadAll(d.r)
	if err != nil {
		return fmt.Errorf("urlform: failed to read body: %w", err)
	}

	return UnmarshalWithOptions(body, v, d.opts)
}

// Encoder writes form-urlencoded data to an [io.Writer].
type Encoder struct {
	w    io.Writer
	opts Options
}

// NewEncoder creates a new [Encoder] that writes to w using the zero
// [Options].
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// WithOptions returns a copy of the encoder that uses opts for subsequent
// calls to Encode. The receiver is left unchanged.
func (e *Encoder) WithOptions(opts Options) *Encoder {
	return &Encoder{w: e.w, opts: opts}
}

// Encode encodes v as form-urlencoded data and writes it to the underlying
// [io.Writer].
func (e *Encoder) Encode(v interface{}) error {
	data, err := MarshalWithOptions(v, e.opts)
	if err != nil {
		return err
	}

	_, err = e.w.Write(data)
	return err
}
