package urlform

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// container is the shape shared by the three sinks: once a sink has been
// fully driven, data folds everything it accumulated into a form tree node.
type container interface {
	data() *formData
}

// staticTree adapts an already-final subtree to the container interface.
type staticTree struct {
	tree *formData
}

func (s staticTree) data() *formData { return s.tree }

// keyedSink accumulates the fields of a record. Primitive values land on the
// node immediately; nested sinks opened through nestedKeyed and nestedList
// stay live until data is called, at which point each one is folded into the
// node under its key. Folding late means a nested sink populated after its
// sibling keys still lands on a consistent snapshot.
type keyedSink struct {
	opts   Options
	node   *formData
	nested map[string]container
}

func newKeyedSink(opts Options) *keyedSink {
	return &keyedSink{
		opts:   opts,
		node:   newFormData(),
		nested: make(map[string]container),
	}
}

// setFragment stores a single wire fragment under key.
func (s *keyedSink) setFragment(key string, f fragment) {
	c := s.node.child(key)
	c.values = append(c.values, f)
}

// setTree registers a fully built subtree under key. It joins the same fold
// as the live nested sinks, so whichever registration comes last under a key
// wins regardless of its kind.
func (s *keyedSink) setTree(key string, t *formData) {
	s.nested[key] = staticTree{tree: t}
}

// nestedKeyed opens a live record sink under key.
func (s *keyedSink) nestedKeyed(key string) *keyedSink {
	c := newKeyedSink(s.opts)
	s.nested[key] = c
	return c
}

// nestedList opens a live sequence sink under key.
func (s *keyedSink) nestedList(key string) *listSink {
	c := newListSink(s.opts)
	s.nested[key] = c
	return c
}

func (s *keyedSink) data() *formData {
	for key, c := range s.nested {
		s.node.children[key] = c.data()
	}
	return s.node
}

// listSink accumulates the elements of a sequence in arrival order. Primitive
// elements are routed straight away according to the array-encoding strategy:
// bracket style collects them on the reserved empty-string child, separator
// and repeated-value styles collect them on the node itself. Structured
// elements keep a numeric key recording their arrival position.
type listSink struct {
	opts  Options
	node  *formData
	count int
}

func newListSink(opts Options) *listSink {
	return &listSink{opts: opts, node: newFormData()}
}

// appendFragment routes one primitive element.
func (s *listSink) appendFragment(f fragment) {
	s.route(f)
	s.count++
}

// appendTree adopts one element's finished subtree. A subtree without
// children is a wrapped scalar in disguise, so its values collapse into the
// strategy route exactly as if they had arrived as primitives; only subtrees
// with real structure are kept under an index key.
func (s *listSink) appendTree(t *formData) {
	if len(t.children) == 0 {
		for _, f := range t.values {
			s.route(f)
		}
		s.count++
		return
	}
	s.node.children[strconv.Itoa(s.count)] = t
	s.count++
}

func (s *listSink) route(f fragment) {
	if s.opts.ArrayEncoding == ArrayEncodingBracket {
		c := s.node.child("")
		c.values = append(c.values, f)
		return
	}
	s.node.values = append(s.node.values, f)
}

// data finalizes the sequence node. Under the separator strategy the node's
// direct values and any bare bracket values are escaped individually and
// imploded into a single pre-encoded fragment, leaving the bracket child
// empty.
func (s *listSink) data() *formData {
	if s.opts.ArrayEncoding != ArrayEncodingSeparator {
		return s.node
	}

	values := s.node.values
	if bucket, ok := s.node.children[""]; ok {
		values = append(values, bucket.values...)
		bucket.values = nil
	}
	if len(values) == 0 {
		return s.node
	}

	parts := make([]string, len(values))
	for i, f := range values {
		parts[i] = f.escaped()
	}
	joined := strings.Join(parts, string(s.opts.separator()))
	s.node.values = []fragment{preEncodedFragment(joined)}
	return s.node
}

// scalarSink accepts exactly one value.
type scalarSink struct {
	opts Options
	node *formData
}

func newScalarSink(opts Options) *scalarSink {
	return &scalarSink{opts: opts, node: newFormData()}
}

// setFragment stores the sink's sole value.
func (s *scalarSink) setFragment(f fragment) {
	s.node.values = []fragment{f}
}

// setTree replaces the sink's node with a fully built subtree.
func (s *scalarSink) setTree(t *formData) {
	s.node = t
}

func (s *scalarSink) data() *formData {
	return s.node
}

// dateTree renders a date according to the date-encoding strategy and returns
// it as a subtree. The epoch and ISO 8601 strategies produce a node with a
// single value, which sequence sinks then flatten like any other primitive. A
// custom strategy may produce an arbitrary shape: its callback result is
// encoded through a fresh walk and adopted wholesale. A callback result that
// is itself a date is rejected, since encoding it would re-enter the callback
// without bound.
func dateTree(opts Options, t time.Time) (*formData, error) {
	switch opts.DateEncoding {
	case DateEncodingSecondsSince1970:
		d := newFormData()
		d.values = append(d.values, rawFragment(epochSeconds(t)))
		return d, nil
	case DateEncodingISO8601:
		d := newFormData()
		d.values = append(d.values, rawFragment(iso8601(t)))
		return d, nil
	case DateEncodingCustom:
		if opts.DateEncodeFunc == nil {
			return nil, fmt.Errorf("urlform: DateEncodingCustom requires DateEncodeFunc")
		}
		v, err := opts.DateEncodeFunc(t)
		if err != nil {
			return nil, err
		}
		payload := reflect.ValueOf(v)
		for (payload.Kind() == reflect.Pointer || payload.Kind() == reflect.Interface) && !payload.IsNil() {
			payload = payload.Elem()
		}
		if payload.IsValid() {
			if _, ok := timeValue(payload); ok {
				return nil, fmt.Errorf("urlform: DateEncodeFunc returned a time.Time")
			}
		}
		return encodeValue(opts, reflect.ValueOf(v))
	default:
		return nil, fmt.Errorf("urlform: unknown date encoding %d", opts.DateEncoding)
	}
}

// epochSeconds formats t as seconds since the Unix epoch. Whole seconds stay
// integral; sub-second precision appends the shortest fractional form.
func epochSeconds(t time.Time) string {
	sec := t.Unix()
	nsec := t.Nanosecond()
	if nsec == 0 {
		return strconv.FormatInt(sec, 10)
	}
	return strconv.FormatFloat(float64(sec)+float64(nsec)/1e9, 'f', -1, 64)
}

func iso8601(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
