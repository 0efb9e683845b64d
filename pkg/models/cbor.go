package models

import (
	"bytes"
	"fmt"
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/go-cmp/cmp"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	opts := cbor.CanonicalEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	opts.TimeTag = cbor.EncTagRequired

	var err error
	encMode, err = opts.EncMode()
	if err != nil {
		panic(err)
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		IntDec:         cbor.IntDecConvertSigned,
		TimeTag:        cbor.DecTagOptional,
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

// Marshal encodes v in canonical CBOR, so equal values encode to equal bytes.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v. Nested maps decode as map[string]any
// and integers as int64.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// NewEncoder returns a canonical CBOR stream encoder writing to w.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder returns a CBOR stream decoder reading from r.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return decMode.NewDecoder(r)
}

// Clone returns a deep copy of the document. Nested maps and slices
// are not shared with d.
func (d Document) Clone() (Document, error) {
	if d == nil {
		return nil, nil
	}
	data, err := Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document for cloning: %w", err)
	}
	var out Document
	if err := Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode cloned document: %w", err)
	}
	return out, nil
}

// Equal reports whether a and b are structurally equal. Numbers compare
// by value regardless of their Go integer type.
func Equal(a, b Document) (bool, error) {
	ab, err := Marshal(a)
	if err != nil {
		return false, fmt.Errorf("failed to encode document: %w", err)
	}
	bb, err := Marshal(b)
	if err != nil {
		return false, fmt.Errorf("failed to encode document: %w", err)
	}
	return bytes.Equal(ab, bb), nil
}

// Diff returns a human readable diff between want and got, empty when
// they are equal.
func Diff(want, got Document) string {
	return cmp.Diff(map[string]any(want), map[string]any(got))
}
