package models

import (
	"bytes"
	"encoding/json"
)

// Blob represents an optional opaque binary payload (drawing data, thumbnail).
// The payload internals are owned by the rendering subsystem; the sync core
// never inspects them. The zero value is the absent state, so "страница ещё
// не нарисована" is a first-class case, not a nil slice convention.
type Blob struct {
	data    []byte
	present bool
}

// NewBlob creates a present blob with a copy of data
func NewBlob(data []byte) Blob {
	buf := make([]byte, len(data))
	copy(buf, data)
	return Blob{data: buf, present: true}
}

// AbsentBlob returns the absent state explicitly
func AbsentBlob() Blob {
	return Blob{}
}

// Present reports whether the payload exists
func (b Blob) Present() bool {
	return b.present
}

// Bytes returns the raw payload. Callers must not modify the result.
// Returns nil for an absent blob.
func (b Blob) Bytes() []byte {
	if !b.present {
		return nil
	}
	return b.data
}

// Len returns the payload size in bytes (0 when absent)
func (b Blob) Len() int {
	return len(b.data)
}

// Equal compares two blobs including their presence state
func (b Blob) Equal(other Blob) bool {
	if b.present != other.present {
		return false
	}
	return bytes.Equal(b.data, other.data)
}

// Clone returns a deep copy of the blob
func (b Blob) Clone() Blob {
	if !b.present {
		return Blob{}
	}
	return NewBlob(b.data)
}

// MarshalJSON encodes an absent blob as null and a present one as base64
func (b Blob) MarshalJSON() ([]byte, error) {
	if !b.present {
		return []byte("null"), nil
	}
	return json.Marshal(b.data)
}

// UnmarshalJSON decodes null as the absent state
func (b *Blob) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*b = Blob{}
		return nil
	}
	var raw []byte
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*b = Blob{data: raw, present: true}
	return nil
}
