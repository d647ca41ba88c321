package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlob_PresentAbsent(t *testing.T) {
	absent := AbsentBlob()
	assert.False(t, absent.Present())
	assert.Nil(t, absent.Bytes())
	assert.Equal(t, 0, absent.Len())

	present := NewBlob([]byte{0x01, 0x02})
	assert.True(t, present.Present())
	assert.Equal(t, []byte{0x01, 0x02}, present.Bytes())
	assert.Equal(t, 2, present.Len())
}

func TestBlob_NewBlobCopiesInput(t *testing.T) {
	src := []byte{0xAA, 0xBB}
	b := NewBlob(src)

	// Мутация исходного слайса не должна влиять на blob
	src[0] = 0x00
	assert.Equal(t, []byte{0xAA, 0xBB}, b.Bytes())
}

func TestBlob_Equal(t *testing.T) {
	tests := []struct {
		name string
		a    Blob
		b    Blob
		want bool
	}{
		{name: "both absent", a: AbsentBlob(), b: AbsentBlob(), want: true},
		{name: "present vs absent", a: NewBlob([]byte{1}), b: AbsentBlob(), want: false},
		{name: "same bytes", a: NewBlob([]byte{1, 2}), b: NewBlob([]byte{1, 2}), want: true},
		{name: "different bytes", a: NewBlob([]byte{1, 2}), b: NewBlob([]byte{2, 1}), want: false},
		{name: "empty present vs absent", a: NewBlob(nil), b: AbsentBlob(), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Equal(tt.b))
		})
	}
}

func TestBlob_JSONRoundTrip(t *testing.T) {
	type wrapper struct {
		Drawing   Blob `json:"drawing"`
		Thumbnail Blob `json:"thumbnail"`
	}

	in := wrapper{
		Drawing:   NewBlob([]byte("ink-strokes")),
		Thumbnail: AbsentBlob(),
	}

	data, err := json.Marshal(in)
	require.NoError(t, err)

	// Absent сериализуется как null
	assert.Contains(t, string(data), `"thumbnail":null`)

	var out wrapper
	require.NoError(t, json.Unmarshal(data, &out))

	assert.True(t, out.Drawing.Present())
	assert.Equal(t, []byte("ink-strokes"), out.Drawing.Bytes())
	assert.False(t, out.Thumbnail.Present())
}
