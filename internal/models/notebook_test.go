package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNotebook(t *testing.T) {
	nb := NewNotebook("Sketches", "#FF8800")

	assert.NotEmpty(t, nb.ID)
	assert.Equal(t, "Sketches", nb.Title)
	assert.Equal(t, "#FF8800", nb.CoverColor)
	assert.False(t, nb.CreatedAt.IsZero())
	assert.False(t, nb.ModifiedAt.IsZero())

	// Новая тетрадь всегда содержит ровно одну пустую страницу
	require.Len(t, nb.Pages, 1)
	page := nb.Pages[0]
	assert.Equal(t, TemplateBlank, page.Template)
	assert.False(t, page.Drawing.Present())
	assert.False(t, page.Thumbnail.Present())
}

func TestNewNotebook_DefaultCover(t *testing.T) {
	nb := NewNotebook("Untitled", "")
	assert.Equal(t, DefaultCoverColor, nb.CoverColor)
}

func TestNotebook_Touch_Monotonic(t *testing.T) {
	nb := NewNotebook("Test", "")

	prev := nb.ModifiedAt
	for i := 0; i < 100; i++ {
		nb.Touch()
		// ModifiedAt строго растет даже при быстрых последовательных правках
		assert.True(t, nb.ModifiedAt.After(prev),
			"ModifiedAt must strictly increase: %v -> %v", prev, nb.ModifiedAt)
		prev = nb.ModifiedAt
	}
}

func TestNotebook_Touch_ClockBehind(t *testing.T) {
	nb := NewNotebook("Test", "")

	// Симулируем часы, ушедшие вперед относительно time.Now
	future := time.Now().Add(time.Hour)
	nb.ModifiedAt = future

	nb.Touch()
	assert.True(t, nb.ModifiedAt.After(future))
}

func TestNotebook_Clone(t *testing.T) {
	nb := NewNotebook("Original", "#112233")
	nb.Pages[0].Drawing = NewBlob([]byte("strokes"))

	clone := nb.Clone()

	require.Len(t, clone.Pages, 1)
	assert.Equal(t, nb.ID, clone.ID)
	assert.Equal(t, nb.Pages[0].ID, clone.Pages[0].ID)
	assert.True(t, clone.Pages[0].Drawing.Equal(nb.Pages[0].Drawing))

	// Глубокая копия: правки клона не видны в оригинале
	clone.Title = "Changed"
	clone.Pages[0].BackgroundColor = "#000000"
	clone.Pages = append(clone.Pages, NewPage(TemplateGrid, ""))

	assert.Equal(t, "Original", nb.Title)
	assert.Equal(t, DefaultPageColor, nb.Pages[0].BackgroundColor)
	assert.Len(t, nb.Pages, 1)
}

func TestNotebook_FindPage(t *testing.T) {
	nb := NewNotebook("Test", "")
	second := NewPage(TemplateRuled, "")
	nb.Pages = append(nb.Pages, second)

	page, idx := nb.FindPage(second.ID)
	require.NotNil(t, page)
	assert.Equal(t, 1, idx)
	assert.Equal(t, second.ID, page.ID)

	page, idx = nb.FindPage("missing-id")
	assert.Nil(t, page)
	assert.Equal(t, -1, idx)
}

func TestPendingChange_NotebookID(t *testing.T) {
	tests := []struct {
		name   string
		change PendingChange
		want   string
	}{
		{
			name:   "notebook change uses entity id",
			change: PendingChange{EntityType: EntityNotebook, EntityID: "nb-1"},
			want:   "nb-1",
		},
		{
			name:   "page change uses parent id",
			change: PendingChange{EntityType: EntityPage, EntityID: "pg-1", ParentID: "nb-2"},
			want:   "nb-2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.change.NotebookID())
		})
	}
}
