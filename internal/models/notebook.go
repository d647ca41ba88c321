package models

import (
	"time"

	"github.com/google/uuid"
)

// PageTemplate задает фоновую разметку страницы
type PageTemplate string

const (
	TemplateBlank  PageTemplate = "blank"
	TemplateRuled  PageTemplate = "ruled"
	TemplateGrid   PageTemplate = "grid"
	TemplateDotted PageTemplate = "dotted"
)

// Valid reports whether the template is one of the known values
func (t PageTemplate) Valid() bool {
	switch t {
	case TemplateBlank, TemplateRuled, TemplateGrid, TemplateDotted:
		return true
	}
	return false
}

// DefaultCoverColor используется для новых тетрадей без явного цвета
const DefaultCoverColor = "#4A90D9"

// DefaultPageColor фон страницы по умолчанию
const DefaultPageColor = "#FFFFFF"

// Page is a single sheet inside a notebook. The drawing payload and the
// thumbnail are opaque to the sync core. A page is owned by exactly one
// notebook and travels with the notebook snapshot during sync.
type Page struct {
	CreatedAt       time.Time    `json:"created_at"`
	ModifiedAt      time.Time    `json:"modified_at"`
	ID              string       `json:"id"`
	Template        PageTemplate `json:"template"`
	BackgroundColor string       `json:"background_color"`
	Drawing         Blob         `json:"drawing"`
	Thumbnail       Blob         `json:"thumbnail"`
}

// NewPage creates an empty page with the given template and background
func NewPage(template PageTemplate, backgroundColor string) *Page {
	now := time.Now()
	if backgroundColor == "" {
		backgroundColor = DefaultPageColor
	}
	return &Page{
		ID:              uuid.New().String(),
		Template:        template,
		BackgroundColor: backgroundColor,
		Drawing:         AbsentBlob(),
		Thumbnail:       AbsentBlob(),
		CreatedAt:       now,
		ModifiedAt:      now,
	}
}

// Clone returns a deep copy of the page
func (p *Page) Clone() *Page {
	return &Page{
		ID:              p.ID,
		Template:        p.Template,
		BackgroundColor: p.BackgroundColor,
		Drawing:         p.Drawing.Clone(),
		Thumbnail:       p.Thumbnail.Clone(),
		CreatedAt:       p.CreatedAt,
		ModifiedAt:      p.ModifiedAt,
	}
}

// Notebook is the top-level document entity: метаданные плюс упорядоченный
// список страниц. Page order is part of the notebook state, so reordering
// bumps the notebook ModifiedAt rather than any per-page timestamp.
type Notebook struct {
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	CoverColor string    `json:"cover_color"`
	Pages      []*Page   `json:"pages"`
}

// NewNotebook creates a notebook with exactly one blank page.
// Every notebook starts this way, matching the create-from-UI lifecycle.
func NewNotebook(title, coverColor string) *Notebook {
	now := time.Now()
	if coverColor == "" {
		coverColor = DefaultCoverColor
	}
	return &Notebook{
		ID:         uuid.New().String(),
		Title:      title,
		CoverColor: coverColor,
		Pages:      []*Page{NewPage(TemplateBlank, DefaultPageColor)},
		CreatedAt:  now,
		ModifiedAt: now,
	}
}

// Clone returns a deep copy of the notebook including all pages
func (n *Notebook) Clone() *Notebook {
	pages := make([]*Page, len(n.Pages))
	for i, p := range n.Pages {
		pages[i] = p.Clone()
	}
	return &Notebook{
		ID:         n.ID,
		Title:      n.Title,
		CoverColor: n.CoverColor,
		Pages:      pages,
		CreatedAt:  n.CreatedAt,
		ModifiedAt: n.ModifiedAt,
	}
}

// Touch bumps ModifiedAt to now. ModifiedAt is guaranteed to be strictly
// monotonic across successive touches of the same notebook even when the
// wall clock does not advance between rapid edits.
func (n *Notebook) Touch() {
	now := time.Now()
	if !now.After(n.ModifiedAt) {
		now = n.ModifiedAt.Add(time.Nanosecond)
	}
	n.ModifiedAt = now
}

// FindPage returns the page and its position, or (nil, -1) if absent
func (n *Notebook) FindPage(pageID string) (*Page, int) {
	for i, p := range n.Pages {
		if p.ID == pageID {
			return p, i
		}
	}
	return nil, -1
}

// PageIDs returns the current page order
func (n *Notebook) PageIDs() []string {
	ids := make([]string, len(n.Pages))
	for i, p := range n.Pages {
		ids[i] = p.ID
	}
	return ids
}
