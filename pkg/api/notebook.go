// Package api contains the wire types shared by the inkpad client and the
// remote store server.
package api

import (
	"time"

	"github.com/iudanet/inkpad/internal/models"
)

// Page представляет одну страницу тетради на проводе
type Page struct {
	CreatedAt       time.Time `json:"created_at"`
	ModifiedAt      time.Time `json:"modified_at"`
	ID              string    `json:"id"`
	Template        string    `json:"template"`
	BackgroundColor string    `json:"background_color"`
	Drawing         []byte    `json:"drawing,omitempty"`
	Thumbnail       []byte    `json:"thumbnail,omitempty"`
	HasDrawing      bool      `json:"has_drawing"`
	HasThumbnail    bool      `json:"has_thumbnail"`
}

// Notebook представляет полный snapshot тетради на проводе.
// Snapshot всегда несет весь список страниц: слияние работает на уровне
// целой тетради, частичных обновлений страниц в протоколе нет.
type Notebook struct {
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id"`
	Title      string    `json:"title"`
	CoverColor string    `json:"cover_color"`
	Pages      []Page    `json:"pages"`
}

// UpsertAck подтверждение сервера о durable записи
type UpsertAck struct {
	ServerTime time.Time `json:"server_time"`
	ID         string    `json:"id"`
	Updated    bool      `json:"updated"` // false если существующая версия новее
}

// ListNotebooksResponse ответ на GET /api/v1/notebooks
type ListNotebooksResponse struct {
	Notebooks  []Notebook `json:"notebooks"`
	ServerTime time.Time  `json:"server_time"`
}

// NotebookFromModel converts an internal notebook to its wire form
func NotebookFromModel(ownerID string, nb *models.Notebook) Notebook {
	pages := make([]Page, len(nb.Pages))
	for i, p := range nb.Pages {
		pages[i] = Page{
			ID:              p.ID,
			Template:        string(p.Template),
			BackgroundColor: p.BackgroundColor,
			Drawing:         p.Drawing.Bytes(),
			Thumbnail:       p.Thumbnail.Bytes(),
			HasDrawing:      p.Drawing.Present(),
			HasThumbnail:    p.Thumbnail.Present(),
			CreatedAt:       p.CreatedAt,
			ModifiedAt:      p.ModifiedAt,
		}
	}
	return Notebook{
		ID:         nb.ID,
		OwnerID:    ownerID,
		Title:      nb.Title,
		CoverColor: nb.CoverColor,
		Pages:      pages,
		CreatedAt:  nb.CreatedAt,
		ModifiedAt: nb.ModifiedAt,
	}
}

// ToModel converts a wire notebook back to the internal representation
func (n Notebook) ToModel() *models.Notebook {
	pages := make([]*models.Page, len(n.Pages))
	for i, p := range n.Pages {
		page := &models.Page{
			ID:              p.ID,
			Template:        models.PageTemplate(p.Template),
			BackgroundColor: p.BackgroundColor,
			Drawing:         models.AbsentBlob(),
			Thumbnail:       models.AbsentBlob(),
			CreatedAt:       p.CreatedAt,
			ModifiedAt:      p.ModifiedAt,
		}
		// Пустой present-блоб и absent различаются явными флагами
		if p.HasDrawing {
			page.Drawing = models.NewBlob(p.Drawing)
		}
		if p.HasThumbnail {
			page.Thumbnail = models.NewBlob(p.Thumbnail)
		}
		pages[i] = page
	}
	return &models.Notebook{
		ID:         n.ID,
		Title:      n.Title,
		CoverColor: n.CoverColor,
		Pages:      pages,
		CreatedAt:  n.CreatedAt,
		ModifiedAt: n.ModifiedAt,
	}
}
