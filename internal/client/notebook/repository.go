// Package notebook implements the client-facing repository over the notebook
// collection. Все чтения идут из памяти, каждая мутация фиксируется в кэше и
// журнале изменений и будит фоновую синхронизацию. Сетевых операций здесь
// нет: репозиторий работает одинаково в онлайне и оффлайне.
package notebook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/inkpad/internal/client/storage"
	"github.com/iudanet/inkpad/internal/models"
	"github.com/iudanet/inkpad/internal/validation"
)

// ErrLastPage is returned when deleting the only page of a notebook
var ErrLastPage = errors.New("cannot delete the last page of a notebook")

// SyncRequester wakes the background sync after a local mutation.
// Реализуется планировщиком синхронизации; запросы дебаунсятся там.
type SyncRequester interface {
	RequestSync()
}

// Repository owns the in-memory notebook collection and its durable shadow.
// Mutations are serialized by an internal mutex; reads return deep copies so
// callers can never corrupt shared state.
type Repository struct {
	cache     storage.CacheStore
	ledger    storage.ChangeLedger
	requester SyncRequester
	logger    *slog.Logger

	mu         sync.Mutex
	notebooks  []*models.Notebook
	selectedID string
	subs       map[int]chan []*models.Notebook
	nextSubID  int
}

// New loads the cached collection and returns a ready repository.
// Поврежденный кэш деградирует до пустой коллекции внутри CacheStore.
func New(ctx context.Context, cache storage.CacheStore, ledger storage.ChangeLedger, logger *slog.Logger) (*Repository, error) {
	notebooks, err := cache.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load notebook cache: %w", err)
	}

	return &Repository{
		cache:     cache,
		ledger:    ledger,
		logger:    logger,
		notebooks: notebooks,
		subs:      make(map[int]chan []*models.Notebook),
	}, nil
}

// SetSyncRequester wires the sync scheduler.
// Разрывает цикл конструирования репозиторий <-> планировщик.
func (r *Repository) SetSyncRequester(requester SyncRequester) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requester = requester
}

// List returns the collection in stable order
func (r *Repository) List(ctx context.Context) []*models.Notebook {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneAll(r.notebooks)
}

// Get returns one notebook by id
func (r *Repository) Get(ctx context.Context, id string) (*models.Notebook, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	nb := r.findLocked(id)
	if nb == nil {
		return nil, storage.ErrNotebookNotFound
	}
	return nb.Clone(), nil
}

// Select marks a notebook as the one currently open in the UI
func (r *Repository) Select(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.findLocked(id) == nil {
		return storage.ErrNotebookNotFound
	}
	r.selectedID = id
	return nil
}

// Selected returns the currently open notebook, or nil when none is open
func (r *Repository) Selected(ctx context.Context) *models.Notebook {
	r.mu.Lock()
	defer r.mu.Unlock()

	nb := r.findLocked(r.selectedID)
	if nb == nil {
		return nil
	}
	return nb.Clone()
}

// Create adds a notebook with one blank page and returns it
func (r *Repository) Create(ctx context.Context, title, coverColor string) (*models.Notebook, error) {
	if err := validation.ValidateTitle(title); err != nil {
		return nil, err
	}
	if coverColor != "" {
		if err := validation.ValidateHexColor(coverColor); err != nil {
			return nil, err
		}
	}

	nb := models.NewNotebook(title, coverColor)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.notebooks = append(r.notebooks, nb)
	r.commitLocked(ctx, nb, models.ChangeCreate, models.EntityNotebook, nb.ID, "")
	return nb.Clone(), nil
}

// Rename changes the notebook title
func (r *Repository) Rename(ctx context.Context, id, title string) error {
	if err := validation.ValidateTitle(title); err != nil {
		return err
	}

	return r.mutateNotebook(ctx, id, func(nb *models.Notebook) {
		nb.Title = title
	})
}

// SetCoverColor changes the notebook cover color
func (r *Repository) SetCoverColor(ctx context.Context, id, color string) error {
	if err := validation.ValidateHexColor(color); err != nil {
		return err
	}

	return r.mutateNotebook(ctx, id, func(nb *models.Notebook) {
		nb.CoverColor = color
	})
}

// Delete removes a notebook from the collection.
// Единственная мутация, которая уходит на сервер как remote delete.
func (r *Repository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i, nb := range r.notebooks {
		if nb.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return storage.ErrNotebookNotFound
	}

	r.notebooks = append(r.notebooks[:idx], r.notebooks[idx+1:]...)
	if r.selectedID == id {
		r.selectedID = ""
	}

	r.commitLocked(ctx, nil, models.ChangeDelete, models.EntityNotebook, id, "")
	return nil
}

// AddPage appends a page to the notebook and returns it
func (r *Repository) AddPage(ctx context.Context, notebookID string, template models.PageTemplate, backgroundColor string) (*models.Page, error) {
	if !template.Valid() {
		return nil, fmt.Errorf("unknown page template %q", template)
	}
	if backgroundColor != "" {
		if err := validation.ValidateHexColor(backgroundColor); err != nil {
			return nil, err
		}
	}

	page := models.NewPage(template, backgroundColor)

	err := r.mutatePage(ctx, notebookID, page.ID, models.ChangeCreate, func(nb *models.Notebook) error {
		nb.Pages = append(nb.Pages, page)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page.Clone(), nil
}

// DeletePage removes a page. The last remaining page cannot be deleted:
// тетрадь всегда содержит хотя бы одну страницу.
func (r *Repository) DeletePage(ctx context.Context, notebookID, pageID string) error {
	return r.mutatePage(ctx, notebookID, pageID, models.ChangeDelete, func(nb *models.Notebook) error {
		_, idx := nb.FindPage(pageID)
		if idx == -1 {
			return storage.ErrPageNotFound
		}
		if len(nb.Pages) == 1 {
			return ErrLastPage
		}
		nb.Pages = append(nb.Pages[:idx], nb.Pages[idx+1:]...)
		return nil
	})
}

// ReorderPages rearranges pages according to pageIDs, which must be a
// permutation of the current page ids
func (r *Repository) ReorderPages(ctx context.Context, notebookID string, pageIDs []string) error {
	return r.mutatePage(ctx, notebookID, "", models.ChangeUpdate, func(nb *models.Notebook) error {
		if len(pageIDs) != len(nb.Pages) {
			return fmt.Errorf("page order must contain exactly %d ids, got %d", len(nb.Pages), len(pageIDs))
		}

		reordered := make([]*models.Page, 0, len(pageIDs))
		seen := make(map[string]bool, len(pageIDs))
		for _, id := range pageIDs {
			if seen[id] {
				return fmt.Errorf("duplicate page id %q in new order", id)
			}
			seen[id] = true

			page, _ := nb.FindPage(id)
			if page == nil {
				return storage.ErrPageNotFound
			}
			reordered = append(reordered, page)
		}

		nb.Pages = reordered
		return nil
	})
}

// UpdatePageDrawing replaces the drawing payload of a page and stamps the
// page ModifiedAt
func (r *Repository) UpdatePageDrawing(ctx context.Context, notebookID, pageID string, drawing models.Blob) error {
	return r.mutatePage(ctx, notebookID, pageID, models.ChangeUpdate, func(nb *models.Notebook) error {
		page, _ := nb.FindPage(pageID)
		if page == nil {
			return storage.ErrPageNotFound
		}
		page.Drawing = drawing.Clone()
		page.ModifiedAt = time.Now()
		return nil
	})
}

// UpdatePageThumbnail replaces the rendered thumbnail of a page
func (r *Repository) UpdatePageThumbnail(ctx context.Context, notebookID, pageID string, thumbnail models.Blob) error {
	return r.mutatePage(ctx, notebookID, pageID, models.ChangeUpdate, func(nb *models.Notebook) error {
		page, _ := nb.FindPage(pageID)
		if page == nil {
			return storage.ErrPageNotFound
		}
		page.Thumbnail = thumbnail.Clone()
		page.ModifiedAt = time.Now()
		return nil
	})
}

// Watch subscribes to collection updates. Первое значение приходит после
// ближайшей мутации или merge; текущая коллекция читается через List.
func (r *Repository) Watch() (<-chan []*models.Notebook, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextSubID
	r.nextSubID++
	ch := make(chan []*models.Notebook, 4)
	r.subs[id] = ch

	cancel := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if sub, ok := r.subs[id]; ok {
			delete(r.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// PublishCollection replaces the in-memory collection with the result of a
// sync merge. Вызывается оркестратором после коммита кэша.
func (r *Repository) PublishCollection(notebooks []*models.Notebook) {
	r.mu.Lock()
	r.notebooks = cloneAll(notebooks)
	if r.selectedID != "" && r.findLocked(r.selectedID) == nil {
		// Открытая тетрадь удалена с другого устройства
		r.selectedID = ""
	}
	r.notifyLocked()
	r.mu.Unlock()
}

// mutateNotebook applies fn to a notebook and commits the change as a
// notebook-level update
func (r *Repository) mutateNotebook(ctx context.Context, id string, fn func(nb *models.Notebook)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	nb := r.findLocked(id)
	if nb == nil {
		return storage.ErrNotebookNotFound
	}

	fn(nb)
	r.commitLocked(ctx, nb, models.ChangeUpdate, models.EntityNotebook, nb.ID, "")
	return nil
}

// mutatePage applies fn to the owning notebook and commits the change as a
// page-level entry carrying the full parent snapshot
func (r *Repository) mutatePage(ctx context.Context, notebookID, pageID string, changeType models.ChangeType, fn func(nb *models.Notebook) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	nb := r.findLocked(notebookID)
	if nb == nil {
		return storage.ErrNotebookNotFound
	}

	if err := fn(nb); err != nil {
		return err
	}

	entityID := pageID
	if entityID == "" {
		// Перестановка страниц - изменение самой тетради
		r.commitLocked(ctx, nb, changeType, models.EntityNotebook, nb.ID, "")
		return nil
	}

	r.commitLocked(ctx, nb, changeType, models.EntityPage, entityID, nb.ID)
	return nil
}

// commitLocked stamps the notebook, persists the collection, records the
// ledger entry, notifies observers and wakes sync. Caller holds r.mu.
//
// Persistence failures are logged, never returned: локальная мутация уже
// применена к коллекции в памяти и не должна падать из-за диска; при потере
// записи журнала изменение довезет следующая мутация той же тетради.
func (r *Repository) commitLocked(ctx context.Context, nb *models.Notebook, changeType models.ChangeType, entityType models.EntityType, entityID, parentID string) {
	var payload []byte
	if nb != nil {
		nb.Touch()

		var err error
		payload, err = json.Marshal(nb)
		if err != nil {
			r.logger.Error("failed to marshal notebook snapshot",
				"notebook_id", nb.ID, "error", err)
		}
	}

	if err := r.cache.Save(ctx, r.notebooks); err != nil {
		r.logger.Error("failed to persist notebook collection", "error", err)
	}

	// Удаление тетради payload не несет
	if changeType == models.ChangeDelete && entityType == models.EntityNotebook {
		payload = nil
	}

	change := &models.PendingChange{
		ID:         uuid.New().String(),
		ChangeType: changeType,
		EntityType: entityType,
		EntityID:   entityID,
		ParentID:   parentID,
		Payload:    payload,
		Timestamp:  time.Now(),
	}
	if err := r.ledger.Append(ctx, change); err != nil {
		r.logger.Error("failed to record pending change",
			"change_type", string(changeType), "entity_id", entityID, "error", err)
	}

	r.notifyLocked()

	if r.requester != nil {
		r.requester.RequestSync()
	}
}

// notifyLocked delivers the current collection to observers without blocking.
// Caller holds r.mu.
func (r *Repository) notifyLocked() {
	if len(r.subs) == 0 {
		return
	}
	snapshot := cloneAll(r.notebooks)
	for _, ch := range r.subs {
		select {
		case ch <- snapshot:
		default:
		}
	}
}

// findLocked returns the live notebook by id; caller holds r.mu
func (r *Repository) findLocked(id string) *models.Notebook {
	if id == "" {
		return nil
	}
	for _, nb := range r.notebooks {
		if nb.ID == id {
			return nb
		}
	}
	return nil
}

// cloneAll deep-copies a collection
func cloneAll(notebooks []*models.Notebook) []*models.Notebook {
	out := make([]*models.Notebook, len(notebooks))
	for i, nb := range notebooks {
		out[i] = nb.Clone()
	}
	return out
}
