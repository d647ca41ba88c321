package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/inkpad/internal/server/storage"
	"github.com/iudanet/inkpad/pkg/api"
)

// EventPublisher рассылает события изменений подписчикам пользователя
type EventPublisher interface {
	Publish(userID string, event api.ChangeEvent)
}

// NotebookHandler handles the notebook snapshot endpoints
type NotebookHandler struct {
	logger  *slog.Logger
	storage storage.NotebookStorage
	events  EventPublisher
}

// NewNotebookHandler создает новый handler для тетрадей.
// events может быть nil, тогда события не рассылаются.
func NewNotebookHandler(logger *slog.Logger, notebookStorage storage.NotebookStorage, events EventPublisher) *NotebookHandler {
	return &NotebookHandler{
		logger:  logger,
		storage: notebookStorage,
		events:  events,
	}
}

// List обрабатывает GET /api/v1/notebooks
// Возвращает все тетради владельца целиком
func (h *NotebookHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		h.logger.ErrorContext(ctx, "user id not found in context")
		sendError(h.logger, w, "unauthorized", http.StatusUnauthorized)
		return
	}

	notebooks, err := h.storage.ListNotebooks(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list notebooks", slog.Any("error", err), slog.String("user_id", userID))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	resp := api.ListNotebooksResponse{
		Notebooks:  make([]api.Notebook, 0, len(notebooks)),
		ServerTime: time.Now(),
	}
	for _, nb := range notebooks {
		resp.Notebooks = append(resp.Notebooks, api.NotebookFromModel(userID, nb))
	}

	h.logger.InfoContext(ctx, "notebooks listed",
		slog.String("user_id", userID),
		slog.Int("count", len(notebooks)))

	sendJSON(h.logger, w, resp, http.StatusOK)
}

// Upsert обрабатывает PUT /api/v1/notebooks/{id}
// Записывает полный snapshot тетради. Last-write-wins: если сохраненная
// версия новее, snapshot отбрасывается и ack возвращает updated=false.
func (h *NotebookHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		h.logger.ErrorContext(ctx, "user id not found in context")
		sendError(h.logger, w, "unauthorized", http.StatusUnauthorized)
		return
	}

	notebookID := r.PathValue("id")
	if notebookID == "" {
		sendError(h.logger, w, "notebook id is required", http.StatusBadRequest)
		return
	}

	var req api.Notebook
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode notebook", slog.Any("error", err))
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	// ID в пути и в теле должны совпадать
	if req.ID != notebookID {
		sendError(h.logger, w, "notebook id mismatch", http.StatusBadRequest)
		return
	}

	updated, err := h.storage.UpsertNotebook(ctx, userID, req.ToModel())
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to upsert notebook",
			slog.Any("error", err),
			slog.String("notebook_id", notebookID))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "notebook upserted",
		slog.String("user_id", userID),
		slog.String("notebook_id", notebookID),
		slog.Bool("updated", updated))

	if updated {
		h.publish(ctx, userID, api.EventNotebookUpserted, notebookID)
	}

	ack := api.UpsertAck{
		ID:         notebookID,
		Updated:    updated,
		ServerTime: time.Now(),
	}
	sendJSON(h.logger, w, ack, http.StatusOK)
}

// Delete обрабатывает DELETE /api/v1/notebooks/{id}
// Удаление идемпотентно: отсутствующая тетрадь не считается ошибкой,
// повторная доставка удаления при retry должна проходить.
func (h *NotebookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		h.logger.ErrorContext(ctx, "user id not found in context")
		sendError(h.logger, w, "unauthorized", http.StatusUnauthorized)
		return
	}

	notebookID := r.PathValue("id")
	if notebookID == "" {
		sendError(h.logger, w, "notebook id is required", http.StatusBadRequest)
		return
	}

	deleted := true
	if err := h.storage.DeleteNotebook(ctx, userID, notebookID); err != nil {
		if !errors.Is(err, storage.ErrNotebookNotFound) {
			h.logger.ErrorContext(ctx, "failed to delete notebook",
				slog.Any("error", err),
				slog.String("notebook_id", notebookID))
			sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
			return
		}
		deleted = false
	}

	h.logger.InfoContext(ctx, "notebook deleted",
		slog.String("user_id", userID),
		slog.String("notebook_id", notebookID),
		slog.Bool("existed", deleted))

	if deleted {
		h.publish(ctx, userID, api.EventNotebookDeleted, notebookID)
	}

	ack := api.UpsertAck{
		ID:         notebookID,
		Updated:    deleted,
		ServerTime: time.Now(),
	}
	sendJSON(h.logger, w, ack, http.StatusOK)
}

// publish рассылает событие изменения, помечая его устройством-источником
func (h *NotebookHandler) publish(ctx context.Context, userID string, eventType api.EventType, notebookID string) {
	if h.events == nil {
		return
	}

	// Устройство берется из claims access token
	deviceID, _ := GetDeviceID(ctx)

	h.events.Publish(userID, api.ChangeEvent{
		Type:       eventType,
		NotebookID: notebookID,
		DeviceID:   deviceID,
		OccurredAt: time.Now(),
	})
}
