package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/iudanet/inkpad/pkg/api"
)

// subscriberBuffer ограничивает очередь событий на подписчика.
// Медленный подписчик теряет события, а не блокирует рассылку:
// доставка best-effort, корректность обеспечивает polling клиента.
const subscriberBuffer = 16

// EventHub держит WebSocket подписки и рассылает события изменений
// подписчикам владельца тетради.
type EventHub struct {
	logger      *slog.Logger
	mu          sync.Mutex
	subscribers map[string]map[chan api.ChangeEvent]struct{}
}

// NewEventHub создает новый hub подписок
func NewEventHub(logger *slog.Logger) *EventHub {
	return &EventHub{
		logger:      logger,
		subscribers: make(map[string]map[chan api.ChangeEvent]struct{}),
	}
}

// Publish отправляет событие всем подписчикам пользователя.
// Отправка неблокирующая: переполненные очереди пропускаются.
func (h *EventHub) Publish(userID string, event api.ChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subscribers[userID] {
		select {
		case ch <- event:
		default:
			h.logger.Warn("event dropped: subscriber queue full",
				"user_id", userID,
				"notebook_id", event.NotebookID)
		}
	}
}

// Subscribe обрабатывает GET /api/v1/events
// Апгрейдит соединение до WebSocket и стримит события изменений
// пользователя до обрыва соединения.
func (h *EventHub) Subscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		h.logger.ErrorContext(ctx, "user id not found in context")
		sendError(h.logger, w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.WarnContext(ctx, "websocket accept failed", slog.Any("error", err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "")

	ch := h.subscribe(userID)
	defer h.unsubscribe(userID, ch)

	h.logger.InfoContext(ctx, "event subscriber connected", slog.String("user_id", userID))

	// Горутина чтения: нужна чтобы заметить закрытие соединения клиентом
	readCtx, cancelRead := context.WithCancel(ctx)
	defer cancelRead()
	go func() {
		defer cancelRead()
		for {
			if _, _, err := conn.Read(readCtx); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case event := <-ch:
			if err := wsjson.Write(readCtx, conn, event); err != nil {
				h.logger.InfoContext(ctx, "event subscriber disconnected",
					slog.String("user_id", userID),
					slog.Any("error", err))
				return
			}
		case <-readCtx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		}
	}
}

func (h *EventHub) subscribe(userID string) chan api.ChangeEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan api.ChangeEvent, subscriberBuffer)
	if h.subscribers[userID] == nil {
		h.subscribers[userID] = make(map[chan api.ChangeEvent]struct{})
	}
	h.subscribers[userID][ch] = struct{}{}
	return ch
}

func (h *EventHub) unsubscribe(userID string, ch chan api.ChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.subscribers[userID], ch)
	if len(h.subscribers[userID]) == 0 {
		delete(h.subscribers, userID)
	}
}
