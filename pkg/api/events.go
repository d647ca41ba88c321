package api

import "time"

// EventType тип события изменения на сервере
type EventType string

const (
	EventNotebookUpserted EventType = "notebook_upserted"
	EventNotebookDeleted  EventType = "notebook_deleted"
)

// ChangeEvent is a best-effort push notification delivered over the
// change-subscription channel. It carries no payload: получив событие,
// клиент планирует обычный цикл синхронизации. Доставка событий влияет
// только на задержку, корректность обеспечивает polling.
type ChangeEvent struct {
	OccurredAt time.Time `json:"occurred_at"`
	Type       EventType `json:"type"`
	NotebookID string    `json:"notebook_id"`
	DeviceID   string    `json:"device_id,omitempty"` // устройство-источник
}
