package models

import "time"

// ChangeType тип локальной мутации
type ChangeType string

const (
	ChangeCreate ChangeType = "create"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
)

// EntityType тип сущности, к которой относится изменение
type EntityType string

const (
	EntityNotebook EntityType = "notebook"
	EntityPage     EntityType = "page"
)

// PendingChange is a durable record of a local mutation not yet confirmed by
// the remote store. Entries are append-only until the remote store
// acknowledges durability; upload is at-least-once and the remote upsert is
// keyed by id, so duplicate delivery is harmless.
//
// Page-level changes reference the owning notebook via ParentID and carry the
// full parent snapshot as payload: слияние выполняется на уровне целого
// snapshot тетради, поэтому и загрузка на сервер работает целыми тетрадями.
type PendingChange struct {
	Timestamp  time.Time  `json:"timestamp"`
	ID         string     `json:"id"`
	ChangeType ChangeType `json:"change_type"`
	EntityType EntityType `json:"entity_type"`
	EntityID   string     `json:"entity_id"`
	ParentID   string     `json:"parent_id,omitempty"`
	Payload    []byte     `json:"payload,omitempty"`
	Seq        uint64     `json:"seq"`
}

// NotebookID returns the id of the notebook this change applies to:
// the entity itself for notebook changes, the parent for page changes.
func (c *PendingChange) NotebookID() string {
	if c.EntityType == EntityPage {
		return c.ParentID
	}
	return c.EntityID
}
