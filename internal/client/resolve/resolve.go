// Package resolve implements the conflict resolution rules applied during
// the merge phase of a sync cycle. Resolution is entity-scoped: побеждает
// целый snapshot тетради вместе со списком страниц, пер-страничного мержа
// нет намеренно.
package resolve

import (
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/inkpad/internal/models"
)

// Strategy selects how a local/remote pair is resolved
type Strategy string

const (
	// StrategyLocalWins локальная версия всегда побеждает
	StrategyLocalWins Strategy = "local_wins"

	// StrategyRemoteWins серверная версия всегда побеждает
	StrategyRemoteWins Strategy = "remote_wins"

	// StrategyNewestWins побеждает версия с большим modifiedAt;
	// при равенстве - серверная, чтобы устройства сходились без координации
	StrategyNewestWins Strategy = "newest_wins"

	// StrategyManual автоматического решения нет: фиксируется SyncConflict,
	// сущность остается в локальном состоянии до решения пользователя
	StrategyManual Strategy = "manual"
)

// Valid reports whether the strategy is one of the known values
func (s Strategy) Valid() bool {
	switch s {
	case StrategyLocalWins, StrategyRemoteWins, StrategyNewestWins, StrategyManual:
		return true
	}
	return false
}

// Outcome is the decision for one entity
type Outcome int

const (
	// OutcomeKeepLocal локальный snapshot попадает в итоговую коллекцию
	OutcomeKeepLocal Outcome = iota

	// OutcomeKeepRemote серверный snapshot попадает в итоговую коллекцию
	OutcomeKeepRemote

	// OutcomeDropLocal сущность удаляется локально (remote tombstone)
	OutcomeDropLocal

	// OutcomeConflict решение отложено; сущность остается локальной,
	// Conflict содержит запись для пользователя
	OutcomeConflict
)

// Resolution is the result of resolving one local/remote pair
type Resolution struct {
	// Notebook is the winning snapshot; nil for OutcomeDropLocal
	Notebook *models.Notebook

	// Conflict is set only for OutcomeConflict
	Conflict *models.SyncConflict

	Outcome Outcome
}

// Resolve compares the local and remote version of one notebook and decides
// which snapshot survives. Pure decision logic: никакого I/O, вызывающая
// сторона сама применяет результат к кэшу и журналу.
//
// hasPending reports whether the ledger still holds a Create/Update entry
// for this entity. It disambiguates the local-only case: с висящей записью
// журнала сущность просто еще не загружена на сервер; без нее отсутствие
// на сервере означает удаление с другого устройства.
func Resolve(local, remote *models.Notebook, hasPending bool, strategy Strategy) Resolution {
	switch {
	case local == nil && remote == nil:
		// Нечего решать
		return Resolution{Outcome: OutcomeDropLocal}

	case local == nil:
		// Новая сущность с другого устройства - принимаем
		return Resolution{Outcome: OutcomeKeepRemote, Notebook: remote}

	case remote == nil:
		if hasPending {
			// Еще не загружено - оставляем, upload довезет
			return Resolution{Outcome: OutcomeKeepLocal, Notebook: local}
		}
		// Неявный tombstone: сервер сущность больше не отдает
		return Resolution{Outcome: OutcomeDropLocal}
	}

	// Обе стороны существуют - применяем стратегию
	switch strategy {
	case StrategyLocalWins:
		return Resolution{Outcome: OutcomeKeepLocal, Notebook: local}

	case StrategyRemoteWins:
		return Resolution{Outcome: OutcomeKeepRemote, Notebook: remote}

	case StrategyManual:
		if local.ModifiedAt.Equal(remote.ModifiedAt) {
			// Версии неотличимы по времени - конфликта нет
			return Resolution{Outcome: OutcomeKeepLocal, Notebook: local}
		}
		return Resolution{
			Outcome:  OutcomeConflict,
			Notebook: local,
			Conflict: newConflict(local, remote),
		}

	default:
		// NewestWins, а также дефолт для неизвестной стратегии
		if local.ModifiedAt.After(remote.ModifiedAt) {
			return Resolution{Outcome: OutcomeKeepLocal, Notebook: local}
		}
		// Тай-брейк в пользу сервера гарантирует сходимость устройств
		return Resolution{Outcome: OutcomeKeepRemote, Notebook: remote}
	}
}

// newConflict строит запись отложенного конфликта
func newConflict(local, remote *models.Notebook) *models.SyncConflict {
	return &models.SyncConflict{
		ID:               uuid.New().String(),
		EntityID:         local.ID,
		Local:            local.Clone(),
		Remote:           remote.Clone(),
		LocalModifiedAt:  local.ModifiedAt,
		RemoteModifiedAt: remote.ModifiedAt,
		DetectedAt:       time.Now(),
	}
}
