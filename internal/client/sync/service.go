// Package sync implements the background synchronization orchestrator: цикл
// Idle → Uploading → Downloading → Merging → Idle, поверх журнала изменений,
// локального кэша и удаленного хранилища.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/iudanet/inkpad/internal/client/remote"
	"github.com/iudanet/inkpad/internal/client/resolve"
	"github.com/iudanet/inkpad/internal/client/storage"
	"github.com/iudanet/inkpad/internal/models"
)

// ErrSyncInFlight is returned to a caller whose request arrived while a
// cycle was already running. Запрос не теряется: текущий цикл завершится
// и сразу выполнится еще один.
var ErrSyncInFlight = errors.New("sync already in flight, queued rerun")

// State is the orchestrator phase, observable for diagnostics
type State string

const (
	StateIdle        State = "idle"
	StateUploading   State = "uploading"
	StateDownloading State = "downloading"
	StateMerging     State = "merging"
	StateFailed      State = "failed"
)

// CollectionPublisher receives the merged collection after a successful
// cycle. Реализуется репозиторием тетрадей.
type CollectionPublisher interface {
	PublishCollection(notebooks []*models.Notebook)
}

// Config tunes the orchestrator
type Config struct {
	// Strategy управляет разрешением конфликтов в фазе merge
	Strategy resolve.Strategy

	// BackoffBase базовая задержка перед повтором временной ошибки
	BackoffBase time.Duration

	// BackoffCap верхняя граница экспоненциальной задержки
	BackoffCap time.Duration

	// MaxRetries количество повторов одной операции загрузки
	MaxRetries uint64

	// Coalesce включает склейку нескольких записей журнала по одной
	// тетради в последнюю перед загрузкой. Безопасно, потому что
	// удаленная запись - идемпотентный upsert по id.
	Coalesce bool
}

// DefaultConfig returns the production configuration
func DefaultConfig() Config {
	return Config{
		Strategy:    resolve.StrategyNewestWins,
		BackoffBase: 500 * time.Millisecond,
		BackoffCap:  30 * time.Second,
		MaxRetries:  4,
		Coalesce:    true,
	}
}

// Result contains sync cycle counters
type Result struct {
	Uploaded   int // записей журнала подтверждено сервером
	Coalesced  int // записей склеено перед загрузкой
	Dropped    int // записей отброшено из-за постоянных ошибок
	Downloaded int // тетрадей получено с сервера
	Merged     int // тетрадей в итоговой коллекции
	Conflicts  int // отложенных конфликтов зафиксировано
}

// Service coordinates upload of ledger entries, download of the remote
// snapshot, conflict resolution and the cache write-back. Only one cycle
// runs at a time; a request arriving mid-cycle schedules a rerun.
type Service struct {
	cache     storage.CacheStore
	ledger    storage.ChangeLedger
	conflicts storage.ConflictStore
	metadata  storage.MetadataStore
	remote    remote.Store
	publisher CollectionPublisher
	logger    *slog.Logger

	statusSubs map[int]chan models.SyncStatus
	cfg        Config

	mu        sync.Mutex
	status    models.SyncStatus
	state     State
	nextSubID int
	inFlight  bool
	rerun     bool
}

// New creates a sync orchestrator
func New(
	cache storage.CacheStore,
	ledger storage.ChangeLedger,
	conflicts storage.ConflictStore,
	metadata storage.MetadataStore,
	remoteStore remote.Store,
	cfg Config,
	logger *slog.Logger,
) *Service {
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = DefaultConfig().BackoffBase
	}
	if cfg.BackoffCap <= 0 {
		cfg.BackoffCap = DefaultConfig().BackoffCap
	}
	if !cfg.Strategy.Valid() {
		cfg.Strategy = resolve.StrategyNewestWins
	}
	return &Service{
		cache:      cache,
		ledger:     ledger,
		conflicts:  conflicts,
		metadata:   metadata,
		remote:     remoteStore,
		cfg:        cfg,
		logger:     logger,
		state:      StateIdle,
		statusSubs: make(map[int]chan models.SyncStatus),
	}
}

// SetPublisher wires the consumer of merged collections.
// Разрывает цикл конструирования репозиторий <-> оркестратор.
func (s *Service) SetPublisher(p CollectionPublisher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publisher = p
}

// Status returns a snapshot of the current sync status
func (s *Service) Status() models.SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// State returns the current orchestrator phase
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// WatchStatus subscribes to status updates. The returned cancel func must
// be called to release the subscription. Updates are dropped, not blocked
// on, when the subscriber lags.
func (s *Service) WatchStatus() (<-chan models.SyncStatus, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	ch := make(chan models.SyncStatus, 16)
	s.statusSubs[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.statusSubs[id]; ok {
			delete(s.statusSubs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// PendingCount returns the number of ledger entries awaiting upload
func (s *Service) PendingCount(ctx context.Context) (int, error) {
	entries, err := s.ledger.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending changes: %w", err)
	}
	return len(entries), nil
}

// ListConflicts returns unresolved manual conflicts
func (s *Service) ListConflicts(ctx context.Context) ([]*models.SyncConflict, error) {
	return s.conflicts.ListConflicts(ctx)
}

// ResolveConflict applies the user's decision for a deferred conflict.
// keepLocal фиксирует локальный snapshot в журнале для перезаливки;
// иначе серверная версия записывается в кэш. Запись конфликта удаляется
// в обоих случаях.
func (s *Service) ResolveConflict(ctx context.Context, entityID string, keepLocal bool) error {
	conflict, err := s.conflicts.GetConflict(ctx, entityID)
	if err != nil {
		return fmt.Errorf("failed to get conflict: %w", err)
	}

	if keepLocal {
		payload, err := json.Marshal(conflict.Local)
		if err != nil {
			return fmt.Errorf("failed to marshal local snapshot: %w", err)
		}
		change := &models.PendingChange{
			ID:         uuid.New().String(),
			ChangeType: models.ChangeUpdate,
			EntityType: models.EntityNotebook,
			EntityID:   entityID,
			Payload:    payload,
			Timestamp:  time.Now(),
		}
		if err := s.ledger.Append(ctx, change); err != nil {
			return fmt.Errorf("failed to record re-upload change: %w", err)
		}
	} else {
		notebooks, err := s.cache.Load(ctx)
		if err != nil {
			return fmt.Errorf("failed to load local cache: %w", err)
		}
		replaced := false
		for i, nb := range notebooks {
			if nb.ID == entityID {
				notebooks[i] = conflict.Remote.Clone()
				replaced = true
				break
			}
		}
		if !replaced {
			notebooks = append(notebooks, conflict.Remote.Clone())
		}
		if err := s.cache.Save(ctx, notebooks); err != nil {
			return fmt.Errorf("failed to save resolved collection: %w", err)
		}

		s.mu.Lock()
		publisher := s.publisher
		s.mu.Unlock()
		if publisher != nil {
			publisher.PublishCollection(notebooks)
		}
	}

	if err := s.conflicts.DeleteConflict(ctx, entityID); err != nil {
		return fmt.Errorf("failed to delete conflict record: %w", err)
	}

	s.logger.Info("conflict resolved",
		"entity_id", entityID, "kept_local", keepLocal)
	return nil
}

// Sync runs a full cycle. If a cycle is already in flight the request is
// coalesced: возвращается ErrSyncInFlight, а текущий Sync выполнит
// дополнительный цикл после завершения идущего.
func (s *Service) Sync(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	if s.inFlight {
		s.rerun = true
		s.mu.Unlock()
		return nil, ErrSyncInFlight
	}
	s.inFlight = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	for {
		result, err := s.runCycle(ctx)

		s.mu.Lock()
		again := s.rerun
		s.rerun = false
		s.mu.Unlock()

		if err != nil || !again || ctx.Err() != nil {
			return result, err
		}
		s.logger.Debug("coalesced sync request, running extra cycle")
	}
}

// runCycle executes one Upload → Download → Merge pass
func (s *Service) runCycle(ctx context.Context) (*Result, error) {
	started := time.Now()
	result := &Result{}

	s.setSyncing(true)
	s.logger.Info("sync cycle started")

	// Фаза 1: загрузка журнала на сервер
	s.setState(StateUploading)
	if err := s.uploadPending(ctx, result); err != nil {
		s.fail(err)
		return result, err
	}

	// Фаза 2: полный снимок с сервера
	s.setState(StateDownloading)
	if err := ctx.Err(); err != nil {
		s.fail(err)
		return result, err
	}
	remoteNotebooks, err := s.remote.ListAll(ctx)
	if err != nil {
		s.fail(fmt.Errorf("failed to list remote notebooks: %w", err))
		return result, err
	}
	result.Downloaded = len(remoteNotebooks)

	// Фаза 3: merge и атомарная запись в кэш
	s.setState(StateMerging)
	if err := s.mergeAndCommit(ctx, remoteNotebooks, result); err != nil {
		s.fail(err)
		return result, err
	}

	s.finish(result)
	s.logger.Info("sync cycle completed",
		"uploaded", result.Uploaded,
		"coalesced", result.Coalesced,
		"dropped", result.Dropped,
		"downloaded", result.Downloaded,
		"merged", result.Merged,
		"conflicts", result.Conflicts,
		"duration_ms", time.Since(started).Milliseconds())

	return result, nil
}

// uploadItem is a ledger entry plus the ids of entries it superseded
type uploadItem struct {
	change     *models.PendingChange
	superseded []string
}

// uploadPending pushes ledger entries in insertion order.
// Transient failures abort the cycle after retries; permanent failures drop
// the offending entry and continue.
func (s *Service) uploadPending(ctx context.Context, result *Result) error {
	entries, err := s.ledger.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list pending changes: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	items := s.planUpload(entries)
	result.Coalesced = len(entries) - len(items)

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := s.uploadWithRetry(ctx, item.change)
		switch {
		case err == nil:
			// Подтверждено - записи можно убирать из журнала
			if err := s.removeAcked(ctx, item); err != nil {
				return err
			}
			result.Uploaded++

		case remote.IsPermanent(err):
			// Изменение невозможно починить автоматически: отбрасываем
			// и поднимаем ошибку до пользователя
			s.logger.Error("dropping unrecoverable pending change",
				"change_id", item.change.ID,
				"change_type", item.change.ChangeType,
				"entity_id", item.change.EntityID,
				"error", err)
			if err := s.removeAcked(ctx, item); err != nil {
				return err
			}
			result.Dropped++
			s.surfaceError(models.ErrorKindPermanent, err)

		default:
			// Временная ошибка после всех повторов - прерываем цикл,
			// оставшиеся записи журнала дождутся следующего
			return err
		}
	}

	return nil
}

// planUpload optionally coalesces multiple entries per notebook into the
// latest one. Порядок оставшихся записей соответствует порядку вставки.
func (s *Service) planUpload(entries []*models.PendingChange) []uploadItem {
	if !s.cfg.Coalesce {
		items := make([]uploadItem, len(entries))
		for i, e := range entries {
			items[i] = uploadItem{change: e}
		}
		return items
	}

	// Последняя запись по каждой тетради поглощает предыдущие: delete
	// записывается в журнал после правок, так что и delete-доминирование
	// получается само собой
	latest := make(map[string]int)
	for i, e := range entries {
		latest[e.NotebookID()] = i
	}

	var items []uploadItem
	superseded := make(map[string][]string)
	for i, e := range entries {
		nbID := e.NotebookID()
		if latest[nbID] != i {
			superseded[nbID] = append(superseded[nbID], e.ID)
			continue
		}
		items = append(items, uploadItem{change: e, superseded: superseded[nbID]})
	}
	return items
}

// uploadWithRetry executes one remote operation with exponential backoff.
// Повторяются только временные ошибки.
func (s *Service) uploadWithRetry(ctx context.Context, change *models.PendingChange) error {
	backoff := retry.NewExponential(s.cfg.BackoffBase)
	backoff = retry.WithCappedDuration(s.cfg.BackoffCap, backoff)
	backoff = retry.WithMaxRetries(s.cfg.MaxRetries, backoff)

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := s.uploadOne(ctx, change)
		if remote.IsTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// uploadOne maps a ledger entry onto the remote store contract.
// Удаление тетради уходит как Delete; все остальное, включая страничные
// правки, - идемпотентный Upsert snapshot'а тетради из payload.
func (s *Service) uploadOne(ctx context.Context, change *models.PendingChange) error {
	if change.ChangeType == models.ChangeDelete && change.EntityType == models.EntityNotebook {
		_, err := s.remote.Delete(ctx, change.EntityID)
		return err
	}

	notebook, err := decodeSnapshot(change.Payload)
	if err != nil {
		// Нечитаемый payload не починить повтором
		return &remote.Error{Op: "decode snapshot", Kind: remote.KindPermanent, Err: err}
	}

	_, err = s.remote.Upsert(ctx, notebook)
	return err
}

// removeAcked deletes the confirmed entry and everything it superseded
func (s *Service) removeAcked(ctx context.Context, item uploadItem) error {
	ids := append([]string{item.change.ID}, item.superseded...)
	for _, id := range ids {
		if err := s.ledger.Remove(ctx, id); err != nil && !errors.Is(err, storage.ErrChangeNotFound) {
			return fmt.Errorf("failed to remove acked change %s: %w", id, err)
		}
	}
	return nil
}

// mergeAndCommit resolves every entity and writes the merged collection.
// Merge атомарен в рамках цикла: при отмене или ошибке кэш не трогается.
func (s *Service) mergeAndCommit(ctx context.Context, remoteNotebooks []*models.Notebook, result *Result) error {
	local, err := s.cache.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load local cache: %w", err)
	}

	// Тетради с незафиксированными create/update остаются локальными
	// даже если сервер их не отдал
	pending, err := s.ledger.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list pending changes: %w", err)
	}
	pendingByNotebook := make(map[string]bool, len(pending))
	for _, p := range pending {
		pendingByNotebook[p.NotebookID()] = true
	}

	remoteByID := make(map[string]*models.Notebook, len(remoteNotebooks))
	for _, nb := range remoteNotebooks {
		remoteByID[nb.ID] = nb
	}
	localByID := make(map[string]*models.Notebook, len(local))
	for _, nb := range local {
		localByID[nb.ID] = nb
	}

	var merged []*models.Notebook
	var newConflicts []*models.SyncConflict

	// Сначала локальный порядок, потом новые сущности с сервера
	for _, nb := range local {
		res := resolve.Resolve(nb, remoteByID[nb.ID], pendingByNotebook[nb.ID], s.cfg.Strategy)
		switch res.Outcome {
		case resolve.OutcomeKeepLocal, resolve.OutcomeKeepRemote:
			merged = append(merged, res.Notebook)
		case resolve.OutcomeConflict:
			merged = append(merged, res.Notebook)
			newConflicts = append(newConflicts, res.Conflict)
		case resolve.OutcomeDropLocal:
			// Удалено с другого устройства
		}
	}
	for _, nb := range remoteNotebooks {
		if _, exists := localByID[nb.ID]; exists {
			continue
		}
		res := resolve.Resolve(nil, nb, pendingByNotebook[nb.ID], s.cfg.Strategy)
		if res.Outcome == resolve.OutcomeKeepRemote {
			merged = append(merged, res.Notebook)
		}
	}

	// Точка невозврата: до нее отмена не оставляет частичных результатов
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.cache.Save(ctx, merged); err != nil {
		return fmt.Errorf("failed to save merged collection: %w", err)
	}

	for _, conflict := range newConflicts {
		if err := s.conflicts.SaveConflict(ctx, conflict); err != nil {
			s.logger.Error("failed to persist conflict record",
				"entity_id", conflict.EntityID, "error", err)
			continue
		}
		s.logger.Warn("manual conflict recorded, awaiting user decision",
			"entity_id", conflict.EntityID,
			"local_modified_at", conflict.LocalModifiedAt,
			"remote_modified_at", conflict.RemoteModifiedAt)
	}

	result.Merged = len(merged)
	result.Conflicts = len(newConflicts)

	s.mu.Lock()
	publisher := s.publisher
	s.mu.Unlock()
	if publisher != nil {
		publisher.PublishCollection(merged)
	}

	return nil
}

// setSyncing flips the IsSyncing flag and notifies observers
func (s *Service) setSyncing(syncing bool) {
	s.mu.Lock()
	s.status.IsSyncing = syncing
	status := s.status
	subs := s.snapshotSubsLocked()
	s.mu.Unlock()
	notify(subs, status)
}

// setState records the current phase
func (s *Service) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// surfaceError publishes a user-visible error without stopping the cycle
func (s *Service) surfaceError(kind models.ErrorKind, err error) {
	s.mu.Lock()
	s.status.LastError = kind
	s.status.LastErrorMsg = err.Error()
	status := s.status
	subs := s.snapshotSubsLocked()
	s.mu.Unlock()
	notify(subs, status)
}

// fail converts any cycle error into SyncStatus. Failed - переходное
// состояние: сразу возвращаемся в Idle, следующий триггер повторит цикл.
func (s *Service) fail(err error) {
	kind := models.ErrorKindTransient
	if remote.IsPermanent(err) {
		kind = models.ErrorKindPermanent
	}

	s.logger.Warn("sync cycle failed", "kind", string(kind), "error", err)

	s.mu.Lock()
	s.state = StateFailed
	s.status.IsSyncing = false
	s.status.LastError = kind
	s.status.LastErrorMsg = err.Error()
	status := s.status
	subs := s.snapshotSubsLocked()
	s.state = StateIdle
	s.mu.Unlock()
	notify(subs, status)
}

// finish records a successful cycle
func (s *Service) finish(result *Result) {
	now := time.Now()
	if err := s.metadata.SaveLastSyncTime(context.Background(), now); err != nil {
		s.logger.Warn("failed to persist last sync time", "error", err)
	}

	s.mu.Lock()
	s.state = StateIdle
	s.status.IsSyncing = false
	s.status.LastSyncTime = now
	if result.Dropped == 0 {
		// Ошибка от отброшенных изменений переживает успешный цикл,
		// пока пользователь ее не увидел
		s.status.LastError = ""
		s.status.LastErrorMsg = ""
	}
	status := s.status
	subs := s.snapshotSubsLocked()
	s.mu.Unlock()
	notify(subs, status)
}

// snapshotSubsLocked copies subscriber channels; caller holds s.mu
func (s *Service) snapshotSubsLocked() []chan models.SyncStatus {
	subs := make([]chan models.SyncStatus, 0, len(s.statusSubs))
	for _, ch := range s.statusSubs {
		subs = append(subs, ch)
	}
	return subs
}

// notify delivers a status update without blocking on slow subscribers
func notify(subs []chan models.SyncStatus, status models.SyncStatus) {
	for _, ch := range subs {
		select {
		case ch <- status:
		default:
		}
	}
}

// decodeSnapshot unmarshals a notebook snapshot from a ledger payload
func decodeSnapshot(payload []byte) (*models.Notebook, error) {
	if len(payload) == 0 {
		return nil, errors.New("empty snapshot payload")
	}
	var nb models.Notebook
	if err := json.Unmarshal(payload, &nb); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &nb, nil
}
