package sync

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bep/debounce"
	"github.com/robfig/cron/v3"
)

// Scheduler drives the orchestrator from three sources: периодический таймер,
// дебаунс-запросы от репозитория после локальных правок и push-события
// сервера по WebSocket. Все три источника сходятся в один trigger-канал,
// так что шквал запросов схлопывается в один цикл.
type Scheduler struct {
	svc      *Service
	logger   *slog.Logger
	trigger  chan struct{}
	debounce func(func())
	interval time.Duration
}

// NewScheduler creates a scheduler around the sync service.
// interval - период фонового опроса, debounceWait - пауза после локальной
// правки перед оппортунистическим циклом.
func NewScheduler(svc *Service, interval, debounceWait time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		svc:      svc,
		logger:   logger,
		interval: interval,
		trigger:  make(chan struct{}, 1),
		debounce: debounce.New(debounceWait),
	}
}

// RequestSync schedules an opportunistic cycle after the debounce window.
// Вызывается репозиторием после каждой локальной мутации; серия быстрых
// правок дает один цикл, не очередь.
func (s *Scheduler) RequestSync() {
	s.debounce(s.fire)
}

// SyncNow schedules a cycle immediately, bypassing the debounce window
func (s *Scheduler) SyncNow() {
	s.fire()
}

// fire arms the trigger without blocking; an already armed trigger absorbs
// the request
func (s *Scheduler) fire() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is canceled, executing sync cycles as triggers arrive
func (s *Scheduler) Run(ctx context.Context) error {
	c := cron.New()
	_, err := c.AddFunc("@every "+s.interval.String(), s.fire)
	if err != nil {
		return err
	}
	c.Start()
	defer func() {
		stopCtx := c.Stop()
		<-stopCtx.Done()
	}()

	go s.consumeEvents(ctx)

	// Стартовый цикл сразу после запуска
	s.fire()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.trigger:
			if _, err := s.svc.Sync(ctx); err != nil {
				if errors.Is(err, ErrSyncInFlight) || errors.Is(err, context.Canceled) {
					continue
				}
				// Цикл уже залогировал детали; следующий триггер повторит
				s.logger.Debug("scheduled sync cycle failed", "error", err)
			}
		}
	}
}

// consumeEvents keeps a change-event subscription alive and converts foreign
// events into triggers. Подписка - чистая оптимизация задержки: при обрыве
// ждем interval и подписываемся заново, корректность дает периодический цикл.
func (s *Scheduler) consumeEvents(ctx context.Context) {
	deviceID, err := s.svc.metadata.DeviceID(ctx)
	if err != nil {
		s.logger.Warn("failed to resolve device id, change events disabled", "error", err)
		return
	}

	for {
		if ctx.Err() != nil {
			return
		}

		sub, err := s.svc.remote.Subscribe(ctx)
		if err != nil {
			s.logger.Debug("change event subscription unavailable", "error", err)
			if !sleepCtx(ctx, s.interval) {
				return
			}
			continue
		}

		s.logger.Info("change event subscription established")

		for event := range sub.Events {
			if event.DeviceID == deviceID {
				// Собственные изменения уже в локальном кэше
				continue
			}
			s.logger.Debug("remote change event received",
				"type", string(event.Type), "notebook_id", event.NotebookID)
			s.fire()
		}
		sub.Close()

		if !sleepCtx(ctx, s.interval) {
			return
		}
	}
}

// sleepCtx waits d or until ctx is done; returns false when canceled
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
