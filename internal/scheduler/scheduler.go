// Package scheduler orchestrates the location update pipeline on a fixed
// daily schedule and on demand.
//
// The scheduler owns the only mutable process-wide state in the service. One
// goroutine per configured slot computes the slot's next fire instant, arms a
// single-shot timer, runs the pipeline on fire, and re-arms from the same
// rule, so each slot is a self-renewing daily cycle that cannot drift with
// pipeline execution time. Scheduled fires and ForceUpdate share one
// single-flight pipeline: concurrent callers observe the in-flight run's
// outcome instead of racing it.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/nearspot/locationd/internal/domain"
	"github.com/nearspot/locationd/internal/observability"
)

// Update is one delivered pipeline outcome: a snapshot or a terminal error,
// never both.
type Update struct {
	Snapshot *domain.LocationSnapshot
	Err      error
}

// SlotTime pairs a slot label with its next fire instant.
type SlotTime struct {
	Label    string    `json:"label"`
	NextFire time.Time `json:"next_fire"`
}

// subscriberBuffer absorbs short consumer stalls; beyond it, updates for
// that subscriber are dropped rather than blocking delivery.
const subscriberBuffer = 8

// Config wires the scheduler's collaborators. Position, Resolver, Snapshots,
// History, Logger, and Metrics are required; the rest default.
type Config struct {
	Position  domain.PositionSource
	Resolver  domain.CityResolver
	Snapshots domain.SnapshotStore
	History   domain.HistoryStore

	Slots           []domain.ScheduleSlot // default domain.DefaultSlots()
	FreshnessWindow time.Duration         // default domain.DefaultFreshnessWindow
	Clock           clockwork.Clock       // default real clock

	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// Scheduler maintains the freshness-bounded location snapshot for one
// subject. Start/Stop form the sole lifecycle boundary.
type Scheduler struct {
	position  domain.PositionSource
	resolver  domain.CityResolver
	snapshots domain.SnapshotStore
	history   domain.HistoryStore

	slots     []domain.ScheduleSlot
	freshness time.Duration
	clock     clockwork.Clock

	logger  *slog.Logger
	metrics *observability.Metrics

	flight singleflight.Group
	ready  atomic.Bool

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	subs    map[chan Update]struct{}
}

// New creates a Scheduler. It does not arm any timers; call Start.
func New(cfg Config) *Scheduler {
	if cfg.Slots == nil {
		cfg.Slots = domain.DefaultSlots()
	}
	if cfg.FreshnessWindow <= 0 {
		cfg.FreshnessWindow = domain.DefaultFreshnessWindow
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return &Scheduler{
		position:  cfg.Position,
		resolver:  cfg.Resolver,
		snapshots: cfg.Snapshots,
		history:   cfg.History,
		slots:     cfg.Slots,
		freshness: cfg.FreshnessWindow,
		clock:     cfg.Clock,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		subs:      make(map[chan Update]struct{}),
	}
}

// Start arms one timer set for the configured slots. Calling Start on an
// already-active scheduler is a no-op: timers are never double-armed.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Debug("scheduler already active; ignoring start")
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.running = true
	s.metrics.SchedulerRunning.Set(1)

	for _, slot := range s.slots {
		s.wg.Add(1)
		go s.runSlot(ctx, slot)
	}

	s.logger.Info("scheduler started", "slots", len(s.slots), "freshness_window", s.freshness)
	return nil
}

// Stop cancels all armed timers and returns the scheduler to idle. An
// in-flight pipeline run completes and delivers its outcome once, but its
// slot does not re-arm.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	s.metrics.SchedulerRunning.Set(0)
	s.logger.Info("scheduler stopped")
}

// runSlot is the per-slot state machine: armed → fired → re-armed, daily.
func (s *Scheduler) runSlot(ctx context.Context, slot domain.ScheduleSlot) {
	defer s.wg.Done()

	for {
		fire := domain.NextOccurrence(s.clock.Now(), slot)
		timer := s.clock.NewTimer(fire.Sub(s.clock.Now()))
		s.logger.Debug("slot armed", "slot", slot.Label, "next_fire", fire)

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.Chan():
		}

		// Detached from the slot context: a Stop racing the fire must not
		// suppress a completed result, only prevent the re-arm below.
		if _, err := s.runPipeline(context.WithoutCancel(ctx), "scheduled"); err != nil {
			s.logger.Warn("scheduled update failed", "slot", slot.Label, "error", err)
		}

		if ctx.Err() != nil {
			return
		}
	}
}

// ForceUpdate runs the acquisition pipeline immediately and synchronously.
// It shares the outcome of any in-flight run and never touches slot timers.
func (s *Scheduler) ForceUpdate(ctx context.Context) (domain.LocationSnapshot, error) {
	return s.runPipeline(ctx, "forced")
}

// runPipeline funnels every trigger through the single-flight group so that
// at most one pipeline execution is authoritative at a time.
func (s *Scheduler) runPipeline(ctx context.Context, trigger string) (domain.LocationSnapshot, error) {
	v, err, shared := s.flight.Do("update", func() (any, error) {
		return s.update(ctx, trigger)
	})
	if shared {
		s.logger.Debug("shared in-flight update result", "trigger", trigger)
	}
	if err != nil {
		return domain.LocationSnapshot{}, err
	}
	return v.(domain.LocationSnapshot), nil
}

// update is the acquisition pipeline: live fix → geocode, else fresh cache,
// else terminal error. Exactly one outcome is recorded and delivered.
func (s *Scheduler) update(ctx context.Context, trigger string) (domain.LocationSnapshot, error) {
	start := time.Now()
	defer func() {
		s.metrics.UpdateDuration.Observe(time.Since(start).Seconds())
	}()

	coords, err := s.position.Acquire(ctx, domain.AcquireScheduled)
	if err == nil {
		city := s.resolver.Resolve(ctx, coords)
		now := s.clock.Now()
		snapshot := domain.LocationSnapshot{
			Coordinates: &coords,
			City:        city,
			Timestamp:   now,
			AcquiredAt:  now,
			Source:      domain.SourceLive,
		}
		s.recordSuccess(snapshot)
		s.metrics.UpdatesTotal.WithLabelValues(trigger, "live").Inc()
		s.logger.Info("location updated",
			"trigger", trigger,
			"city", city.City,
			"country", city.Country,
			"accuracy", city.Accuracy,
			"source", domain.SourceLive,
		)
		return snapshot, nil
	}

	s.logger.Warn("position acquisition failed, trying cache", "trigger", trigger, "error", err)

	cached, ok, getErr := s.snapshots.Get()
	if getErr != nil {
		s.logger.Warn("snapshot cache read failed", "error", getErr)
	}

	now := s.clock.Now()
	if ok && domain.IsFresh(cached, now, s.freshness) {
		snapshot := cached
		// Deliberate re-stamp: freshness shown downstream means "last
		// confirmed", not "last acquired". AcquiredAt keeps the fix time.
		snapshot.Timestamp = now
		snapshot.Source = domain.SourceCached
		s.recordSuccess(snapshot)
		s.metrics.UpdatesTotal.WithLabelValues(trigger, "cached").Inc()
		s.metrics.CacheFallbacks.Inc()
		s.logger.Info("location served from cache",
			"trigger", trigger,
			"city", snapshot.City.City,
			"acquired_at", snapshot.AcquiredAt,
		)
		return snapshot, nil
	}

	terminal := fmt.Errorf("%w: %w", domain.ErrNoFreshFallback, err)
	if appendErr := s.history.Append(domain.UpdateRecord{
		Timestamp:    now,
		Outcome:      domain.OutcomeFailure,
		ErrorMessage: terminal.Error(),
	}); appendErr != nil {
		s.logger.Warn("history append failed", "error", appendErr)
	}
	s.metrics.UpdatesTotal.WithLabelValues(trigger, "error").Inc()
	s.publish(Update{Err: terminal})
	return domain.LocationSnapshot{}, terminal
}

// recordSuccess persists the snapshot and history record and delivers the
// update. Store failures degrade to warnings: a resolved location is still a
// success for the caller.
func (s *Scheduler) recordSuccess(snapshot domain.LocationSnapshot) {
	if err := s.snapshots.Put(snapshot); err != nil {
		s.logger.Warn("snapshot cache write failed", "error", err)
	}
	if err := s.history.Append(domain.UpdateRecord{
		Timestamp: snapshot.Timestamp,
		Outcome:   domain.OutcomeSuccess,
		Snapshot:  &snapshot,
	}); err != nil {
		s.logger.Warn("history append failed", "error", err)
	}
	s.metrics.LastSuccessTime.Set(float64(snapshot.Timestamp.Unix()))
	s.ready.Store(true)
	s.publish(Update{Snapshot: &snapshot})
}

// Subscribe registers an update channel. Deliveries are sequential; a
// subscriber that stops draining loses updates instead of stalling the
// pipeline.
func (s *Scheduler) Subscribe() chan Update {
	ch := make(chan Update, subscriberBuffer)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a channel returned by Subscribe.
func (s *Scheduler) Unsubscribe(ch chan Update) {
	s.mu.Lock()
	if _, ok := s.subs[ch]; ok {
		delete(s.subs, ch)
		close(ch)
	}
	s.mu.Unlock()
}

// publish delivers one outcome to every subscriber. Called only from inside
// the single-flight execution, so deliveries never interleave.
func (s *Scheduler) publish(u Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- u:
		default:
			s.logger.Warn("subscriber lagging, dropping update")
		}
	}
}

// NextUpdateTimes returns every slot's next fire instant, soonest first.
func (s *Scheduler) NextUpdateTimes() []SlotTime {
	now := s.clock.Now()
	times := make([]SlotTime, 0, len(s.slots))
	for _, slot := range s.slots {
		times = append(times, SlotTime{Label: slot.Label, NextFire: domain.NextOccurrence(now, slot)})
	}
	sort.Slice(times, func(i, j int) bool { return times[i].NextFire.Before(times[j].NextFire) })
	return times
}

// Stats derives update statistics from the history ring.
func (s *Scheduler) Stats() (domain.UpdateStats, error) {
	records, err := s.history.Recent(domain.HistoryLimit)
	if err != nil {
		return domain.UpdateStats{}, fmt.Errorf("read history: %w", err)
	}
	return domain.ComputeStats(records), nil
}

// History returns up to n update records, most recent first.
func (s *Scheduler) History(n int) ([]domain.UpdateRecord, error) {
	return s.history.Recent(n)
}

// CurrentBestLocation returns the cached snapshot regardless of freshness,
// falling back to the most recent successful history record. The cache wins
// because it is the canonical last-known value; history exists for
// diagnostics.
func (s *Scheduler) CurrentBestLocation() (domain.LocationSnapshot, bool) {
	cached, ok, err := s.snapshots.Get()
	if err != nil {
		s.logger.Warn("snapshot cache read failed", "error", err)
	} else if ok {
		return cached, true
	}

	records, err := s.history.Recent(domain.HistoryLimit)
	if err != nil {
		s.logger.Warn("history read failed", "error", err)
		return domain.LocationSnapshot{}, false
	}
	for _, r := range records {
		if r.Outcome == domain.OutcomeSuccess && r.Snapshot != nil {
			return *r.Snapshot, true
		}
	}
	return domain.LocationSnapshot{}, false
}

// IsFresh reports whether the snapshot is inside this scheduler's freshness
// window right now.
func (s *Scheduler) IsFresh(snapshot domain.LocationSnapshot) bool {
	return domain.IsFresh(snapshot, s.clock.Now(), s.freshness)
}

// CheckReadiness returns nil once at least one pipeline run has produced a
// snapshot.
func (s *Scheduler) CheckReadiness(_ context.Context) error {
	if !s.ready.Load() {
		return errors.New("no location update has completed yet")
	}
	return nil
}
