package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/example/slotwatch/internal/common"
	"github.com/example/slotwatch/internal/config"
	"github.com/example/slotwatch/internal/dedup"
	"github.com/example/slotwatch/internal/differ"
	"github.com/example/slotwatch/internal/models"
	"github.com/rs/zerolog"
)

// SnapshotSource is the fetch collaborator consumed by the controller.
type SnapshotSource interface {
	Start() error
	Stop()
	FetchClassifiedSnapshot(ctx context.Context, filters models.SlotFilters) (*models.CheckResult, error)
}

// NotificationDispatcher is the notification collaborator.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, appointments []models.Appointment) *models.DispatchResult
}

// StateStore is the persistence collaborator. Loads never fail; missing or
// corrupt state yields empty values.
type StateStore interface {
	SaveSnapshot(appointments []models.Appointment) error
	LoadSnapshot() []models.Appointment
	SaveHistory(history models.ItemHistory) error
	LoadHistory() models.ItemHistory
	SaveLedger(ledger models.NotifiedLedger) error
	LoadLedger() models.NotifiedLedger
}

// SessionRecorder persists session lifecycle rows. Optional; nil disables.
type SessionRecorder interface {
	RecordSessionStart(session *models.MonitorSession) error
	FinalizeSession(session *models.MonitorSession) error
}

// CycleGate is consulted before each cycle; a false result skips it.
type CycleGate interface {
	AllowCycle() bool
}

// Preflight verifies the portal is reachable during Start. Optional; nil
// disables the check.
type Preflight interface {
	CheckReachable(url string) error
}

// Controller owns the monitor lifecycle: the state machine, the single
// check timer, and the sequencing of one cycle's fetch, diff, dedup,
// dispatch, and persistence. All mutable cycle state is written from the
// run goroutine only.
type Controller struct {
	cfg        config.GlobalConfig
	source     SnapshotSource
	dispatcher NotificationDispatcher
	store      StateStore
	sessions   SessionRecorder
	gate       CycleGate
	preflight  Preflight

	differ *differ.SlotDiffer
	engine *dedup.Engine
	bus    *eventBus
	logger zerolog.Logger

	mu           sync.Mutex
	state        State
	session      *models.MonitorSession
	lastSnapshot []models.Appointment
	cycleCount   int

	runCtx    context.Context
	runCancel context.CancelFunc
	runDone   chan struct{}
}

// ControllerOption customizes optional collaborators.
type ControllerOption func(*Controller)

// WithSessionRecorder enables session history persistence.
func WithSessionRecorder(recorder SessionRecorder) ControllerOption {
	return func(c *Controller) { c.sessions = recorder }
}

// WithCycleGate enables the pre-cycle resource check.
func WithCycleGate(gate CycleGate) ControllerOption {
	return func(c *Controller) { c.gate = gate }
}

// WithPreflight enables the start-up reachability probe.
func WithPreflight(preflight Preflight) ControllerOption {
	return func(c *Controller) { c.preflight = preflight }
}

// NewController wires the controller. Persisted dedup state is loaded here
// so a restart does not re-notify slots already alerted on.
func NewController(
	cfg config.GlobalConfig,
	source SnapshotSource,
	dispatcher NotificationDispatcher,
	store StateStore,
	logger zerolog.Logger,
	opts ...ControllerOption,
) *Controller {
	c := &Controller{
		cfg:          cfg,
		source:       source,
		dispatcher:   dispatcher,
		store:        store,
		differ:       differ.NewSlotDiffer(logger),
		engine:       dedup.NewEngine(store.LoadHistory(), store.LoadLedger(), logger),
		bus:          newEventBus(logger),
		logger:       logger.With().Str("component", "MonitorController").Logger(),
		state:        StateStopped,
		lastSnapshot: store.LoadSnapshot(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Events returns the controller's ordered event stream. The channel closes
// when the controller stops; a restarted controller publishes into a fresh
// stream, so consumers call Events again after Start.
func (c *Controller) Events() <-chan Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bus.events
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start initializes collaborators and begins scheduling checks. It rejects
// any state but Stopped. Initialization failure transitions to Error and
// returns the cause.
func (c *Controller) Start() error {
	c.mu.Lock()
	if c.state != StateStopped {
		state := c.state
		c.mu.Unlock()
		return common.NewError("monitor already running (state %s)", state)
	}
	// A previous session closed its bus on stop; the new session gets a
	// fresh one. No run goroutine exists here, so the swap is safe.
	if c.bus.isClosed() {
		c.bus = c.bus.fresh()
	}
	c.setStateLocked(StateStarting)
	c.mu.Unlock()

	if err := c.initialize(); err != nil {
		c.mu.Lock()
		c.setStateLocked(StateError)
		c.mu.Unlock()
		c.bus.publish(Event{Type: EventError, State: StateError, Err: err})
		c.bus.close()
		return err
	}

	c.mu.Lock()
	c.session = models.NewMonitorSession(c.configSnapshot())
	c.runCtx, c.runCancel = context.WithCancel(context.Background())
	c.runDone = make(chan struct{})
	c.cycleCount = 0
	c.setStateLocked(StateRunning)
	session := c.session
	c.mu.Unlock()

	if c.sessions != nil {
		if err := c.sessions.RecordSessionStart(session); err != nil {
			c.logger.Warn().Err(err).Msg("Session start not recorded")
		}
	}

	go c.run()
	c.logger.Info().Str("session_id", session.ID).Msg("Monitor started")
	return nil
}

func (c *Controller) initialize() error {
	if c.preflight != nil {
		if err := c.preflight.CheckReachable(c.cfg.FetcherConfig.SourceURL); err != nil {
			return common.WrapError(err, "portal preflight failed")
		}
	}
	if err := c.source.Start(); err != nil {
		return common.WrapError(err, "fetch collaborator initialization failed")
	}
	return nil
}

// Pause suspends scheduling. Only valid from Running; an in-flight cycle
// finishes.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateRunning {
		return common.NewError("monitor not running (state %s)", c.state)
	}
	c.setStateLocked(StatePaused)
	return nil
}

// Resume restarts scheduling after a Pause.
func (c *Controller) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StatePaused {
		return common.NewError("monitor not paused (state %s)", c.state)
	}
	c.setStateLocked(StateRunning)
	return nil
}

// Stop cancels scheduling, waits for any in-flight cycle, releases the
// fetch collaborator, and finalizes the session. Idempotent: stopping a
// stopped controller is a no-op. Stopping during Start's initialization is
// rejected; callers retry once Start resolves.
func (c *Controller) Stop() error {
	c.mu.Lock()
	switch c.state {
	case StateStopped, StateError:
		c.mu.Unlock()
		return nil
	case StateStarting:
		c.mu.Unlock()
		return common.NewError("monitor is starting, stop it after start resolves")
	case StateStopping:
		done := c.runDone
		c.mu.Unlock()
		if done != nil {
			<-done
		}
		return nil
	}
	c.setStateLocked(StateStopping)
	cancel := c.runCancel
	done := c.runDone
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	c.shutdown()
	return nil
}

// shutdown runs after the cycle loop has exited.
func (c *Controller) shutdown() {
	c.source.Stop()
	c.persistState()

	c.mu.Lock()
	session := c.session
	c.session = nil
	c.setStateLocked(StateStopped)
	c.mu.Unlock()

	if session != nil {
		session.Finalize()
		if c.sessions != nil {
			if err := c.sessions.FinalizeSession(session); err != nil {
				c.logger.Warn().Err(err).Msg("Session not finalized in history")
			}
		}
		c.logger.Info().
			Str("session_id", session.ID).
			Int("checks", session.ChecksPerformed).
			Int("notifications", session.NotificationsSent).
			Int("errors", len(session.Errors)).
			Msg("Monitor stopped")
	}
	c.bus.close()
}

// setStateLocked transitions the state machine and emits status-changed.
// Callers hold c.mu.
func (c *Controller) setStateLocked(to State) {
	if !canTransition(c.state, to) {
		c.logger.Error().
			Str("from", string(c.state)).
			Str("to", string(to)).
			Msg("Illegal state transition blocked")
		return
	}
	c.state = to
	c.bus.publish(Event{Type: EventStatusChanged, State: to})
}

// run drives sequential cycles from a single timer. The first check fires
// immediately; cycles never overlap because they execute inline here.
func (c *Controller) run() {
	defer close(c.runDone)

	interval := c.cfg.MonitorConfig.Interval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.tick()

	for {
		select {
		case <-c.runCtx.Done():
			if c.State() == StateError {
				c.shutdownAfterFatal()
			}
			return
		case <-ticker.C:
			c.tick()
		}
	}
}

// shutdownAfterFatal releases resources when a fatal cycle error ended the
// run loop. The state stays Error; only Stop reaches Stopped.
func (c *Controller) shutdownAfterFatal() {
	c.source.Stop()
	c.persistState()

	c.mu.Lock()
	session := c.session
	c.session = nil
	c.mu.Unlock()

	if session != nil {
		session.Finalize()
		if c.sessions != nil {
			if err := c.sessions.FinalizeSession(session); err != nil {
				c.logger.Warn().Err(err).Msg("Session not finalized in history")
			}
		}
	}
	c.bus.close()
}

func (c *Controller) tick() {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()
	if state != StateRunning {
		return
	}

	if c.gate != nil && !c.gate.AllowCycle() {
		c.logger.Warn().Msg("Cycle skipped by resource gate")
		return
	}

	c.runCycle()

	maxCycles := c.cfg.MonitorConfig.MaxCycles
	if maxCycles > 0 && c.cycleCount >= maxCycles {
		c.logger.Info().Int("cycles", c.cycleCount).Msg("Max cycles reached, stopping")
		go c.Stop()
	}
}

// runCycle executes one fetch → classify → diff → decide → notify →
// persist sequence. Errors are absorbed per cycle unless fatal.
func (c *Controller) runCycle() {
	c.cycleCount++
	cycle := c.cycleCount

	result, err := c.source.FetchClassifiedSnapshot(c.runCtx, c.filters())
	if err != nil {
		c.absorbCycleError(cycle, err)
		return
	}

	diff := c.differ.Diff(c.lastSnapshot, result.Appointments)
	c.engine.Ingest(result.Appointments)

	c.bus.publish(Event{
		Type:         EventAppointmentsFound,
		State:        StateRunning,
		Cycle:        cycle,
		Appointments: result.Appointments,
		Count:        len(result.Appointments),
	})

	notifiable := c.engine.Notifiable(result.AvailableAppointments())
	if len(notifiable) > 0 {
		c.bus.publish(Event{
			Type:         EventNewAppointments,
			State:        StateRunning,
			Cycle:        cycle,
			Appointments: notifiable,
			Count:        len(notifiable),
		})
		c.dispatchAndCommit(cycle, notifiable)
	}

	c.lastSnapshot = result.Appointments
	c.persistState()
	c.engine.Cleanup(c.cfg.MonitorConfig.Retention())

	c.mu.Lock()
	if c.session != nil {
		c.session.ChecksPerformed++
	}
	c.mu.Unlock()

	c.bus.publish(Event{
		Type:  EventCheckCompleted,
		State: StateRunning,
		Cycle: cycle,
		Count: len(result.Appointments),
	})

	c.logger.Info().
		Int("cycle", cycle).
		Int("total", result.TotalSlots).
		Int("available", result.AvailableSlots).
		Int("new_slots", len(diff.New)).
		Int("removed", len(diff.Removed)).
		Int("changed", len(diff.Changed)).
		Str("kind", string(result.Kind)).
		Msg("Check completed")
}

// dispatchAndCommit sends the notification and commits the dedup ledger
// only after delivery resolves. A failed dispatch leaves the slots eligible
// next cycle.
func (c *Controller) dispatchAndCommit(cycle int, notifiable []models.Appointment) {
	dispatch := c.dispatcher.Dispatch(c.runCtx, notifiable)
	if !dispatch.Delivered() {
		err := common.NewDispatchError("all", common.NewError("no notification channel delivered"))
		c.absorbCycleError(cycle, err)
		return
	}

	c.engine.MarkNotified(notifiable)

	c.mu.Lock()
	if c.session != nil {
		c.session.NotificationsSent += len(notifiable)
	}
	c.mu.Unlock()

	c.bus.publish(Event{
		Type:  EventNotificationSent,
		State: StateRunning,
		Cycle: cycle,
		Count: len(notifiable),
	})

	if dispatch.DeliveryStatus == models.DeliveryPartial {
		c.logger.Warn().Int("cycle", cycle).Msg("Notification delivered on some channels only")
	}
}

// absorbCycleError logs and surfaces a cycle error. Configuration errors
// are fatal: continuing would fail every subsequent cycle the same way.
func (c *Controller) absorbCycleError(cycle int, err error) {
	kind := common.ClassifyError(err)

	c.mu.Lock()
	if c.session != nil {
		c.session.RecordError(string(kind), err.Error())
	}
	c.mu.Unlock()

	c.bus.publish(Event{Type: EventError, State: StateRunning, Cycle: cycle, Err: err})
	c.logger.Error().Err(err).Int("cycle", cycle).Str("kind", string(kind)).Msg("Check cycle failed")

	if common.IsFatal(err) {
		c.logger.Error().Msg("Fatal configuration error, stopping monitor")
		c.mu.Lock()
		c.setStateLocked(StateError)
		c.mu.Unlock()
		if c.runCancel != nil {
			c.runCancel()
		}
	}
}

// persistState writes snapshot, history, and ledger. Persistence failures
// are absorbed: the monitor degrades to in-memory state rather than halting.
func (c *Controller) persistState() {
	if err := c.store.SaveSnapshot(c.lastSnapshot); err != nil {
		c.logger.Warn().Err(err).Msg("Snapshot not persisted")
	}
	history, ledger := c.engine.Snapshot()
	if err := c.store.SaveHistory(history); err != nil {
		c.logger.Warn().Err(err).Msg("History not persisted")
	}
	if err := c.store.SaveLedger(ledger); err != nil {
		c.logger.Warn().Err(err).Msg("Ledger not persisted")
	}
}

func (c *Controller) filters() models.SlotFilters {
	return models.SlotFilters{
		Cities:     c.cfg.FilterConfig.Cities,
		ExamModels: c.cfg.FilterConfig.ExamModels,
		Months:     c.cfg.FilterConfig.Months,
	}
}

func (c *Controller) configSnapshot() string {
	data, err := c.cfg.MarshalSnapshot()
	if err != nil {
		c.logger.Warn().Err(err).Msg("Config snapshot not captured")
		return ""
	}
	return data
}
