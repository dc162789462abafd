package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/slotwatch/internal/common"
	"github.com/example/slotwatch/internal/config"
	"github.com/example/slotwatch/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu       sync.Mutex
	started  bool
	stopped  bool
	startErr error
	results  []*models.CheckResult
	errs     []error
	calls    int
}

func (f *fakeSource) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
	return f.startErr
}

func (f *fakeSource) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeSource) FetchClassifiedSnapshot(_ context.Context, _ models.SlotFilters) (*models.CheckResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.calls
	f.calls++
	if idx < len(f.errs) && f.errs[idx] != nil {
		return nil, f.errs[idx]
	}
	if idx < len(f.results) {
		return f.results[idx], nil
	}
	return models.NewCheckResult("test", time.Now(), nil), nil
}

type fakeDispatcher struct {
	mu     sync.Mutex
	status models.DeliveryStatus
	sent   [][]models.Appointment
}

func (f *fakeDispatcher) Dispatch(_ context.Context, apps []models.Appointment) *models.DispatchResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, apps)
	status := f.status
	if status == "" {
		status = models.DeliverySuccess
	}
	return &models.DispatchResult{
		AppointmentCount: len(apps),
		Channels:         []models.ChannelResult{{Channel: "fake", Success: status != models.DeliveryFailed}},
		DeliveryStatus:   status,
	}
}

type memoryStore struct {
	mu       sync.Mutex
	snapshot []models.Appointment
	history  models.ItemHistory
	ledger   models.NotifiedLedger
}

func (m *memoryStore) SaveSnapshot(apps []models.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = apps
	return nil
}

func (m *memoryStore) LoadSnapshot() []models.Appointment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot
}

func (m *memoryStore) SaveHistory(h models.ItemHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = h
	return nil
}

func (m *memoryStore) LoadHistory() models.ItemHistory {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history
}

func (m *memoryStore) SaveLedger(l models.NotifiedLedger) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ledger = l
	return nil
}

func (m *memoryStore) LoadLedger() models.NotifiedLedger {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ledger
}

func testConfig() config.GlobalConfig {
	cfg := *config.NewDefaultGlobalConfig()
	cfg.FetcherConfig.SourceURL = "https://portal.example/slots"
	cfg.MonitorConfig.CheckIntervalMs = 20
	cfg.MonitorConfig.CheckInterval = 20 * time.Millisecond
	return cfg
}

func availableResult() *models.CheckResult {
	return models.NewCheckResult("test", time.Now(), []models.Appointment{{
		Date:      "1404/06/15",
		TimeRange: "09:00-11:00",
		Location:  "Tehran Center 3",
		Category:  "Driving",
		Status:    models.StatusAvailable,
	}})
}

func filledResult() *models.CheckResult {
	r := availableResult()
	r.Appointments[0].Status = models.StatusFilled
	return models.NewCheckResult("test", time.Now(), r.Appointments)
}

func collectEvents(t *testing.T, c *Controller, types ...EventType) map[EventType]int {
	t.Helper()
	want := make(map[EventType]bool, len(types))
	for _, ty := range types {
		want[ty] = true
	}
	counts := make(map[EventType]int)
	deadline := time.After(3 * time.Second)
	for len(want) > 0 {
		select {
		case ev, ok := <-c.Events():
			if !ok {
				return counts
			}
			counts[ev.Type]++
			delete(want, ev.Type)
		case <-deadline:
			t.Fatalf("timed out waiting for events, still missing: %v", want)
		}
	}
	return counts
}

func drainEvents(c *Controller) {
	go func() {
		for range c.Events() {
		}
	}()
}

func TestStart_TwiceRejected(t *testing.T) {
	source := &fakeSource{}
	c := NewController(testConfig(), source, &fakeDispatcher{}, &memoryStore{}, zerolog.Nop())
	drainEvents(c)

	require.NoError(t, c.Start())
	defer c.Stop()

	err := c.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}

func TestPause_WhenStoppedRejected(t *testing.T) {
	c := NewController(testConfig(), &fakeSource{}, &fakeDispatcher{}, &memoryStore{}, zerolog.Nop())

	err := c.Pause()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not running")
}

func TestResume_WhenRunningRejected(t *testing.T) {
	c := NewController(testConfig(), &fakeSource{}, &fakeDispatcher{}, &memoryStore{}, zerolog.Nop())
	drainEvents(c)
	require.NoError(t, c.Start())
	defer c.Stop()

	assert.Error(t, c.Resume())
}

func TestStop_Idempotent(t *testing.T) {
	source := &fakeSource{}
	c := NewController(testConfig(), source, &fakeDispatcher{}, &memoryStore{}, zerolog.Nop())
	drainEvents(c)

	require.NoError(t, c.Stop()) // stop before start is a no-op

	require.NoError(t, c.Start())
	require.NoError(t, c.Stop())
	require.NoError(t, c.Stop())

	assert.Equal(t, StateStopped, c.State())
	assert.True(t, source.stopped)
}

func TestStart_InitializationFailure(t *testing.T) {
	source := &fakeSource{startErr: errors.New("browser launch failed")}
	c := NewController(testConfig(), source, &fakeDispatcher{}, &memoryStore{}, zerolog.Nop())

	err := c.Start()
	require.Error(t, err)
	assert.Equal(t, StateError, c.State())
}

func TestPauseResume_Roundtrip(t *testing.T) {
	c := NewController(testConfig(), &fakeSource{}, &fakeDispatcher{}, &memoryStore{}, zerolog.Nop())
	drainEvents(c)
	require.NoError(t, c.Start())
	defer c.Stop()

	require.NoError(t, c.Pause())
	assert.Equal(t, StatePaused, c.State())
	require.NoError(t, c.Resume())
	assert.Equal(t, StateRunning, c.State())
}

func TestCycle_NotifiesAndCommits(t *testing.T) {
	cfg := testConfig()
	cfg.MonitorConfig.MaxCycles = 1

	source := &fakeSource{results: []*models.CheckResult{availableResult()}}
	dispatcher := &fakeDispatcher{}
	store := &memoryStore{}
	c := NewController(cfg, source, dispatcher, store, zerolog.Nop())

	require.NoError(t, c.Start())
	counts := collectEvents(t, c,
		EventAppointmentsFound, EventNewAppointments, EventNotificationSent, EventCheckCompleted)
	c.Stop()

	assert.Equal(t, 1, counts[EventNewAppointments])
	assert.Equal(t, 1, counts[EventNotificationSent])
	require.Len(t, dispatcher.sent, 1)
	require.Len(t, dispatcher.sent[0], 1)

	// Ledger was committed and persisted.
	key := dispatcher.sent[0][0].Key()
	assert.Contains(t, store.LoadLedger(), key)
}

func TestCycle_FailedDispatchDoesNotCommit(t *testing.T) {
	cfg := testConfig()
	cfg.MonitorConfig.MaxCycles = 1

	source := &fakeSource{results: []*models.CheckResult{availableResult()}}
	dispatcher := &fakeDispatcher{status: models.DeliveryFailed}
	store := &memoryStore{}
	c := NewController(cfg, source, dispatcher, store, zerolog.Nop())

	require.NoError(t, c.Start())
	collectEvents(t, c, EventError, EventCheckCompleted)
	c.Stop()

	assert.Empty(t, store.LoadLedger())
}

func TestCycle_TransientErrorKeepsRunning(t *testing.T) {
	source := &fakeSource{
		errs:    []error{common.NewNetworkError("u", "refused", nil)},
		results: []*models.CheckResult{nil, filledResult()},
	}
	c := NewController(testConfig(), source, &fakeDispatcher{}, &memoryStore{}, zerolog.Nop())

	require.NoError(t, c.Start())
	collectEvents(t, c, EventError, EventCheckCompleted)

	assert.Equal(t, StateRunning, c.State())
	c.Stop()
}

func TestCycle_FatalConfigErrorStops(t *testing.T) {
	source := &fakeSource{
		errs: []error{common.NewConfigurationError("fetcher", "source_url", "gone")},
	}
	c := NewController(testConfig(), source, &fakeDispatcher{}, &memoryStore{}, zerolog.Nop())

	require.NoError(t, c.Start())

	deadline := time.After(3 * time.Second)
	for c.State() != StateError {
		select {
		case <-deadline:
			t.Fatal("controller never reached Error state")
		case <-time.After(5 * time.Millisecond):
		}
	}
	drainEvents(c)
	assert.Equal(t, StateError, c.State())
}

func TestEventOrdering_StatusChangeFirst(t *testing.T) {
	cfg := testConfig()
	cfg.MonitorConfig.MaxCycles = 1

	source := &fakeSource{results: []*models.CheckResult{availableResult()}}
	c := NewController(cfg, source, &fakeDispatcher{}, &memoryStore{}, zerolog.Nop())

	require.NoError(t, c.Start())

	var order []EventType
	deadline := time.After(3 * time.Second)
	for {
		var done bool
		select {
		case ev, ok := <-c.Events():
			if !ok {
				done = true
				break
			}
			order = append(order, ev.Type)
			if ev.Type == EventCheckCompleted {
				done = true
			}
		case <-deadline:
			t.Fatal("timed out waiting for check-completed")
		}
		if done {
			break
		}
	}
	go c.Stop()
	drainEvents(c)

	require.NotEmpty(t, order)
	assert.Equal(t, EventStatusChanged, order[0])

	idx := func(ty EventType) int {
		for i, o := range order {
			if o == ty {
				return i
			}
		}
		return -1
	}
	assert.Less(t, idx(EventAppointmentsFound), idx(EventNewAppointments))
	assert.Less(t, idx(EventNewAppointments), idx(EventNotificationSent))
	assert.Less(t, idx(EventNotificationSent), idx(EventCheckCompleted))
}

func TestRestart_LedgerSurvives(t *testing.T) {
	cfg := testConfig()
	cfg.MonitorConfig.MaxCycles = 1

	store := &memoryStore{}
	source := &fakeSource{results: []*models.CheckResult{availableResult()}}
	dispatcher := &fakeDispatcher{}

	c := NewController(cfg, source, dispatcher, store, zerolog.Nop())
	require.NoError(t, c.Start())
	collectEvents(t, c, EventNotificationSent)
	c.Stop()
	require.Len(t, dispatcher.sent, 1)

	// Second run sees the same still-available slot: no re-notification.
	source2 := &fakeSource{results: []*models.CheckResult{availableResult()}}
	dispatcher2 := &fakeDispatcher{}
	c2 := NewController(cfg, source2, dispatcher2, store, zerolog.Nop())
	require.NoError(t, c2.Start())
	collectEvents(t, c2, EventCheckCompleted)
	c2.Stop()

	assert.Empty(t, dispatcher2.sent)
}

func TestRestart_AfterStop(t *testing.T) {
	store := &memoryStore{}
	c := NewController(testConfig(), &fakeSource{}, &fakeDispatcher{}, store, zerolog.Nop())
	drainEvents(c)

	require.NoError(t, c.Start())
	require.NoError(t, c.Stop())
	require.Equal(t, StateStopped, c.State())

	// A stopped controller starts a second session with a fresh event
	// stream; the first session's closed stream stays closed.
	require.NoError(t, c.Start())
	counts := collectEvents(t, c, EventStatusChanged, EventCheckCompleted)
	assert.GreaterOrEqual(t, counts[EventCheckCompleted], 1)

	require.NoError(t, c.Stop())
	assert.Equal(t, StateStopped, c.State())
}

type fakeGate struct{ allow bool }

func (g *fakeGate) AllowCycle() bool { return g.allow }

func TestCycleGate_SkipsCycles(t *testing.T) {
	source := &fakeSource{}
	c := NewController(testConfig(), source, &fakeDispatcher{}, &memoryStore{}, zerolog.Nop(),
		WithCycleGate(&fakeGate{allow: false}))
	drainEvents(c)

	require.NoError(t, c.Start())
	time.Sleep(100 * time.Millisecond)
	c.Stop()

	source.mu.Lock()
	defer source.mu.Unlock()
	assert.Zero(t, source.calls)
}

type fakePreflight struct{ err error }

func (p *fakePreflight) CheckReachable(string) error { return p.err }

type blockingPreflight struct{ release chan struct{} }

func (p *blockingPreflight) CheckReachable(string) error {
	<-p.release
	return nil
}

func TestStop_DuringStartupRejected(t *testing.T) {
	pf := &blockingPreflight{release: make(chan struct{})}
	c := NewController(testConfig(), &fakeSource{}, &fakeDispatcher{}, &memoryStore{}, zerolog.Nop(),
		WithPreflight(pf))
	drainEvents(c)

	startDone := make(chan error, 1)
	go func() { startDone <- c.Start() }()

	deadline := time.After(3 * time.Second)
	for c.State() != StateStarting {
		select {
		case <-deadline:
			t.Fatal("controller never reached Starting state")
		case <-time.After(2 * time.Millisecond):
		}
	}

	err := c.Stop()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "starting")

	close(pf.release)
	require.NoError(t, <-startDone)
	require.NoError(t, c.Stop())
	assert.Equal(t, StateStopped, c.State())
}

func TestPreflight_FailureMeansErrorState(t *testing.T) {
	c := NewController(testConfig(), &fakeSource{}, &fakeDispatcher{}, &memoryStore{}, zerolog.Nop(),
		WithPreflight(&fakePreflight{err: common.NewNetworkError("u", "unreachable", nil)}))

	err := c.Start()
	require.Error(t, err)
	assert.Equal(t, StateError, c.State())
}
