package monitor

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/example/slotwatch/internal/models"
	"github.com/rs/zerolog"
)

// EventType identifies one kind of controller event.
type EventType string

const (
	// EventStatusChanged fires on every state transition, before any other
	// event caused by the same transition.
	EventStatusChanged EventType = "status-changed"
	// EventAppointmentsFound fires once per cycle with the full classified
	// snapshot.
	EventAppointmentsFound EventType = "appointments-found"
	// EventNewAppointments carries only the notification-worthy subset.
	EventNewAppointments EventType = "new-appointments"
	// EventNotificationSent fires after a delivered dispatch.
	EventNotificationSent EventType = "notification-sent"
	// EventCheckCompleted fires at the end of every completed cycle.
	EventCheckCompleted EventType = "check-completed"
	// EventError surfaces absorbed per-cycle errors.
	EventError EventType = "error"
)

// Event is one entry in the controller's ordered event stream.
type Event struct {
	Type         EventType
	Timestamp    time.Time
	State        State
	Cycle        int
	Appointments []models.Appointment
	Count        int
	Err          error
}

const eventBufferSize = 64

// eventBus publishes controller events to a single buffered channel. When
// no consumer keeps up, events are dropped rather than blocking the cycle.
type eventBus struct {
	events    chan Event
	logger    zerolog.Logger
	closeOnce sync.Once
	closed    atomic.Bool
}

func newEventBus(logger zerolog.Logger) *eventBus {
	return &eventBus{
		events: make(chan Event, eventBufferSize),
		logger: logger.With().Str("component", "EventBus").Logger(),
	}
}

// fresh returns a new open bus for the next session, reusing the logger.
func (b *eventBus) fresh() *eventBus {
	return &eventBus{
		events: make(chan Event, eventBufferSize),
		logger: b.logger,
	}
}

func (b *eventBus) isClosed() bool {
	return b.closed.Load()
}

func (b *eventBus) publish(ev Event) {
	ev.Timestamp = time.Now()
	select {
	case b.events <- ev:
	default:
		b.logger.Warn().Str("event", string(ev.Type)).Msg("Event dropped, no consumer keeping up")
	}
}

func (b *eventBus) close() {
	b.closeOnce.Do(func() {
		b.closed.Store(true)
		close(b.events)
	})
}
