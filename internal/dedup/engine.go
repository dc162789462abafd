package dedup

import (
	"sync"
	"time"

	"github.com/example/slotwatch/internal/models"
	"github.com/rs/zerolog"
)

// Engine decides whether an available slot deserves a notification. It owns
// the per-slot transition history and the ledger of already-notified slots,
// so callers never reason about re-notification themselves.
//
// The rule: a slot is notifiable the first time it is seen available, and
// again only after it has demonstrably left the available state since the
// last notification. Continuously-available slots across consecutive checks
// never re-notify.
type Engine struct {
	mu       sync.Mutex
	history  models.ItemHistory
	notified models.NotifiedLedger
	now      func() time.Time
	logger   zerolog.Logger
}

// NewEngine creates an engine seeded with previously persisted state. Nil
// maps are accepted and treated as empty.
func NewEngine(history models.ItemHistory, notified models.NotifiedLedger, logger zerolog.Logger) *Engine {
	if history == nil {
		history = make(models.ItemHistory)
	}
	if notified == nil {
		notified = make(models.NotifiedLedger)
	}
	return &Engine{
		history:  history,
		notified: notified,
		now:      time.Now,
		logger:   logger.With().Str("component", "DedupEngine").Logger(),
	}
}

// Ingest records status transitions for every appointment in a check. Only
// actual changes append history: a slot holding the same status across
// cycles gains no records, which keeps history bounded by real movement.
func (e *Engine) Ingest(appointments []models.Appointment) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	for _, app := range appointments {
		key := app.Key()
		records := e.history[key]

		// A never-seen slot counts as StatusUnknown, so the first sighting
		// of a non-unknown status records an Unknown -> status transition.
		previous := models.StatusUnknown
		if len(records) > 0 {
			previous = records[len(records)-1].NewStatus
		}
		if previous == app.Status {
			continue
		}

		e.history[key] = append(records, models.TransitionRecord{
			Timestamp:      now,
			PreviousStatus: previous,
			NewStatus:      app.Status,
			Reason:         app.Reasoning,
		})
	}
}

// Notifiable filters the given appointments down to those that should be
// dispatched now. Non-available appointments never pass. It does not touch
// the ledger: callers commit via MarkNotified once dispatch resolves, so a
// failed dispatch leaves the slot eligible for the next cycle.
func (e *Engine) Notifiable(appointments []models.Appointment) []models.Appointment {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []models.Appointment
	for _, app := range appointments {
		if app.Status != models.StatusAvailable {
			continue
		}
		if e.notifiableLocked(app.Key()) {
			out = append(out, app)
		}
	}
	return out
}

func (e *Engine) notifiableLocked(key models.AppointmentKey) bool {
	notifiedAt, wasNotified := e.notified[key]
	if !wasNotified {
		return true
	}

	// Already notified once. Eligible again only if the slot left the
	// available state strictly after that notification.
	for _, rec := range e.history[key] {
		if rec.NewStatus != models.StatusAvailable && rec.Timestamp.After(notifiedAt) {
			return true
		}
	}
	return false
}

// MarkNotified commits the ledger for appointments whose notification was
// actually delivered. Call it only after the dispatcher reports delivery.
func (e *Engine) MarkNotified(appointments []models.Appointment) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	for _, app := range appointments {
		e.notified[app.Key()] = now
	}
	e.logger.Debug().Int("count", len(appointments)).Msg("Ledger updated")
}

// Cleanup drops state older than the retention window. A slot's history is
// removed only when its newest record is stale, so active slots keep their
// full transition trail.
func (e *Engine) Cleanup(retention time.Duration) (removed int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.now().Add(-retention)

	for key, records := range e.history {
		if len(records) == 0 || records[len(records)-1].Timestamp.Before(cutoff) {
			delete(e.history, key)
			removed++
		}
	}
	for key, notifiedAt := range e.notified {
		if notifiedAt.Before(cutoff) {
			delete(e.notified, key)
		}
	}

	if removed > 0 {
		e.logger.Debug().Int("removed", removed).Msg("Stale dedup state pruned")
	}
	return removed
}

// Snapshot returns deep copies of the engine state for persistence.
func (e *Engine) Snapshot() (models.ItemHistory, models.NotifiedLedger) {
	e.mu.Lock()
	defer e.mu.Unlock()

	history := make(models.ItemHistory, len(e.history))
	for key, records := range e.history {
		history[key] = append([]models.TransitionRecord(nil), records...)
	}
	notified := make(models.NotifiedLedger, len(e.notified))
	for key, at := range e.notified {
		notified[key] = at
	}
	return history, notified
}
