package differ

import (
	"github.com/example/slotwatch/internal/models"
	"github.com/rs/zerolog"
)

// SlotDiffResult partitions a check's appointments against the previous
// snapshot by identity key. Every key in either snapshot lands in exactly
// one bucket: New and Removed cover the keys unique to one side, and keys
// present in both sides split into Unchanged and Changed by whether their
// status moved. Changed is a refinement of the both-sides bucket; counting
// it with Unchanged restores the plain three-way partition.
type SlotDiffResult struct {
	New       []models.Appointment
	Removed   []models.Appointment
	Unchanged []models.Appointment
	// Changed holds appointments present in both snapshots whose status
	// differs, paired with the status they had before.
	Changed []StatusChange
}

// StatusChange records one appointment whose status moved between cycles.
type StatusChange struct {
	Appointment    models.Appointment
	PreviousStatus models.AppointmentStatus
}

// HasChanges reports whether the diff carries anything worth acting on.
func (r *SlotDiffResult) HasChanges() bool {
	return len(r.New) > 0 || len(r.Removed) > 0 || len(r.Changed) > 0
}

// SlotDiffer compares consecutive check snapshots by appointment identity.
type SlotDiffer struct {
	audit  *EvidenceAuditor
	logger zerolog.Logger
}

// NewSlotDiffer creates a slot differ.
func NewSlotDiffer(logger zerolog.Logger) *SlotDiffer {
	return &SlotDiffer{
		audit:  NewEvidenceAuditor(),
		logger: logger.With().Str("component", "SlotDiffer").Logger(),
	}
}

// Diff partitions current against previous. Identity is the appointment key,
// so volatile row IDs and cosmetic markup churn never produce a false "new".
func (d *SlotDiffer) Diff(previous, current []models.Appointment) *SlotDiffResult {
	prevByKey := make(map[models.AppointmentKey]models.Appointment, len(previous))
	for _, app := range previous {
		prevByKey[app.Key()] = app
	}

	result := &SlotDiffResult{}
	seen := make(map[models.AppointmentKey]struct{}, len(current))

	for _, app := range current {
		key := app.Key()
		seen[key] = struct{}{}

		prev, existed := prevByKey[key]
		if !existed {
			result.New = append(result.New, app)
			continue
		}
		if prev.Status != app.Status {
			result.Changed = append(result.Changed, StatusChange{
				Appointment:    app,
				PreviousStatus: prev.Status,
			})
			d.logEvidenceDrift(key, prev, app)
			continue
		}
		result.Unchanged = append(result.Unchanged, app)
	}

	for _, app := range previous {
		if _, ok := seen[app.Key()]; !ok {
			result.Removed = append(result.Removed, app)
		}
	}

	d.logger.Debug().
		Int("new", len(result.New)).
		Int("removed", len(result.Removed)).
		Int("changed", len(result.Changed)).
		Int("unchanged", len(result.Unchanged)).
		Msg("Snapshot diff complete")

	return result
}

// logEvidenceDrift records what changed in the raw markup when a slot's
// status flips. Useful when a flip turns out to be a classifier miss rather
// than a real portal change.
func (d *SlotDiffer) logEvidenceDrift(key models.AppointmentKey, prev, curr models.Appointment) {
	if prev.RawEvidence == "" || curr.RawEvidence == "" {
		return
	}
	summary := d.audit.Audit(prev.RawEvidence, curr.RawEvidence)
	d.logger.Debug().
		Str("key", string(key)).
		Str("previous_status", string(prev.Status)).
		Str("new_status", string(curr.Status)).
		Int("fragments_added", summary.FragmentsAdded).
		Int("fragments_deleted", summary.FragmentsDeleted).
		Str("drift", summary.Digest).
		Msg("Slot status changed")
}
