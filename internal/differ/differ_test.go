package differ

import (
	"testing"

	"github.com/example/slotwatch/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appointment(date, timeRange, location, category string, status models.AppointmentStatus) models.Appointment {
	return models.Appointment{
		Date:      date,
		TimeRange: timeRange,
		Location:  location,
		Category:  category,
		Status:    status,
	}
}

func TestDiff_Partition(t *testing.T) {
	d := NewSlotDiffer(zerolog.Nop())

	kept := appointment("1404/06/15", "09:00-11:00", "Tehran", "Driving", models.StatusFilled)
	gone := appointment("1404/06/16", "09:00-11:00", "Tehran", "Driving", models.StatusFilled)
	fresh := appointment("1404/06/17", "14:00-16:00", "Qom", "Driving", models.StatusAvailable)

	result := d.Diff(
		[]models.Appointment{kept, gone},
		[]models.Appointment{kept, fresh},
	)

	require.Len(t, result.New, 1)
	assert.Equal(t, fresh.Key(), result.New[0].Key())
	require.Len(t, result.Removed, 1)
	assert.Equal(t, gone.Key(), result.Removed[0].Key())
	require.Len(t, result.Unchanged, 1)
	assert.Equal(t, kept.Key(), result.Unchanged[0].Key())
	assert.Empty(t, result.Changed)
	assert.True(t, result.HasChanges())
}

func TestDiff_StatusChangeDetected(t *testing.T) {
	d := NewSlotDiffer(zerolog.Nop())

	before := appointment("1404/06/15", "09:00-11:00", "Tehran", "Driving", models.StatusFilled)
	after := before
	after.Status = models.StatusAvailable

	result := d.Diff([]models.Appointment{before}, []models.Appointment{after})

	require.Len(t, result.Changed, 1)
	assert.Equal(t, models.StatusFilled, result.Changed[0].PreviousStatus)
	assert.Equal(t, models.StatusAvailable, result.Changed[0].Appointment.Status)
	assert.Empty(t, result.New)
	assert.Empty(t, result.Unchanged)
}

func TestDiff_VolatileIDDoesNotCreateNew(t *testing.T) {
	d := NewSlotDiffer(zerolog.Nop())

	before := appointment("1404/06/15", "09:00-11:00", "Tehran", "Driving", models.StatusFilled)
	before.ID = "row-17"
	after := before
	after.ID = "row-902"

	result := d.Diff([]models.Appointment{before}, []models.Appointment{after})

	assert.Empty(t, result.New)
	assert.Empty(t, result.Removed)
	require.Len(t, result.Unchanged, 1)
	assert.False(t, result.HasChanges())
}

func TestDiff_EveryKeyInExactlyOneBucket(t *testing.T) {
	d := NewSlotDiffer(zerolog.Nop())

	kept := appointment("1404/06/15", "09:00-11:00", "Tehran", "Driving", models.StatusFilled)
	gone := appointment("1404/06/16", "09:00-11:00", "Tehran", "Driving", models.StatusFilled)
	flipped := appointment("1404/06/17", "14:00-16:00", "Qom", "Driving", models.StatusFilled)
	reopened := flipped
	reopened.Status = models.StatusAvailable
	fresh := appointment("1404/06/18", "09:00-11:00", "Karaj", "Driving", models.StatusAvailable)

	result := d.Diff(
		[]models.Appointment{kept, gone, flipped},
		[]models.Appointment{kept, reopened, fresh},
	)

	// Counting Changed with Unchanged restores the three-way partition of
	// the key union: each key appears exactly once across the buckets.
	seen := map[models.AppointmentKey]int{}
	for _, app := range result.New {
		seen[app.Key()]++
	}
	for _, app := range result.Removed {
		seen[app.Key()]++
	}
	for _, app := range result.Unchanged {
		seen[app.Key()]++
	}
	for _, ch := range result.Changed {
		seen[ch.Appointment.Key()]++
	}

	require.Len(t, seen, 4)
	for key, count := range seen {
		assert.Equal(t, 1, count, "key %s", key)
	}
}

func TestDiff_EmptyPrevious(t *testing.T) {
	d := NewSlotDiffer(zerolog.Nop())

	fresh := appointment("1404/06/15", "09:00-11:00", "Tehran", "Driving", models.StatusAvailable)
	result := d.Diff(nil, []models.Appointment{fresh})

	require.Len(t, result.New, 1)
	assert.Empty(t, result.Removed)
}

func TestEvidenceAuditor_Identical(t *testing.T) {
	a := NewEvidenceAuditor()

	summary := a.Audit("<div>same</div>", "<div>same</div>")

	assert.True(t, summary.IsIdentical)
	assert.Zero(t, summary.FragmentsAdded)
	assert.Zero(t, summary.FragmentsDeleted)
	assert.Empty(t, summary.Digest)
}

func TestEvidenceAuditor_Drift(t *testing.T) {
	a := NewEvidenceAuditor()

	summary := a.Audit(
		`<div class="slot disabled">ظرفیت تکمیل</div>`,
		`<div class="slot">ثبت نام آزاد</div>`,
	)

	assert.False(t, summary.IsIdentical)
	assert.Positive(t, summary.FragmentsAdded)
	assert.Positive(t, summary.FragmentsDeleted)
	assert.NotEmpty(t, summary.Digest)
	assert.LessOrEqual(t, len(summary.Digest), maxDigestLen)
}
