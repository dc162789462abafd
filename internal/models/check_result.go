package models

import "time"

// CheckResultKind summarizes one cycle's overall outcome.
type CheckResultKind string

const (
	// CheckResultAvailable means at least one slot classified Available.
	CheckResultAvailable CheckResultKind = "available"
	// CheckResultFilled means slots were listed but none Available.
	CheckResultFilled CheckResultKind = "filled"
	// CheckResultNoSlots means the listing contained no slots at all.
	CheckResultNoSlots CheckResultKind = "no_slots"
)

// CheckResult is the immutable product of one fetch-and-classify cycle. It is
// persisted as the new "last known snapshot" after diffing.
type CheckResult struct {
	Timestamp      time.Time       `json:"timestamp"`
	Source         string          `json:"source"`
	Kind           CheckResultKind `json:"kind"`
	TotalSlots     int             `json:"total_slots"`
	AvailableSlots int             `json:"available_slots"`
	FilledSlots    int             `json:"filled_slots"`
	Appointments   []Appointment   `json:"appointments"`
}

// NewCheckResult builds a CheckResult from classified appointments, deriving
// the counts and overall kind.
func NewCheckResult(source string, at time.Time, appointments []Appointment) *CheckResult {
	cr := &CheckResult{
		Timestamp:    at,
		Source:       source,
		TotalSlots:   len(appointments),
		Appointments: appointments,
	}

	for _, appt := range appointments {
		switch appt.Status {
		case StatusAvailable:
			cr.AvailableSlots++
		case StatusFilled:
			cr.FilledSlots++
		}
	}

	switch {
	case cr.TotalSlots == 0:
		cr.Kind = CheckResultNoSlots
	case cr.AvailableSlots > 0:
		cr.Kind = CheckResultAvailable
	default:
		cr.Kind = CheckResultFilled
	}

	return cr
}

// AvailableAppointments returns the subset of appointments classified Available.
func (cr *CheckResult) AvailableAppointments() []Appointment {
	var out []Appointment
	for _, appt := range cr.Appointments {
		if appt.Status == StatusAvailable {
			out = append(out, appt)
		}
	}
	return out
}
