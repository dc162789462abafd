package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// AppointmentStatus represents the classified availability of one slot.
type AppointmentStatus string

const (
	// StatusAvailable indicates the slot is open for registration.
	StatusAvailable AppointmentStatus = "available"
	// StatusFilled indicates the slot's capacity is completed.
	StatusFilled AppointmentStatus = "filled"
	// StatusPending indicates the slot is awaiting confirmation.
	StatusPending AppointmentStatus = "pending"
	// StatusNotRegisterable indicates the registration window has elapsed.
	StatusNotRegisterable AppointmentStatus = "not_registerable"
	// StatusUnknown indicates no rule matched; the conservative fallback.
	StatusUnknown AppointmentStatus = "unknown"
)

// Appointment is one exam appointment slot observed in a fetch cycle.
// The ID is volatile and reassigned by the source on every fetch; identity
// across cycles comes from Key().
type Appointment struct {
	ID              string            `json:"id"`
	Date            string            `json:"date"`
	TimeRange       string            `json:"time_range"`
	Location        string            `json:"location"`
	Category        string            `json:"category"`
	Region          string            `json:"region"`
	Status          AppointmentStatus `json:"status"`
	Confidence      float64           `json:"confidence"`
	Reasoning       string            `json:"reasoning,omitempty"`
	FallbackUsed    bool              `json:"fallback_used,omitempty"`
	Price           string            `json:"price,omitempty"`
	RegistrationRef string            `json:"registration_ref,omitempty"`
	RawEvidence     string            `json:"raw_evidence,omitempty"`
	Evidence        []StatusIndicator `json:"evidence,omitempty"`
}

// AppointmentKey is the stable fingerprint of a slot's semantic attributes.
type AppointmentKey string

const keyHashLength = 16

// Key derives the stable fingerprint from (date, time range, location,
// category), normalized, explicitly excluding the volatile ID. Two items with
// identical slot attributes always produce the same key.
func (a *Appointment) Key() AppointmentKey {
	parts := []string{a.Date, a.TimeRange, a.Location, a.Category}
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.Join(strings.Fields(p), " "))
	}

	hasher := sha256.New()
	hasher.Write([]byte(strings.Join(parts, "|")))
	return AppointmentKey(hex.EncodeToString(hasher.Sum(nil))[:keyHashLength])
}

// SlotFilters narrows which slots a fetch cycle keeps.
type SlotFilters struct {
	Cities     []string `json:"cities,omitempty"`
	ExamModels []string `json:"exam_models,omitempty"`
	Months     []int    `json:"months,omitempty"`
}

// MatchesRegion reports whether the appointment's region passes the city filter.
func (f SlotFilters) MatchesRegion(region string) bool {
	return matchesFold(f.Cities, region)
}

// MatchesCategory reports whether the appointment's category passes the exam model filter.
func (f SlotFilters) MatchesCategory(category string) bool {
	return matchesFold(f.ExamModels, category)
}

// MatchesMonth reports whether a month (1..12) passes the month filter.
func (f SlotFilters) MatchesMonth(month time.Month) bool {
	if len(f.Months) == 0 {
		return true
	}
	for _, m := range f.Months {
		if m == int(month) {
			return true
		}
	}
	return false
}

func matchesFold(allowed []string, value string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(value)) {
			return true
		}
	}
	return false
}
