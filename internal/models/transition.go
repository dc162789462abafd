package models

import "time"

// TransitionRecord is one status change for a tracked slot key, including the
// implicit first-observation transition from StatusUnknown.
type TransitionRecord struct {
	Timestamp      time.Time         `json:"timestamp"`
	PreviousStatus AppointmentStatus `json:"previous_status"`
	NewStatus      AppointmentStatus `json:"new_status"`
	Reason         string            `json:"reason,omitempty"`
}

// ItemHistory maps slot keys to their ordered, append-only transition records.
// Owned exclusively by the dedup engine.
type ItemHistory map[AppointmentKey][]TransitionRecord

// NotifiedLedger maps slot keys to the last time a notification was committed
// for them. Persisted so restarts don't cause re-notification storms.
type NotifiedLedger map[AppointmentKey]time.Time
