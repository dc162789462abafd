package models

// IndicatorKind identifies one kind of availability signal found in markup.
type IndicatorKind string

const (
	IndicatorPhraseCapacityFull   IndicatorKind = "phrase_capacity_full"
	IndicatorDisabledClass        IndicatorKind = "disabled_class"
	IndicatorDisabledControl      IndicatorKind = "disabled_control"
	IndicatorPhraseOpen           IndicatorKind = "phrase_open_registration"
	IndicatorEnabledControl       IndicatorKind = "enabled_control"
	IndicatorRegistrationRef      IndicatorKind = "registration_ref"
	IndicatorClickAffordance      IndicatorKind = "click_affordance"
	IndicatorPhrasePending        IndicatorKind = "phrase_pending_confirmation"
	IndicatorPhraseWindowElapsed  IndicatorKind = "phrase_window_elapsed"
	IndicatorSlotStructureMissing IndicatorKind = "slot_structure_missing"
)

// StatusIndicator is one piece of evidence collected while classifying a slot.
// The evidence list is immutable once a classification is produced.
type StatusIndicator struct {
	Kind   IndicatorKind `json:"kind"`
	Value  string        `json:"value"`
	Weight float64       `json:"weight"`
	Source string        `json:"source"`
}

// Classification is the classifier's verdict for one slot: exactly one status,
// a confidence in [0,1], and a human-readable reason. The classifier is a
// total function; the worst case is StatusUnknown with confidence 0.
type Classification struct {
	Status       AppointmentStatus `json:"status"`
	Confidence   float64           `json:"confidence"`
	Reasoning    string            `json:"reasoning"`
	FallbackUsed bool              `json:"fallback_used"`
	Evidence     []StatusIndicator `json:"evidence,omitempty"`
}
