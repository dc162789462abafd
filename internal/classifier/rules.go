package classifier

import (
	"fmt"

	"github.com/example/slotwatch/internal/models"
)

// priorityTier orders rule groups. Lower tiers win outright: a certain
// negative signal beats any positive text elsewhere in the same fragment,
// because a false "available" notification costs more than a missed one.
type priorityTier int

const (
	tierFilled priorityTier = iota + 1
	tierAvailable
	tierPending
)

// rule is one row of the indicator table. New indicators are added here as
// data; the evaluator never grows new branches.
type rule struct {
	kind       models.IndicatorKind
	tier       priorityTier
	status     models.AppointmentStatus
	confidence float64
	weight     float64
	match      func(ev *slotEvidence, ps PhraseSet) (value string, ok bool)
}

// ruleTable returns the ordered rule set. Order within a tier is the
// tie-break: the first matching rule determines the recorded reasoning.
func ruleTable() []rule {
	return []rule{
		// Tier 1: certain-negative indicators.
		{
			kind:       models.IndicatorPhraseCapacityFull,
			tier:       tierFilled,
			status:     models.StatusFilled,
			confidence: 1.0,
			weight:     1.0,
			match: func(ev *slotEvidence, ps PhraseSet) (string, bool) {
				return ev.containsAny(ps.CapacityFull)
			},
		},
		{
			kind:       models.IndicatorDisabledClass,
			tier:       tierFilled,
			status:     models.StatusFilled,
			confidence: 0.95,
			weight:     0.95,
			match: func(ev *slotEvidence, _ PhraseSet) (string, bool) {
				if ev.hasDisabledClass {
					return ev.disabledClassValue, true
				}
				return "", false
			},
		},
		{
			kind:       models.IndicatorDisabledControl,
			tier:       tierFilled,
			status:     models.StatusFilled,
			confidence: 0.9,
			weight:     0.9,
			match: func(ev *slotEvidence, _ PhraseSet) (string, bool) {
				if ctrls := ev.disabledControls(); len(ctrls) > 0 {
					return fmt.Sprintf("<%s> %s", ctrls[0].tag, ctrls[0].text), true
				}
				return "", false
			},
		},

		// Tier 2: explicit positive indicators, strongest first. Available is
		// never inferred from the absence of negatives.
		{
			kind:       models.IndicatorPhraseOpen,
			tier:       tierAvailable,
			status:     models.StatusAvailable,
			confidence: 0.95,
			weight:     0.95,
			match: func(ev *slotEvidence, ps PhraseSet) (string, bool) {
				return ev.containsAny(ps.Open)
			},
		},
		{
			kind:       models.IndicatorEnabledControl,
			tier:       tierAvailable,
			status:     models.StatusAvailable,
			confidence: 0.9,
			weight:     0.9,
			match: func(ev *slotEvidence, _ PhraseSet) (string, bool) {
				if len(ev.disabledControls()) > 0 {
					return "", false
				}
				if ctrls := ev.enabledControls(); len(ctrls) > 0 {
					return fmt.Sprintf("<%s> %s", ctrls[0].tag, ctrls[0].text), true
				}
				return "", false
			},
		},
		{
			kind:       models.IndicatorRegistrationRef,
			tier:       tierAvailable,
			status:     models.StatusAvailable,
			confidence: 0.85,
			weight:     0.85,
			match: func(ev *slotEvidence, _ PhraseSet) (string, bool) {
				if ev.hasRegistrationRef {
					return ev.raw.RegistrationRef, true
				}
				return "", false
			},
		},
		{
			kind:       models.IndicatorClickAffordance,
			tier:       tierAvailable,
			status:     models.StatusAvailable,
			confidence: 0.75,
			weight:     0.75,
			match: func(ev *slotEvidence, _ PhraseSet) (string, bool) {
				if ev.hasClickAffordance {
					return "click handler present", true
				}
				return "", false
			},
		},

		// Tier 3: distinct remediations, not Filled.
		{
			kind:       models.IndicatorPhrasePending,
			tier:       tierPending,
			status:     models.StatusPending,
			confidence: 0.9,
			weight:     0.9,
			match: func(ev *slotEvidence, ps PhraseSet) (string, bool) {
				return ev.containsAny(ps.Pending)
			},
		},
		{
			kind:       models.IndicatorPhraseWindowElapsed,
			tier:       tierPending,
			status:     models.StatusNotRegisterable,
			confidence: 0.85,
			weight:     0.85,
			match: func(ev *slotEvidence, ps PhraseSet) (string, bool) {
				return ev.containsAny(ps.WindowElapsed)
			},
		},
	}
}
