package classifier

import (
	"fmt"
	"strings"

	"github.com/example/slotwatch/internal/config"
	"github.com/example/slotwatch/internal/models"
	"github.com/rs/zerolog"
)

const (
	fallbackConfidence = 0.1
	fallbackWeight     = 0.3
)

// Classifier derives an appointment status from a slot's markup fragment.
// Classification is total: every input yields a status, and Available is
// only ever produced by an explicit positive indicator.
type Classifier struct {
	rules   []rule
	phrases PhraseSet
	logger  zerolog.Logger
}

// New creates a Classifier with the configured phrase dictionaries.
func New(cfg config.ClassifierConfig, logger zerolog.Logger) *Classifier {
	return &Classifier{
		rules:   ruleTable(),
		phrases: PhraseSetFromConfig(cfg),
		logger:  logger.With().Str("component", "Classifier").Logger(),
	}
}

// Classify evaluates one raw slot against the rule table and returns a
// populated appointment. It never returns an error: fragments that match
// nothing classify as Unknown with zero or near-zero confidence.
func (c *Classifier) Classify(raw *RawSlot) models.Appointment {
	ev := gatherEvidence(raw)
	result := c.evaluate(ev)

	if result.Status == models.StatusUnknown {
		c.logger.Debug().
			Str("slot_id", raw.ID).
			Str("date", raw.Date).
			Bool("fallback_used", result.FallbackUsed).
			Msg("Slot classified as unknown")
	}

	return models.Appointment{
		ID:              raw.ID,
		Date:            raw.Date,
		TimeRange:       raw.TimeRange,
		Location:        raw.Location,
		Category:        raw.Category,
		Region:          raw.Region,
		Price:           raw.Price,
		RegistrationRef: raw.RegistrationRef,
		Status:          result.Status,
		Confidence:      result.Confidence,
		Reasoning:       result.Reasoning,
		FallbackUsed:    result.FallbackUsed,
		RawEvidence:     raw.Fragment,
		Evidence:        result.Evidence,
	}
}

// ClassifyAll classifies a page worth of raw slots in extraction order.
func (c *Classifier) ClassifyAll(raws []*RawSlot) []models.Appointment {
	out := make([]models.Appointment, 0, len(raws))
	for _, raw := range raws {
		out = append(out, c.Classify(raw))
	}
	return out
}

// evaluate walks the rule table tier by tier. The first tier with any match
// decides the status; within that tier every matching rule contributes an
// indicator, and the first match sets confidence and reasoning.
func (c *Classifier) evaluate(ev *slotEvidence) models.Classification {
	for tier := tierFilled; tier <= tierPending; tier++ {
		var (
			decided    bool
			result     models.Classification
			indicators []models.StatusIndicator
		)

		for _, r := range c.rules {
			if r.tier != tier {
				continue
			}
			value, ok := r.match(ev, c.phrases)
			if !ok {
				continue
			}

			indicators = append(indicators, models.StatusIndicator{
				Kind:   r.kind,
				Value:  value,
				Weight: r.weight,
				Source: "fragment",
			})
			if !decided {
				decided = true
				result = models.Classification{
					Status:     r.status,
					Confidence: r.confidence,
					Reasoning:  fmt.Sprintf("%s: %q", r.kind, value),
				}
			}
		}

		if decided {
			result.Evidence = indicators
			return result
		}
	}

	return c.fallback(ev)
}

// fallback handles fragments no rule matched. A fragment that still looks
// like a slot row (a date or time shape plus a domain keyword) is flagged so
// downstream reporting can surface portals whose markup drifted; anything
// else is plain Unknown with zero confidence.
func (c *Classifier) fallback(ev *slotEvidence) models.Classification {
	keyword, hasKeyword := ev.containsAny(c.phrases.DomainKeyword)
	if ev.hasDateTimeShape && hasKeyword {
		return models.Classification{
			Status:       models.StatusUnknown,
			Confidence:   fallbackConfidence,
			Reasoning:    fmt.Sprintf("no indicator matched; slot-shaped fragment with keyword %q", keyword),
			FallbackUsed: true,
			Evidence: []models.StatusIndicator{{
				Kind:   models.IndicatorSlotStructureMissing,
				Value:  keyword,
				Weight: fallbackWeight,
				Source: "fragment",
			}},
		}
	}

	return models.Classification{
		Status:     models.StatusUnknown,
		Confidence: 0,
		Reasoning:  "no indicator matched",
	}
}

// Summarize renders a one-line digest of a classification for logs.
func Summarize(a models.Appointment) string {
	parts := []string{string(a.Status), fmt.Sprintf("conf=%.2f", a.Confidence)}
	if a.FallbackUsed {
		parts = append(parts, "fallback")
	}
	return strings.Join(parts, " ")
}
