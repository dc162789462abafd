package fetcher

import (
	"context"
	"regexp"
	"strconv"
	"time"

	"github.com/example/slotwatch/internal/classifier"
	"github.com/example/slotwatch/internal/config"
	"github.com/example/slotwatch/internal/models"
	"github.com/rs/zerolog"
)

// dateMonthPattern captures the month component of Gregorian and Jalali
// date shapes (yyyy/mm/dd and variants).
var dateMonthPattern = regexp.MustCompile(`\d{2,4}[/\-.](\d{1,2})[/\-.]\d{1,4}`)

// SnapshotFetcher produces one classified snapshot per cycle: fetch the
// page, classify every slot row, apply the operator's filters, and derive
// the cycle's CheckResult.
type SnapshotFetcher struct {
	slots      *SlotFetcher
	classifier *classifier.Classifier
	sourceURL  string
	logger     zerolog.Logger
	now        func() time.Time
}

// NewSnapshotFetcher builds the full acquisition pipeline.
func NewSnapshotFetcher(cfg config.GlobalConfig, logger zerolog.Logger) (*SnapshotFetcher, error) {
	slots, err := NewSlotFetcher(cfg.FetcherConfig, cfg.RetryConfig, logger)
	if err != nil {
		return nil, err
	}
	return &SnapshotFetcher{
		slots:      slots,
		classifier: classifier.New(cfg.ClassifierConfig, logger),
		sourceURL:  cfg.FetcherConfig.SourceURL,
		logger:     logger.With().Str("component", "SnapshotFetcher").Logger(),
		now:        time.Now,
	}, nil
}

// Start prepares the page fetcher.
func (sf *SnapshotFetcher) Start() error {
	return sf.slots.Start()
}

// Stop releases the page fetcher.
func (sf *SnapshotFetcher) Stop() {
	sf.slots.Stop()
}

// FetchClassifiedSnapshot runs one acquisition and returns the cycle's
// check result. Errors carry the common error kinds so the controller can
// distinguish transient from fatal.
func (sf *SnapshotFetcher) FetchClassifiedSnapshot(ctx context.Context, filters models.SlotFilters) (*models.CheckResult, error) {
	raws, err := sf.slots.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	classified := sf.classifier.ClassifyAll(raws)
	kept := applyFilters(classified, filters)
	if dropped := len(classified) - len(kept); dropped > 0 {
		sf.logger.Debug().Int("dropped", dropped).Msg("Slots excluded by filters")
	}

	for _, app := range kept {
		if app.Status == models.StatusAvailable {
			sf.logger.Info().
				Str("slot_id", app.ID).
				Str("classification", classifier.Summarize(app)).
				Msg("Available slot in snapshot")
		}
	}

	return models.NewCheckResult(sf.sourceURL, sf.now(), kept), nil
}

// applyFilters keeps appointments matching every configured filter. Slots
// whose date yields no parsable month are kept: filters drop confirmed
// mismatches, never ambiguity.
func applyFilters(appointments []models.Appointment, filters models.SlotFilters) []models.Appointment {
	kept := make([]models.Appointment, 0, len(appointments))
	for _, app := range appointments {
		if !filters.MatchesRegion(app.Region) {
			continue
		}
		if !filters.MatchesCategory(app.Category) {
			continue
		}
		if month, ok := monthFromDate(app.Date); ok && !filters.MatchesMonth(month) {
			continue
		}
		kept = append(kept, app)
	}
	return kept
}

func monthFromDate(date string) (time.Month, bool) {
	matches := dateMonthPattern.FindStringSubmatch(date)
	if matches == nil {
		return 0, false
	}
	m, err := strconv.Atoi(matches[1])
	if err != nil || m < 1 || m > 12 {
		return 0, false
	}
	return time.Month(m), true
}
