package fetcher

import (
	"context"
	"strings"

	"github.com/example/slotwatch/internal/classifier"
	"github.com/example/slotwatch/internal/common"
	"github.com/example/slotwatch/internal/config"
	"github.com/rs/zerolog"
)

// PageFetcher retrieves the rendered HTML of the monitored portal page.
type PageFetcher interface {
	// FetchPage returns the page HTML. Implementations classify failures
	// through the common error types so retry policy can tell a timeout
	// from a refused connection.
	FetchPage(ctx context.Context) (string, error)
	// Start acquires long-lived resources (browser process, collector).
	Start() error
	// Stop releases them. Safe to call without a prior Start.
	Stop()
}

// SlotFetcher runs one complete acquisition: fetch the page with retries,
// then extract raw slot rows for classification.
type SlotFetcher struct {
	page    PageFetcher
	parser  *PageParser
	retrier *Retrier
	logger  zerolog.Logger
}

// NewSlotFetcher builds the acquisition pipeline for the configured mode.
func NewSlotFetcher(fetcherCfg config.FetcherConfig, retryCfg config.RetryConfig, logger zerolog.Logger) (*SlotFetcher, error) {
	page, err := newPageFetcher(fetcherCfg, logger)
	if err != nil {
		return nil, err
	}
	return &SlotFetcher{
		page:    page,
		parser:  NewPageParser(fetcherCfg.SlotRowSelector, logger),
		retrier: NewRetrier(retryCfg, logger),
		logger:  logger.With().Str("component", "SlotFetcher").Logger(),
	}, nil
}

func newPageFetcher(cfg config.FetcherConfig, logger zerolog.Logger) (PageFetcher, error) {
	switch strings.ToLower(cfg.Mode) {
	case config.FetchModeBrowser:
		return NewBrowserFetcher(cfg, logger), nil
	case config.FetchModeStatic:
		return NewStaticFetcher(cfg, logger), nil
	default:
		return nil, common.NewValidationError("fetcher.mode", cfg.Mode, "unrecognized fetch mode")
	}
}

// Start prepares the underlying page fetcher.
func (f *SlotFetcher) Start() error {
	return f.page.Start()
}

// Stop releases the underlying page fetcher.
func (f *SlotFetcher) Stop() {
	f.page.Stop()
}

// Fetch retrieves and parses the portal page. Transient failures retry per
// policy; the error returned is the last attempt's.
func (f *SlotFetcher) Fetch(ctx context.Context) ([]*classifier.RawSlot, error) {
	var html string
	err := f.retrier.Execute(ctx, "fetch page", func() error {
		var fetchErr error
		html, fetchErr = f.page.FetchPage(ctx)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}

	slots, err := f.parser.Parse(html)
	if err != nil {
		return nil, err
	}

	f.logger.Debug().Int("slot_rows", len(slots)).Msg("Page fetched and parsed")
	return slots, nil
}
