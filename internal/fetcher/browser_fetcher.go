package fetcher

import (
	"context"
	"sync"
	"time"

	"github.com/example/slotwatch/internal/common"
	"github.com/example/slotwatch/internal/config"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"
)

// BrowserFetcher renders the portal page in a headless Chrome instance. The
// monitored portals build their slot tables with JavaScript, so this is the
// default mode.
type BrowserFetcher struct {
	config   config.FetcherConfig
	logger   zerolog.Logger
	mutex    sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
	running  bool
}

// NewBrowserFetcher creates a browser fetcher. The browser process launches
// on Start, not here.
func NewBrowserFetcher(cfg config.FetcherConfig, logger zerolog.Logger) *BrowserFetcher {
	return &BrowserFetcher{
		config: cfg,
		logger: logger.With().Str("component", "BrowserFetcher").Logger(),
	}
}

// Start launches the browser process and connects to it.
func (bf *BrowserFetcher) Start() error {
	bf.mutex.Lock()
	defer bf.mutex.Unlock()

	if bf.running {
		return nil
	}

	l := launcher.New()
	if bf.config.Browser.ChromePath != "" {
		l = l.Bin(bf.config.Browser.ChromePath)
	}
	if bf.config.Browser.UserDataDir != "" {
		l = l.UserDataDir(bf.config.Browser.UserDataDir)
	}

	l = l.
		Set("no-sandbox").
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("no-first-run").
		Set("disable-default-apps").
		Set("disable-sync")

	if bf.config.Browser.DisableImages {
		l = l.Set("blink-settings", "imagesEnabled=false")
	}
	if bf.config.Browser.IgnoreHTTPSErrors {
		l = l.Set("ignore-certificate-errors")
	}

	controlURL, err := l.Launch()
	if err != nil {
		return common.WrapError(err, "failed to launch browser")
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return common.WrapError(err, "failed to connect to browser")
	}

	bf.launcher = l
	bf.browser = browser
	bf.running = true
	bf.logger.Info().Msg("Headless browser started")
	return nil
}

// Stop closes the browser and cleans up the launcher.
func (bf *BrowserFetcher) Stop() {
	bf.mutex.Lock()
	defer bf.mutex.Unlock()

	if !bf.running {
		return
	}
	if bf.browser != nil {
		if err := bf.browser.Close(); err != nil {
			bf.logger.Warn().Err(err).Msg("Browser close failed")
		}
	}
	if bf.launcher != nil {
		bf.launcher.Cleanup()
	}
	bf.browser = nil
	bf.launcher = nil
	bf.running = false
	bf.logger.Info().Msg("Headless browser stopped")
}

// FetchPage navigates to the source URL and returns the rendered HTML.
func (bf *BrowserFetcher) FetchPage(ctx context.Context) (string, error) {
	bf.mutex.Lock()
	browser := bf.browser
	running := bf.running
	bf.mutex.Unlock()

	if !running || browser == nil {
		return "", common.NewError("browser fetcher not started")
	}

	timeout := time.Duration(bf.config.Browser.PageLoadTimeoutSecs) * time.Second
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	page, err := browser.Context(timeoutCtx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", common.NewNetworkError(bf.config.SourceURL, "failed to create page", err)
	}
	defer page.Close()

	if bf.config.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent: bf.config.UserAgent,
		}); err != nil {
			bf.logger.Warn().Err(err).Msg("Failed to set user agent")
		}
	}

	if err := page.Navigate(bf.config.SourceURL); err != nil {
		return "", common.NewNetworkError(bf.config.SourceURL, "navigation failed", err)
	}

	if err := page.WaitLoad(); err != nil {
		return "", common.WrapError(common.ErrTimeout, "page load timed out for "+bf.config.SourceURL)
	}

	// Give client-side rendering time to fill the slot table.
	if bf.config.Browser.WaitAfterLoadMs > 0 {
		select {
		case <-time.After(time.Duration(bf.config.Browser.WaitAfterLoadMs) * time.Millisecond):
		case <-timeoutCtx.Done():
			return "", common.WrapError(common.ErrTimeout, "page settle wait interrupted")
		}
	}

	html, err := page.HTML()
	if err != nil {
		return "", common.NewNetworkError(bf.config.SourceURL, "failed to read page HTML", err)
	}
	return html, nil
}
