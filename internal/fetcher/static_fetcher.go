package fetcher

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/example/slotwatch/internal/common"
	"github.com/example/slotwatch/internal/config"
	"github.com/gocolly/colly/v2"
	"github.com/rs/zerolog"
)

// StaticFetcher retrieves the portal page over plain HTTP. Suitable for
// portals that render the slot table server-side; cheaper than the browser
// mode but blind to JavaScript-built content.
type StaticFetcher struct {
	config config.FetcherConfig
	logger zerolog.Logger
	mutex  sync.Mutex
	base   *colly.Collector
}

// NewStaticFetcher creates a static fetcher.
func NewStaticFetcher(cfg config.FetcherConfig, logger zerolog.Logger) *StaticFetcher {
	return &StaticFetcher{
		config: cfg,
		logger: logger.With().Str("component", "StaticFetcher").Logger(),
	}
}

// Start builds the base collector cloned per fetch.
func (sf *StaticFetcher) Start() error {
	sf.mutex.Lock()
	defer sf.mutex.Unlock()

	if sf.base != nil {
		return nil
	}

	collector := colly.NewCollector(
		colly.UserAgent(sf.config.UserAgent),
		colly.AllowURLRevisit(),
	)
	collector.SetRequestTimeout(time.Duration(sf.config.StaticTimeoutSecs) * time.Second)
	if sf.config.Browser.IgnoreHTTPSErrors {
		collector.WithTransport(&http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		})
	}

	sf.base = collector
	sf.logger.Info().Msg("Static fetcher ready")
	return nil
}

// Stop releases the collector.
func (sf *StaticFetcher) Stop() {
	sf.mutex.Lock()
	defer sf.mutex.Unlock()
	sf.base = nil
}

// FetchPage downloads the source URL and returns its body.
func (sf *StaticFetcher) FetchPage(ctx context.Context) (string, error) {
	sf.mutex.Lock()
	base := sf.base
	sf.mutex.Unlock()

	if base == nil {
		return "", common.NewError("static fetcher not started")
	}
	if err := ctx.Err(); err != nil {
		return "", common.WrapError(err, "fetch canceled")
	}

	collector := base.Clone()

	var (
		body     []byte
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	collector.OnError(func(r *colly.Response, err error) {
		fetchErr = err
	})

	if err := collector.Visit(sf.config.SourceURL); err != nil {
		return "", sf.classifyFetchError(err)
	}
	collector.Wait()

	if fetchErr != nil {
		return "", sf.classifyFetchError(fetchErr)
	}
	if len(body) == 0 {
		return "", common.NewNetworkError(sf.config.SourceURL, "empty response body", nil)
	}
	return string(body), nil
}

func (sf *StaticFetcher) classifyFetchError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return common.WrapError(common.ErrTimeout, "request to "+sf.config.SourceURL+" timed out")
	}
	return common.NewNetworkError(sf.config.SourceURL, "request failed", err)
}
