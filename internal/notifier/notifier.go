package notifier

import (
	"context"
	"sync"

	"github.com/example/slotwatch/internal/config"
	"github.com/example/slotwatch/internal/models"
	"github.com/rs/zerolog"
)

// Channel delivers one formatted notification over a single medium.
type Channel interface {
	Name() string
	Send(ctx context.Context, msg *Message) error
}

// Dispatcher fans a notification out to every enabled channel concurrently
// and aggregates per-channel outcomes. Channels are independent: one failing
// never blocks or cancels the others.
type Dispatcher struct {
	channels  []Channel
	formatter *Formatter
	logger    zerolog.Logger
}

// NewDispatcher wires up the channels enabled in configuration.
func NewDispatcher(cfg config.NotificationConfig, logger zerolog.Logger) (*Dispatcher, error) {
	var channels []Channel

	if cfg.DesktopEnabled {
		channels = append(channels, NewDesktopChannel(logger))
	}
	if cfg.AudioEnabled {
		channels = append(channels, NewAudioChannel(cfg.AudioFile, logger))
	}
	if cfg.LogFileEnabled {
		channels = append(channels, NewLogFileChannel(cfg.LogFilePath, logger))
	}
	if cfg.WebhookURL != "" {
		webhook, err := NewWebhookChannel(cfg.WebhookURL, cfg.MentionRoleIDs, logger)
		if err != nil {
			return nil, err
		}
		channels = append(channels, webhook)
	}

	return &Dispatcher{
		channels:  channels,
		formatter: NewFormatter(),
		logger:    logger.With().Str("component", "NotificationDispatcher").Logger(),
	}, nil
}

// ChannelCount returns the number of enabled channels.
func (d *Dispatcher) ChannelCount() int {
	return len(d.channels)
}

// Dispatch sends one notification covering the given appointments. The
// returned result's Delivered method tells the caller whether to commit the
// dedup ledger.
func (d *Dispatcher) Dispatch(ctx context.Context, appointments []models.Appointment) *models.DispatchResult {
	result := &models.DispatchResult{AppointmentCount: len(appointments)}
	if len(appointments) == 0 || len(d.channels) == 0 {
		result.DeliveryStatus = models.DeliveryFailed
		return result
	}

	msg := d.formatter.Format(appointments)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	result.Channels = make([]models.ChannelResult, 0, len(d.channels))

	for _, channel := range d.channels {
		wg.Add(1)
		go func(ch Channel) {
			defer wg.Done()

			err := ch.Send(ctx, msg)
			outcome := models.ChannelResult{Channel: ch.Name(), Success: err == nil}
			if err != nil {
				outcome.Error = err.Error()
				d.logger.Error().Err(err).Str("channel", ch.Name()).Msg("Channel delivery failed")
			}

			mu.Lock()
			result.Channels = append(result.Channels, outcome)
			mu.Unlock()
		}(channel)
	}
	wg.Wait()

	result.DeliveryStatus = summarize(result.Channels)
	d.logger.Info().
		Int("appointments", len(appointments)).
		Str("status", string(result.DeliveryStatus)).
		Int("channels", len(result.Channels)).
		Msg("Notification dispatched")
	return result
}

func summarize(channels []models.ChannelResult) models.DeliveryStatus {
	succeeded := 0
	for _, ch := range channels {
		if ch.Success {
			succeeded++
		}
	}
	switch {
	case succeeded == len(channels):
		return models.DeliverySuccess
	case succeeded > 0:
		return models.DeliveryPartial
	default:
		return models.DeliveryFailed
	}
}
