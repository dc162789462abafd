package notifier

import (
	"context"

	"github.com/example/slotwatch/internal/common"
	"github.com/gen2brain/beeep"
	"github.com/rs/zerolog"
)

// DesktopChannel raises an operating system notification.
type DesktopChannel struct {
	logger zerolog.Logger
	notify func(title, message, appIcon string) error
}

// NewDesktopChannel creates a desktop notification channel.
func NewDesktopChannel(logger zerolog.Logger) *DesktopChannel {
	return &DesktopChannel{
		logger: logger.With().Str("component", "DesktopChannel").Logger(),
		notify: beeep.Notify,
	}
}

// Name identifies the channel in dispatch results.
func (c *DesktopChannel) Name() string { return "desktop" }

// Send raises the notification. Desktop notification APIs are synchronous
// and fast; context is checked once up front.
func (c *DesktopChannel) Send(ctx context.Context, msg *Message) error {
	if err := ctx.Err(); err != nil {
		return common.NewDispatchError(c.Name(), err)
	}
	if err := c.notify(msg.Title, msg.Body, ""); err != nil {
		return common.NewDispatchError(c.Name(), err)
	}
	return nil
}
