package notifier

import (
	"context"

	"github.com/example/slotwatch/internal/common"
	"github.com/gen2brain/beeep"
	"github.com/rs/zerolog"
)

// AudioChannel plays an audible alert so an operator away from the screen
// still catches an availability event.
type AudioChannel struct {
	audioFile string
	logger    zerolog.Logger
	alert     func(title, message, appIcon string) error
	beep      func(freq float64, duration int) error
}

// NewAudioChannel creates an audio alert channel. When audioFile is set it
// is passed to the system alert as the sound asset; otherwise a plain beep
// sequence plays.
func NewAudioChannel(audioFile string, logger zerolog.Logger) *AudioChannel {
	return &AudioChannel{
		audioFile: audioFile,
		logger:    logger.With().Str("component", "AudioChannel").Logger(),
		alert:     beeep.Alert,
		beep:      beeep.Beep,
	}
}

// Name identifies the channel in dispatch results.
func (c *AudioChannel) Name() string { return "audio" }

// Send plays the alert. Three beeps, spaced by the tone duration itself.
func (c *AudioChannel) Send(ctx context.Context, msg *Message) error {
	if err := ctx.Err(); err != nil {
		return common.NewDispatchError(c.Name(), err)
	}

	if c.audioFile != "" {
		if err := c.alert(msg.Title, msg.Body, c.audioFile); err != nil {
			return common.NewDispatchError(c.Name(), err)
		}
		return nil
	}

	for i := 0; i < 3; i++ {
		if err := c.beep(beeep.DefaultFreq, beeep.DefaultDuration); err != nil {
			return common.NewDispatchError(c.Name(), err)
		}
	}
	return nil
}
