package notifier

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/example/slotwatch/internal/common"
	"github.com/example/slotwatch/internal/models"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogFileChannel appends each notification as a JSON line to a rotating
// file. This is the durable channel: desktop and audio alerts evaporate,
// the log file is what an operator greps the next morning.
type LogFileChannel struct {
	mu     sync.Mutex
	writer *lumberjack.Logger
	logger zerolog.Logger
}

type logFileEntry struct {
	Timestamp    time.Time            `json:"timestamp"`
	Title        string               `json:"title"`
	Appointments []models.Appointment `json:"appointments"`
}

// NewLogFileChannel creates the channel writing to path.
func NewLogFileChannel(path string, logger zerolog.Logger) *LogFileChannel {
	return &LogFileChannel{
		writer: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    50,
			MaxBackups: 5,
			LocalTime:  true,
		},
		logger: logger.With().Str("component", "LogFileChannel").Logger(),
	}
}

// Name identifies the channel in dispatch results.
func (c *LogFileChannel) Name() string { return "logfile" }

// Send appends one JSON line per dispatch.
func (c *LogFileChannel) Send(ctx context.Context, msg *Message) error {
	if err := ctx.Err(); err != nil {
		return common.NewDispatchError(c.Name(), err)
	}

	entry := logFileEntry{
		Timestamp:    msg.CreatedAt,
		Title:        msg.Title,
		Appointments: msg.Appointments,
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return common.NewDispatchError(c.Name(), err)
	}
	line = append(line, '\n')

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.writer.Write(line); err != nil {
		return common.NewDispatchError(c.Name(), err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (c *LogFileChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writer.Close()
}
