package logger

import (
	"io"
	stdlog "log"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/slotwatch/internal/common"
	"github.com/example/slotwatch/internal/config"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New creates a zerolog logger from the application log configuration.
func New(cfg config.LogConfig) (zerolog.Logger, error) {
	internalCfg, err := convertConfig(cfg)
	if err != nil {
		return zerolog.Logger{}, err
	}

	writers := createWriters(internalCfg)
	if len(writers) == 0 {
		return zerolog.Logger{}, common.NewError("no log output writers configured")
	}

	multiWriter := zerolog.MultiLevelWriter(writers...)
	instance := zerolog.New(multiWriter).
		Level(internalCfg.Level).
		With().
		Timestamp().
		Logger()

	zerolog.SetGlobalLevel(internalCfg.Level)
	stdlog.SetOutput(instance)
	stdlog.SetFlags(0)

	return instance, nil
}

func convertConfig(cfg config.LogConfig) (LoggerConfig, error) {
	out := DefaultLoggerConfig()

	level, err := parseLogLevel(cfg.LogLevel)
	if err != nil {
		return out, err
	}
	out.Level = level

	format, err := parseLogFormat(cfg.LogFormat)
	if err != nil {
		return out, err
	}
	out.Format = format

	if cfg.LogFile != "" {
		out.EnableFile = true
		out.FilePath = cfg.LogFile
	}
	if cfg.MaxLogSizeMB > 0 {
		out.MaxSizeMB = cfg.MaxLogSizeMB
	}
	if cfg.MaxLogBackups > 0 {
		out.MaxBackups = cfg.MaxLogBackups
	}

	return out, nil
}

func parseLogLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(level) {
	case "":
		return zerolog.InfoLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "info":
		return zerolog.InfoLevel, nil
	case "warn":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	case "fatal":
		return zerolog.FatalLevel, nil
	case "panic":
		return zerolog.PanicLevel, nil
	default:
		return zerolog.InfoLevel, common.NewValidationError("log_level", level, "unrecognized log level")
	}
}

func parseLogFormat(format string) (LogFormat, error) {
	switch strings.ToLower(format) {
	case "":
		return FormatConsole, nil
	case "json":
		return FormatJSON, nil
	case "console":
		return FormatConsole, nil
	case "text":
		return FormatText, nil
	default:
		return FormatConsole, common.NewValidationError("log_format", format, "unrecognized log format")
	}
}

func createWriters(cfg LoggerConfig) []io.Writer {
	var writers []io.Writer

	if cfg.EnableConsole {
		writers = append(writers, createConsoleWriter(cfg.Format, os.Stderr, false))
	}

	if cfg.EnableFile {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err == nil {
			rotating := &lumberjack.Logger{
				Filename:   cfg.FilePath,
				MaxSize:    cfg.MaxSizeMB,
				LocalTime:  true,
				MaxBackups: cfg.MaxBackups,
			}
			writers = append(writers, createConsoleWriter(cfg.Format, rotating, true))
		}
	}

	return writers
}

func createConsoleWriter(format LogFormat, out io.Writer, noColor bool) io.Writer {
	switch format {
	case FormatJSON:
		return out
	case FormatText:
		return zerolog.ConsoleWriter{Out: out, NoColor: true}
	default:
		return zerolog.ConsoleWriter{Out: out, NoColor: noColor}
	}
}
