package logger

import (
	"fmt"
	"log"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

type Config struct {
	Level  string
	Format string
}

type Logger struct {
	l *zap.SugaredLogger
}

func New(conf Config) (*Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(conf.Level))
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", conf.Level, err)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	zapConf := zap.NewProductionConfig()
	zapConf.Level = zap.NewAtomicLevelAt(level)
	zapConf.EncoderConfig = encoderConfig

	switch conf.Format {
	case "", FormatJSON:
		zapConf.Encoding = FormatJSON
	case FormatConsole:
		zapConf.Encoding = FormatConsole
	default:
		return nil, fmt.Errorf("unknown log format %q", conf.Format)
	}

	l, err := zapConf.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}

	return &Logger{l: l.Sugar()}, nil
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{l: zap.NewNop().Sugar()}
}

// FromZap wraps an existing zap logger, e.g. one built on an observer core in tests.
func FromZap(l *zap.Logger) *Logger {
	return &Logger{l: l.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (l *Logger) With(keysAndValues ...any) *Logger {
	return &Logger{l: l.l.With(keysAndValues...)}
}

func (l *Logger) LogErrorf(format string, v ...any) {
	l.l.Errorf(format, v...)
}

func (l *Logger) LogWarnf(format string, v ...any) {
	l.l.Warnf(format, v...)
}

func (l *Logger) LogInfo(format string, v ...any) {
	l.l.Infof(format, v...)
}

func (l *Logger) LogDebugf(format string, v ...any) {
	l.l.Debugf(format, v...)
}

// StdLogger adapts the logger for APIs that only accept a *log.Logger, such as
// http.Server.ErrorLog. Lines are written at error level.
func (l *Logger) StdLogger() *log.Logger {
	std, err := zap.NewStdLogAt(l.l.Desugar(), zapcore.ErrorLevel)
	if err != nil {
		return zap.NewStdLog(l.l.Desugar())
	}

	return std
}

func (l *Logger) Sync() error {
	return l.l.Sync() //nolint:wrapcheck
}
