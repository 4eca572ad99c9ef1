// Package logging builds the application logger and the two operational
// record streams written by every pipeline run: the error stream (one line per
// failed check) and the change stream (one line per run).
package logging

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates the application logger.
// Level values: debug, info, warn, error. Format values: json, console.
func New(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	if strings.EqualFold(format, "console") {
		cfg.Encoding = "console"
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// RecordStreams holds the error and change record streams
type RecordStreams struct {
	errors  *zap.Logger
	changes *zap.Logger
	closers []func()
}

// NewRecordStreams opens (appending) the error and change record files
func NewRecordStreams(errorPath, changePath string) (*RecordStreams, error) {
	errSink, closeErr, err := zap.Open(errorPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open error record stream %s: %w", errorPath, err)
	}

	changeSink, closeChange, err := zap.Open(changePath)
	if err != nil {
		closeErr()
		return nil, fmt.Errorf("failed to open change record stream %s: %w", changePath, err)
	}

	streams := NewRecordStreamsFromSyncers(errSink, changeSink)
	streams.closers = []func(){closeErr, closeChange}
	return streams, nil
}

// NewRecordStreamsFromSyncers builds record streams on arbitrary sinks
func NewRecordStreamsFromSyncers(errSink, changeSink zapcore.WriteSyncer) *RecordStreams {
	errEncoder := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		MessageKey: "msg",
	})
	changeEncoder := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:          "ts",
		MessageKey:       "msg",
		EncodeTime:       bracketTimeEncoder,
		ConsoleSeparator: " -- ",
	})

	return &RecordStreams{
		errors:  zap.New(zapcore.NewCore(errEncoder, errSink, zapcore.ErrorLevel)),
		changes: zap.New(zapcore.NewCore(changeEncoder, changeSink, zapcore.InfoLevel)),
	}
}

// NopRecordStreams discards every record
func NopRecordStreams() *RecordStreams {
	return &RecordStreams{
		errors:  zap.NewNop(),
		changes: zap.NewNop(),
	}
}

// Error writes "<CATEGORY> ERROR: <message>" to the error stream
func (s *RecordStreams) Error(category, message string) {
	s.errors.Error(fmt.Sprintf("%s ERROR: %s", strings.ToUpper(category), message))
}

// Change writes one entry to the change stream
func (s *RecordStreams) Change(message string) {
	s.changes.Info(message)
}

// Close flushes and closes both streams
func (s *RecordStreams) Close() error {
	errSync := s.errors.Sync()
	changeSync := s.changes.Sync()
	for _, closeFn := range s.closers {
		closeFn()
	}
	if errSync != nil {
		return errSync
	}
	return changeSync
}

func bracketTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString("[" + t.Format("2006-01-02 15:04:05,000") + "]")
}
