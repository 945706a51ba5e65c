package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with a few domain-specific convenience methods.
type Logger struct {
	*zap.Logger
}

// Options configures logger construction.
type Options struct {
	Level  string
	Format string
	Async  bool // buffered, asynchronous logging
}

// New creates a new logger.
func New(level string, format string) (*Logger, error) {
	return NewWithOptions(Options{
		Level:  level,
		Format: format,
		Async:  false,
	})
}

// NewAsync creates a new logger with asynchronous, buffered logging.
func NewAsync(level string, format string) (*Logger, error) {
	return NewWithOptions(Options{
		Level:  level,
		Format: format,
		Async:  true,
	})
}

// NewWithOptions creates a new logger with the given options.
func NewWithOptions(opts Options) (*Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(opts.Level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	var encoder zapcore.Encoder
	var encoderConfig zapcore.EncoderConfig

	if opts.Format == "json" {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	encoderConfig.TimeKey = "ts"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	// build the write syncer
	var writeSyncer zapcore.WriteSyncer
	if opts.Async {
		// buffered (8KB); flushes on fill, on Sync(), and every 30s
		// (zap's default interval when FlushInterval is 0)
		writeSyncer = &zapcore.BufferedWriteSyncer{
			WS:            zapcore.AddSync(os.Stdout),
			Size:          8 * 1024,
			FlushInterval: 0,
		}
	} else {
		writeSyncer = zapcore.AddSync(os.Stdout)
	}

	core := zapcore.NewCore(encoder, writeSyncer, zapLevel)

	logger := zap.New(core,
		zap.AddCaller(),
		zap.AddCallerSkip(1),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)

	return &Logger{Logger: logger}, nil
}

// WithFields attaches extra fields to every subsequent log line.
func (l *Logger) WithFields(fields ...zap.Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...)}
}

// WithSeriesID attaches series_id to the logger.
func (l *Logger) WithSeriesID(seriesID string) *Logger {
	return l.WithFields(zap.String("series_id", seriesID))
}

// WithEventID attaches event_id (tournament id) to the logger.
func (l *Logger) WithEventID(eventID string) *Logger {
	return l.WithFields(zap.String("event_id", eventID))
}

// WithMatchID attaches match_id to the logger.
func (l *Logger) WithMatchID(matchID string) *Logger {
	return l.WithFields(zap.String("match_id", matchID))
}

// WithStage attaches the event's current stage to the logger.
func (l *Logger) WithStage(stage string) *Logger {
	return l.WithFields(zap.String("stage", stage))
}

// LogError logs an error with its surrounding context fields.
func (l *Logger) LogError(msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))
	l.Error(msg, fields...)
}

// Sync flushes the logger's buffer.
func (l *Logger) Sync() error {
	return l.Logger.Sync()
}
