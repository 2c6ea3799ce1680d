package sync

import (
	"os"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogTimeLayout matches the run log format used by the scheduled job.
const LogTimeLayout = "2006-01-02 15:04:05"

// NewLogger builds the run logger: colourised console output on stdout
// plus a plain copy in the run log file. The returned func flushes and
// closes the file.
func NewLogger(settings LoggingSettings) (*zap.SugaredLogger, func(), error) {
	level := zapcore.DebugLevel
	if settings.Level != "" {
		l, err := zapcore.ParseLevel(settings.Level)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "invalid log level %q", settings.Level)
		}
		level = l
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(LogTimeLayout)
	encoderConfig.ConsoleSeparator = " | "

	consoleConfig := encoderConfig
	consoleConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleConfig), zapcore.Lock(os.Stdout), level),
	}

	closeFile := func() {}
	if settings.File != "" {
		flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
		if settings.Overwrite {
			flags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
		}
		f, err := os.OpenFile(settings.File, flags, 0o644)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "failed to open log file %s", settings.File)
		}
		fileConfig := encoderConfig
		fileConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(fileConfig), zapcore.Lock(f), level))
		closeFile = func() { _ = f.Close() }
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller()).Sugar()
	return logger, func() {
		_ = logger.Sync()
		closeFile()
	}, nil
}
