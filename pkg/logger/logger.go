// Package logger builds the service logger: an ectologger facade over zap.
// Components log through the ectologger interface; zap owns encoding and
// level filtering.
package logger

import (
	"strings"

	"github.com/Gobusters/ectologger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls the zap backend.
type Config struct {
	// Level is the minimum level to emit: debug, info, warn, or error.
	Level string
	// Pretty switches to the human-readable development encoder.
	Pretty bool
}

// New builds an ectologger.Logger writing through zap. The returned flush
// drains buffered output and belongs in a defer in main.
func New(cfg Config) (ectologger.Logger, func(), error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Pretty {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	// The sink is the caller as far as zap can tell, so caller info would
	// only ever point here.
	zcfg.DisableCaller = true
	zcfg.DisableStacktrace = true

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	zlog, err := zcfg.Build()
	if err != nil {
		return nil, nil, err
	}

	flush := func() {
		_ = zlog.Sync()
	}
	return ectologger.NewEctoLogger(sink(zlog)), flush, nil
}

// sink translates each log message into a zap entry at the matching level.
func sink(zlog *zap.Logger) func(ectologger.EctoLogMessage) {
	return func(msg ectologger.EctoLogMessage) {
		fields := make([]zap.Field, 0, len(msg.Fields)+1)
		for key, value := range msg.Fields {
			fields = append(fields, zap.Any(key, value))
		}
		if msg.Err != nil {
			fields = append(fields, zap.Error(msg.Err))
		}

		switch strings.ToLower(string(msg.Level)) {
		case "debug":
			zlog.Debug(msg.Message, fields...)
		case "warn", "warning":
			zlog.Warn(msg.Message, fields...)
		case "error":
			zlog.Error(msg.Message, fields...)
		case "fatal":
			zlog.Fatal(msg.Message, fields...)
		default:
			zlog.Info(msg.Message, fields...)
		}
	}
}
