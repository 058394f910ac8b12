package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewProduction builds a JSON zap logger at level with an ISO8601
// "timestamp" key.
func NewProduction(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl := normalizeLogLevel(level)
	if lvl == "trace" {
		lvl = "debug"
	}
	if err := cfg.Level.UnmarshalText([]byte(lvl)); err != nil {
		return nil, err
	}
	return cfg.Build()
}

// Zap adapts a zap logger to record.Logger for long-running processes.
type Zap struct {
	L *zap.SugaredLogger
}

// NewZap wraps l; a nil l yields a no-op logger.
func NewZap(l *zap.Logger) *Zap {
	if l == nil {
		l = zap.NewNop()
	}
	return &Zap{L: l.Sugar()}
}

func (z *Zap) LogDebug(message string) { z.L.Debug(message) }
func (z *Zap) LogInfo(message string)  { z.L.Info(message) }
func (z *Zap) LogWarn(message string)  { z.L.Warn(message) }
