// Package obs contains observability utilities such as logging.
package obs

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the global structured logger used by the service. It discards
// everything until InitLogger is called.
var Logger = zap.NewNop()

// InitLogger replaces Logger with a JSON logger writing to stdout at info
// level.
func InitLogger() {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.Lock(os.Stdout),
		zap.InfoLevel,
	)
	Logger = zap.New(core, zap.AddCaller())
}

// Sync flushes buffered log entries.
func Sync() {
	_ = Logger.Sync()
}
