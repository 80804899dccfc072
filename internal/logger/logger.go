// Package logger wires go.uber.org/zap into the shape the server needs:
// verbose runs log to stdout, otherwise to a single file (no rotation).
package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logger writing to stdout (verbose) or to logFile.
func New(verbose bool, logFile string) (*zap.Logger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewConsoleEncoder(encoderCfg)

	var ws zapcore.WriteSyncer
	if verbose {
		ws = zapcore.Lock(os.Stdout)
	} else {
		f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("logger: open %s: %w", logFile, err)
		}
		ws = zapcore.Lock(f)
	}

	core := zapcore.NewCore(encoder, ws, zap.InfoLevel)
	return zap.New(core), nil
}
