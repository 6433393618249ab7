package log

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu   sync.RWMutex
	base = build(zapcore.AddSync(os.Stdout), zapcore.InfoLevel)
)

func build(w zapcore.WriteSyncer, level zapcore.Level) *zap.Logger {
	enc := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		MessageKey:     "action",
		EncodeTime:     zapcore.TimeEncoderOfLayout(time.RFC3339),
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
	}
	return zap.New(zapcore.NewCore(zapcore.NewJSONEncoder(enc), w, level))
}

// Init points the logger at stdout plus the optional log file. The returned
// func flushes and closes the file.
func Init(level, file string) (func(), error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	sinks := []zapcore.WriteSyncer{zapcore.AddSync(os.Stdout)}
	var f *os.File
	if file != "" {
		f, err = os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return func() {}, err
		}
		sinks = append(sinks, zapcore.AddSync(f))
	}
	l := build(zapcore.NewMultiWriteSyncer(sinks...), lvl)
	mu.Lock()
	base = l
	mu.Unlock()
	return func() {
		_ = l.Sync()
		if f != nil {
			_ = f.Close()
		}
	}, nil
}

// SetOutput redirects all log output to w at debug level; used by tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	base = build(zapcore.AddSync(w), zapcore.DebugLevel)
	mu.Unlock()
}

// L returns the process logger for code that has no request context.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

func requestFields(c *fiber.Ctx, fields map[string]any) []zap.Field {
	out := make([]zap.Field, 0, 8)
	if c != nil {
		out = append(out,
			zap.String("ip", c.IP()),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
		)
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			out = append(out, zap.String("req_id", rid))
		}
		if uid, ok := c.Locals("user_id").(string); ok && uid != "" {
			out = append(out, zap.String("user_id", uid))
		}
	}
	if len(fields) > 0 {
		out = append(out, zap.Any("fields", fields))
	}
	return out
}

func Info(c *fiber.Ctx, action string, fields map[string]any) {
	L().Info(action, requestFields(c, fields)...)
}

func Audit(c *fiber.Ctx, action string, fields map[string]any) {
	L().Info(action, append(requestFields(c, fields), zap.String("kind", "audit"))...)
}

func Security(c *fiber.Ctx, action string, fields map[string]any) {
	L().Warn(action, append(requestFields(c, fields), zap.String("kind", "security"))...)
}

func Error(c *fiber.Ctx, action string, err error, fields map[string]any) {
	L().Error(action, append(requestFields(c, fields), zap.Error(err))...)
}
