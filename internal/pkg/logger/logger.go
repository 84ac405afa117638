// internal/pkg/logger/logger.go
package logger

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

var base zerolog.Logger

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	base = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// Init 设置服务名等全局字段，并根据配置调整日志级别。
func Init(serviceName, level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	base = zerolog.New(os.Stdout).Level(lvl).With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

// Logger 返回全局 logger，用于没有请求上下文的场景。
func Logger() *zerolog.Logger {
	return &base
}

// Ctx 返回一个携带追踪信息的 logger。
// 如果上下文中有有效的 Span，会自动附加 trace_id / span_id 字段，
// 方便在日志平台和 Jaeger 之间互相跳转。
func Ctx(ctx context.Context) *zerolog.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return &base
	}
	l := base.With().
		Str("trace_id", sc.TraceID().String()).
		Str("span_id", sc.SpanID().String()).
		Logger()
	return &l
}
