// Package logger configures structured JSON logging with an optional
// OpenTelemetry export bridge. Warnings and errors are sampled to keep log
// volume bounded under degraded-provider storms; counters always increment
// so the health endpoint stays accurate regardless of sampling.
package logger

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

var (
	Logger       *slog.Logger
	sampleRate   int32 = 1 // 1 = log everything; N = log 1 in N warnings/errors
	programLevel       = new(slog.LevelVar)
	shutdownFunc func(context.Context) error
)

// Operational counters surfaced on the health endpoint. Incremented on
// every event, sampled or not.
var (
	TotalErrors     atomic.Int64
	TotalWarnings   atomic.Int64
	WeatherFailures atomic.Int64 // provider fetch errors
	CacheFallbacks  atomic.Int64 // decisions served on stale cached weather
	CommitConflicts atomic.Int64 // crop progress CAS retries
	SlowDecisions   atomic.Int64 // decisions over the latency budget
)

func init() {
	programLevel.Set(parseLevel(os.Getenv("LOG_LEVEL")))

	if s := os.Getenv("LOG_SAMPLE_RATE"); s != "" {
		if rate, err := strconv.Atoi(s); err == nil && rate > 0 {
			atomic.StoreInt32(&sampleRate, int32(rate))
		}
	}

	if strings.EqualFold(os.Getenv("OTEL_ENABLED"), "true") {
		serviceName := os.Getenv("OTEL_SERVICE_NAME")
		if serviceName == "" {
			serviceName = "crop-advisor"
		}
		shutdown, err := setupOTEL(context.Background(), serviceName)
		if err != nil {
			fmt.Fprintf(os.Stderr, "otel logging setup failed, using JSON: %v\n", err)
			setupJSON()
		} else {
			shutdownFunc = shutdown
		}
		return
	}
	setupJSON()
}

func setupJSON() {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: programLevel})
	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

func setupOTEL(ctx context.Context, serviceName string) (func(context.Context) error, error) {
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	exporter, err := otlploggrpc.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	provider := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)

	handler := &levelHandler{
		level: programLevel,
		handler: otelslog.NewHandler(serviceName,
			otelslog.WithLoggerProvider(provider)),
	}
	Logger = slog.New(handler)
	slog.SetDefault(Logger)

	return provider.Shutdown, nil
}

// levelHandler filters an OTEL-bridged handler by the program level; the
// bridge itself forwards everything.
type levelHandler struct {
	level   slog.Leveler
	handler slog.Handler
}

func (h *levelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *levelHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.handler.Handle(ctx, r)
}

func (h *levelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelHandler{level: h.level, handler: h.handler.WithAttrs(attrs)}
}

func (h *levelHandler) WithGroup(name string) slog.Handler {
	return &levelHandler{level: h.level, handler: h.handler.WithGroup(name)}
}

// Shutdown flushes the OTEL pipeline when it is enabled.
func Shutdown(ctx context.Context) error {
	if shutdownFunc != nil {
		return shutdownFunc(ctx)
	}
	return nil
}

// SetLevel changes the minimum level at runtime.
func SetLevel(level slog.Level) {
	programLevel.Set(level)
}

func parseLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func shouldSample() bool {
	rate := atomic.LoadInt32(&sampleRate)
	if rate <= 1 {
		return true
	}
	return rand.Intn(int(rate)) == 0
}

// Debug and Info are never sampled.

func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}

func Info(msg string, args ...any) {
	Logger.Info(msg, args...)
}

// Warn counts the event and logs it subject to sampling.
func Warn(msg string, args ...any) {
	TotalWarnings.Add(1)
	if shouldSample() {
		Logger.Warn(msg, args...)
	}
}

// Error counts the event and logs it subject to sampling.
func Error(msg string, args ...any) {
	TotalErrors.Add(1)
	if shouldSample() {
		Logger.Error(msg, args...)
	}
}

// Fatal logs unconditionally, flushes OTEL, and exits.
func Fatal(msg string, args ...any) {
	Logger.Error(msg, args...)
	if shutdownFunc != nil {
		_ = shutdownFunc(context.Background())
	}
	os.Exit(1)
}

// Counters returns a snapshot of the operational counters for the health
// endpoint.
func Counters() map[string]int64 {
	return map[string]int64{
		"total_errors":     TotalErrors.Load(),
		"total_warnings":   TotalWarnings.Load(),
		"weather_failures": WeatherFailures.Load(),
		"cache_fallbacks":  CacheFallbacks.Load(),
		"commit_conflicts": CommitConflicts.Load(),
		"slow_decisions":   SlowDecisions.Load(),
	}
}
