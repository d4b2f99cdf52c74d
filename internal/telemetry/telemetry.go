// Package telemetry wires structured logging and OpenTelemetry for the
// client. Logs, traces and metrics all land in rotating files under
// ./logs so an interactive terminal stays clean.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

const logDir = "logs"

func rotatingFile(name string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   filepath.Join(logDir, name),
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}
}

// InitLogger initializes structured JSON logging with rotation. Debug
// mode lowers the level to slog.LevelDebug, mirroring the --debug flag.
func InitLogger(debug bool) (*slog.Logger, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating logs directory: %w", err)
	}

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	handler := slog.NewJSONHandler(rotatingFile("duckchat.log"), &slog.HandlerOptions{
		Level: level,
	})

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, nil
}

// InitTelemetry initializes OpenTelemetry tracing and metrics with
// file-backed stdout exporters. The returned shutdown function flushes
// both providers and aggregates any failures.
func InitTelemetry(ctx context.Context) (trace.Tracer, metric.Meter, func() error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName("duckchat"),
			semconv.ServiceVersion("0.3.0"),
		),
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating resource: %w", err)
	}

	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, nil, nil, fmt.Errorf("creating logs directory: %w", err)
	}

	traceFile := rotatingFile("duckchat_traces.log")
	traceExporter, err := stdouttrace.New(
		stdouttrace.WithWriter(traceFile),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	metricsFile := rotatingFile("duckchat_metrics.log")
	metricExporter, err := stdoutmetric.New(
		stdoutmetric.WithWriter(metricsFile),
		stdoutmetric.WithPrettyPrint(),
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(
				metricExporter,
				sdkmetric.WithInterval(10*time.Second),
			),
		),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	shutdown := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		var errs error
		if err := tp.Shutdown(ctx); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
		if err := mp.Shutdown(ctx); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
		if err := traceFile.Close(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("closing trace file: %w", err))
		}
		if err := metricsFile.Close(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("closing metrics file: %w", err))
		}
		return errs
	}

	return tp.Tracer("duckchat"), mp.Meter("duckchat"), shutdown, nil
}
