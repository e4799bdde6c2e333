package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/Aidin1998/bookanalyzer/internal/config"
	"github.com/Aidin1998/bookanalyzer/internal/engine"
	"github.com/Aidin1998/bookanalyzer/internal/feed"
	"github.com/Aidin1998/bookanalyzer/internal/replay"
	"github.com/Aidin1998/bookanalyzer/internal/sink"
	"github.com/Aidin1998/bookanalyzer/pkg/logger"
	"github.com/Aidin1998/bookanalyzer/pkg/metrics"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load environment variables
	if err := config.LoadDotEnv(); err != nil {
		log.Printf("Warning: %v", err)
	}

	cfg, err := config.Load(config.NewFlagSet(os.Args[0]), os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		log.Printf("Failed to load configuration: %v", err)
		return 2
	}

	zapLogger, err := logger.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Printf("Failed to create logger: %v", err)
		return 2
	}
	defer zapLogger.Sync()

	runID := uuid.NewString()
	zapLogger = zapLogger.With(zap.String("service", "bookanalyzer"))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewReplay(reg)
	if cfg.Metrics.Addr != "" {
		srv := serveMetrics(cfg.Metrics.Addr, reg, zapLogger)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	in, err := openInput(cfg.Input)
	if err != nil {
		zapLogger.Error("Failed to open input", zap.String("input", cfg.Input), zap.Error(err))
		return 1
	}
	defer in.Close()

	out, err := openSinks(cfg, zapLogger)
	if err != nil {
		zapLogger.Error("Failed to open output", zap.Error(err))
		return 1
	}

	eng := engine.New(engine.Config{Target: cfg.Target, ReductionMode: cfg.Book.Mode}, zapLogger, m)
	runner := replay.NewRunner(eng, out, runID, zapLogger, m)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	code := 0
	sum, runErr := runner.Run(ctx, in)
	switch {
	case runErr == nil:
	case errors.Is(runErr, feed.ErrMalformedHeader):
		if cfg.Replay.FailOnMalformed {
			code = 1
		}
	case errors.Is(runErr, context.Canceled):
		zapLogger.Warn("Replay interrupted", zap.Int("lines", sum.Lines))
		code = 130
	default:
		zapLogger.Error("Replay failed", zap.Error(runErr))
		code = 1
	}

	if err := out.Close(); err != nil {
		zapLogger.Error("Failed to close output", zap.Error(err))
		code = 1
	}

	if cfg.Replay.SummaryPath != "" {
		if err := replay.WriteSummary(cfg.Replay.SummaryPath, sum); err != nil {
			zapLogger.Error("Failed to write summary", zap.Error(err))
			code = 1
		} else {
			zapLogger.Info("Summary written", zap.String("path", cfg.Replay.SummaryPath))
		}
	}
	return code
}

// nopCloser keeps the text sink from closing stdin/stdout.
type nopCloser struct{ io.Writer }

func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

func openSinks(cfg *config.Config, log *zap.Logger) (sink.Multi, error) {
	var w io.Writer = nopCloser{os.Stdout}
	if cfg.Output != "-" {
		f, err := os.Create(cfg.Output)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", cfg.Output, err)
		}
		w = f
	}
	sinks := sink.Multi{sink.NewTextSink(w, cfg.Replay.BufferedOutput)}

	if cfg.Kafka.Enabled {
		log.Info("Publishing quotes to Kafka",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic))
		sinks = append(sinks, sink.NewKafkaSink(sink.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			BatchTimeout: cfg.Kafka.BatchTimeout,
		}, log))
	}
	return sinks, nil
}

func serveMetrics(addr string, reg *prometheus.Registry, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Info("Starting metrics server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Metrics server failed", zap.Error(err))
		}
	}()
	return srv
}
