package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/GitWithJosh/cloud-computing-vl/internal/config"
	"github.com/GitWithJosh/cloud-computing-vl/internal/deadletter"
	"github.com/GitWithJosh/cloud-computing-vl/internal/domain/sensor"
	"github.com/GitWithJosh/cloud-computing-vl/internal/domain/useractivity"
	"github.com/GitWithJosh/cloud-computing-vl/internal/logging"
	"github.com/GitWithJosh/cloud-computing-vl/internal/metrics"
	"github.com/GitWithJosh/cloud-computing-vl/internal/processor"
	"github.com/GitWithJosh/cloud-computing-vl/internal/store"
	"github.com/GitWithJosh/cloud-computing-vl/internal/supervisor"
)

func init() {
	if os.Getenv("RUNNING_IN_DOCKER") == "" {
		_ = godotenv.Load("../../.env")
	}
}

func main() {
	os.Exit(run())
}

func run() int {
	settings, err := config.LoadSettings()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level, logCfg.Format = settings.LogLevel, settings.LogFormat
	log := logging.New(logCfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("application_id", settings.ApplicationID).
		Str("bootstrap_servers", strings.Join(settings.Brokers, ",")).
		Msg("starting sensor anomaly detector")

	cfg, err := config.SetupConfig(ctx, settings)
	if err != nil {
		log.Error().Err(err).Msg("startup failed")
		return 1
	}
	defer cfg.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewRecorder(reg)

	encoder := processor.NewEncoder()
	topology := processor.NewTopology(settings.OutputTopic).
		Bind(settings.SensorTopic, sensor.NewHandler(encoder, logging.WithComponent(log, "sensor"))).
		Bind(settings.UserTopic, useractivity.NewHandler(encoder, logging.WithComponent(log, "useractivity")))

	var publisher processor.Publisher = processor.NewProducer(cfg.Kafka, settings.OutputTopic, settings.PublishTimeout)
	if cfg.Pg != nil {
		publisher = withArchive(ctx, cfg, publisher, recorder, log)
	}

	streamLog := logging.WithComponent(log, "stream")
	opts := []processor.Option{
		processor.WithWorkers(settings.Workers),
		processor.WithCommitInterval(settings.CommitInterval),
		processor.WithObserver(recorder),
		processor.WithLogger(streamLog),
		processor.OnFatal(func(error) { stop() }),
	}
	if cfg.Redis != nil {
		opts = append(opts, processor.WithDeadLetter(deadletter.New(cfg.Redis, settings.DeadLetterCap)))
		log.Info().Int64("cap", settings.DeadLetterCap).Msg("dead letter enabled")
	}
	stream := processor.NewStream(cfg.Kafka, topology, publisher, opts...)

	tree := supervisor.NewTree(settings.ApplicationID, log, supervisor.DefaultTreeConfig())
	tree.AddStreamService(stream)
	tree.AddOpsService(metrics.NewServer(settings.MetricsAddr, reg, logging.WithComponent(log, "metrics")))

	log.Info().
		Str("topology", fmt.Sprintf("%s, %s -> %s", settings.SensorTopic, settings.UserTopic, settings.OutputTopic)).
		Int("workers", settings.Workers).
		Msg("stream processing started")

	if err := tree.Serve(ctx); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("supervisor stopped")
	}

	if err := stream.Err(); err != nil {
		log.Error().Err(err).Msg("stream failed")
		return 1
	}
	log.Info().Msg("shutdown complete")
	return 0
}

func withArchive(ctx context.Context, cfg *config.Config, primary processor.Publisher, obs processor.Observer, log zerolog.Logger) processor.Publisher {
	archiveLog := logging.WithComponent(log, "archive")
	archive := store.NewArchive(cfg.Pg, store.DefaultBreakerConfig(), archiveLog)
	if err := archive.EnsureSchema(ctx); err != nil {
		archiveLog.Warn().Err(err).Msg("prediction archive disabled")
		return primary
	}
	archiveLog.Info().Msg("prediction archive enabled")
	return processor.NewFanout(primary, log, obs, archive)
}
