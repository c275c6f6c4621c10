package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/joho/godotenv"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/GitWithJosh/cloud-computing-vl/contracts/events"
	"github.com/GitWithJosh/cloud-computing-vl/internal/env"
	"github.com/GitWithJosh/cloud-computing-vl/internal/generator"
	"github.com/GitWithJosh/cloud-computing-vl/internal/logging"
	"github.com/GitWithJosh/cloud-computing-vl/internal/processor"
)

type Flags struct {
	Count       int
	Interval    time.Duration
	AnomalyRate float64
	Sensors     int
	Users       int
	Seed        uint64
}

func parseFlags() Flags {
	var flags Flags

	flag.IntVar(&flags.Count, "count", 0, "Number of events to send (0 = until interrupted)")
	flag.DurationVar(&flags.Interval, "interval", 500*time.Millisecond, "Delay between events")
	flag.Float64Var(&flags.AnomalyRate, "anomaly-rate", 0.2, "Fraction of events that are anomalies (0.0 - 1.0)")
	flag.IntVar(&flags.Sensors, "sensors", 20, "Number of distinct sensors to simulate")
	flag.IntVar(&flags.Users, "users", 20, "Number of distinct users to simulate")
	flag.Uint64Var(&flags.Seed, "seed", 0, "Random seed (0 = random)")

	flag.Parse()
	return flags
}

func init() {
	if os.Getenv("RUNNING_IN_DOCKER") == "" {
		_ = godotenv.Load("../../.env")
	}
}

func main() {
	flags := parseFlags()
	logCfg := logging.DefaultConfig()
	logCfg.Level = env.GetEnvString("LOG_LEVEL", logCfg.Level)
	logCfg.Format = env.GetEnvString("LOG_FORMAT", "console")
	log := logging.WithComponent(logging.New(logCfg), "generator")

	if flags.AnomalyRate < 0.0 || flags.AnomalyRate > 1.0 {
		log.Fatal().Float64("anomaly_rate", flags.AnomalyRate).Msg("anomaly rate must be between 0.0 and 1.0")
	}

	brokers := env.GetEnvList("KAFKA_BOOTSTRAP_SERVERS", []string{"localhost:9092"})
	client, err := kgo.NewClient(kgo.SeedBrokers(brokers...))
	if err != nil {
		log.Fatal().Err(err).Msg("unable to create kafka client")
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	timeout := env.GetEnvDuration("PUBLISH_TIMEOUT", processor.DefaultPublishTimeout)
	sinks := map[string]processor.Publisher{
		events.SourceSensorData: processor.NewProducer(client, env.GetEnvString("SENSOR_TOPIC", events.SourceSensorData), timeout),
		events.SourceUserEvents: processor.NewProducer(client, env.GetEnvString("USER_TOPIC", events.SourceUserEvents), timeout),
	}

	gen := generator.New(gofakeit.New(flags.Seed), flags.AnomalyRate, flags.Sensors, flags.Users)
	log.Info().
		Strs("brokers", brokers).
		Int("count", flags.Count).
		Dur("interval", flags.Interval).
		Float64("anomaly_rate", flags.AnomalyRate).
		Msg("generator started")

	sent, err := gen.Run(ctx, sinks, flags.Interval, flags.Count, log)
	if err != nil {
		log.Error().Err(err).Int("sent", sent).Msg("generator stopped")
		client.Close()
		os.Exit(1)
	}
	log.Info().Int("sent", sent).Msg("generator finished")
}
