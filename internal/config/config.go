package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/GitWithJosh/cloud-computing-vl/internal/env"
	"github.com/GitWithJosh/cloud-computing-vl/internal/processor"
)

const pingTimeout = 10 * time.Second

// Settings is everything read from the environment. Loading it has no side
// effects; SetupConfig turns it into live clients.
type Settings struct {
	Brokers        []string      `validate:"required,min=1,dive,required"`
	ApplicationID  string        `validate:"required"`
	SensorTopic    string        `validate:"required"`
	UserTopic      string        `validate:"required,nefield=SensorTopic"`
	OutputTopic    string        `validate:"required,nefield=SensorTopic,nefield=UserTopic"`
	Workers        int           `validate:"min=1"`
	CommitInterval time.Duration `validate:"gt=0"`
	PublishTimeout time.Duration `validate:"gt=0"`
	MetricsAddr    string        `validate:"required"`
	PostgresURL    string
	RedisURL       string
	DeadLetterCap  int64 `validate:"min=1"`
	LogLevel       string
	LogFormat      string `validate:"omitempty,oneof=json console"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func LoadSettings() (Settings, error) {
	s := Settings{
		Brokers:        env.GetEnvList("KAFKA_BOOTSTRAP_SERVERS", []string{"kafka-headless:9092"}),
		ApplicationID:  env.GetEnvString("APPLICATION_ID", "sensor-anomaly-detector"),
		SensorTopic:    env.GetEnvString("SENSOR_TOPIC", "sensor-data"),
		UserTopic:      env.GetEnvString("USER_TOPIC", "user-events"),
		OutputTopic:    env.GetEnvString("OUTPUT_TOPIC", "ml-predictions"),
		Workers:        env.GetEnvInt("NUM_STREAM_THREADS", 1),
		CommitInterval: env.GetEnvDuration("COMMIT_INTERVAL", processor.DefaultCommitInterval),
		PublishTimeout: env.GetEnvDuration("PUBLISH_TIMEOUT", processor.DefaultPublishTimeout),
		MetricsAddr:    env.GetEnvString("METRICS_ADDR", ":9100"),
		PostgresURL:    env.GetEnvString("POSTGRES_URL", ""),
		RedisURL:       env.GetEnvString("REDIS_URL", ""),
		DeadLetterCap:  int64(env.GetEnvInt("DEAD_LETTER_CAP", 1000)),
		LogLevel:       env.GetEnvString("LOG_LEVEL", "info"),
		LogFormat:      strings.ToLower(env.GetEnvString("LOG_FORMAT", "json")),
	}

	if err := validate.Struct(s); err != nil {
		return Settings{}, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}

type Config struct {
	Settings
	Kafka *kgo.Client
	Redis *redis.Client
	Pg    *pgxpool.Pool
}

func setupKafka(ctx context.Context, s Settings) (*kgo.Client, error) {
	cl, err := kgo.NewClient(
		kgo.SeedBrokers(s.Brokers...),
		kgo.ClientID(s.ApplicationID),
		kgo.ConsumerGroup(s.ApplicationID),
		kgo.ConsumeTopics(s.SensorTopic, s.UserTopic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to create kafka client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := cl.Ping(pingCtx); err != nil {
		cl.Close()
		return nil, &processor.TransportError{Op: "kafka ping", Err: err}
	}
	return cl, nil
}

func setupRedis(url string) (*redis.Client, error) {
	if !strings.Contains(url, "://") {
		return redis.NewClient(&redis.Options{Addr: url, DB: 0}), nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

func setupPostgres(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to PostgreSQL: %w", err)
	}
	return pool, nil
}

// SetupConfig builds the clients. Redis and Postgres are only created when
// their URL is set.
func SetupConfig(ctx context.Context, s Settings) (*Config, error) {
	cfg := &Config{Settings: s}

	kafka, err := setupKafka(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("error configuring kafka: %w", err)
	}
	cfg.Kafka = kafka

	if s.RedisURL != "" {
		if cfg.Redis, err = setupRedis(s.RedisURL); err != nil {
			cfg.Close()
			return nil, err
		}
	}

	if s.PostgresURL != "" {
		if cfg.Pg, err = setupPostgres(ctx, s.PostgresURL); err != nil {
			cfg.Close()
			return nil, err
		}
	}

	return cfg, nil
}

// Close releases every client that was created. Safe to call on a partial config.
func (c *Config) Close() error {
	var errs []error
	if c.Kafka != nil {
		c.Kafka.Close()
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if c.Pg != nil {
		c.Pg.Close()
	}
	return errors.Join(errs...)
}
