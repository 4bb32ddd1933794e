package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Supported publisher drivers.
const (
	DriverLog    = "log"
	DriverKafka  = "kafka"
	DriverRedis  = "redis"
	DriverPubSub = "pubsub"
)

// Config selects and configures the publisher built by New.
type Config struct {
	Driver string
	// Routes sends event types to drivers other than Driver.
	Routes map[string]string

	KafkaBrokers     []string
	KafkaTopicPrefix string
	KafkaTopics      map[string]string

	Redis RedisConfig

	PubSubTopicURL string
}

// New builds the publisher selected by cfg.Driver. When cfg.Routes is set it returns a Router
// with the default driver as fallback. Each driver is built once and closed by the router.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (Publisher, error) {
	if len(cfg.Routes) == 0 {
		return newDriver(ctx, cfg.Driver, cfg, logger)
	}

	built := make(map[string]Publisher)
	closeAll := func() {
		for _, p := range built {
			_ = p.Close()
		}
	}
	driverFor := func(driver string) (Publisher, error) {
		if driver == "" {
			driver = DriverLog
		}
		if p, ok := built[driver]; ok {
			return p, nil
		}
		p, err := newDriver(ctx, driver, cfg, logger)
		if err != nil {
			return nil, err
		}
		built[driver] = p
		return p, nil
	}

	fallback, err := driverFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	router := NewRouter(fallback)
	for eventType, driver := range cfg.Routes {
		p, err := driverFor(driver)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("route %s: %w", eventType, err)
		}
		router.Handle(eventType, p)
	}

	for _, p := range built {
		router.owned = append(router.owned, p)
	}
	return router, nil
}

func newDriver(ctx context.Context, driver string, cfg Config, logger *slog.Logger) (Publisher, error) {
	switch driver {
	case DriverLog, "":
		return NewLogPublisher(logger), nil
	case DriverKafka:
		return NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopicPrefix, cfg.KafkaTopics)
	case DriverRedis:
		client, err := ConnectRedis(cfg.Redis)
		if err != nil {
			return nil, err
		}
		p, err := NewRedisStreamPublisher(client, cfg.Redis.Stream, cfg.Redis.MaxLen)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		return p, nil
	case DriverPubSub:
		return OpenPubSubPublisher(ctx, cfg.PubSubTopicURL)
	default:
		return nil, fmt.Errorf("unsupported publisher driver: %s", driver)
	}
}

// closeEach closes every publisher and joins the errors.
func closeEach(publishers []Publisher) error {
	var errs []error
	for _, p := range publishers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
