package app

import (
	"context"
	"fmt"

	"github.com/allisson/eventledger/internal/database"
	outboxHTTP "github.com/allisson/eventledger/internal/outbox/http"
	"github.com/allisson/eventledger/internal/outbox/publisher"
	outboxRepository "github.com/allisson/eventledger/internal/outbox/repository"
	outboxService "github.com/allisson/eventledger/internal/outbox/service"
	outboxUsecase "github.com/allisson/eventledger/internal/outbox/usecase"
)

// PayloadSealer returns the payload sealer, or nil when OUTBOX_PAYLOAD_KEY_URI is empty.
func (c *Container) PayloadSealer() (*outboxService.PayloadSealer, error) {
	var err error
	c.payloadSealerInit.Do(func() {
		c.payloadSealer, err = c.initPayloadSealer()
		if err != nil {
			c.initErrors["payloadSealer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["payloadSealer"]; exists {
		return nil, storedErr
	}
	return c.payloadSealer, nil
}

// Ledger returns the outbox ledger for the configured driver, sealed and instrumented.
func (c *Container) Ledger() (outboxUsecase.Ledger, error) {
	var err error
	c.ledgerInit.Do(func() {
		c.ledger, err = c.initLedger()
		if err != nil {
			c.initErrors["ledger"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["ledger"]; exists {
		return nil, storedErr
	}
	return c.ledger, nil
}

// Publisher returns the publisher selected by PUBLISHER_DRIVER.
func (c *Container) Publisher() (publisher.Publisher, error) {
	var err error
	c.publisherInit.Do(func() {
		c.publisher, err = c.initPublisher()
		if err != nil {
			c.initErrors["publisher"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["publisher"]; exists {
		return nil, storedErr
	}
	return c.publisher, nil
}

// UnitOfWork returns the unit of work shared by aggregate use cases.
func (c *Container) UnitOfWork() (outboxUsecase.UnitOfWork, error) {
	var err error
	c.unitOfWorkInit.Do(func() {
		c.unitOfWork, err = c.initUnitOfWork()
		if err != nil {
			c.initErrors["unitOfWork"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["unitOfWork"]; exists {
		return nil, storedErr
	}
	return c.unitOfWork, nil
}

// Dispatcher returns the outbox dispatcher.
func (c *Container) Dispatcher() (*outboxUsecase.Dispatcher, error) {
	var err error
	c.dispatcherInit.Do(func() {
		c.dispatcher, err = c.initDispatcher()
		if err != nil {
			c.initErrors["dispatcher"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["dispatcher"]; exists {
		return nil, storedErr
	}
	return c.dispatcher, nil
}

// OutboxUseCase returns the ledger housekeeping use case.
func (c *Container) OutboxUseCase() (outboxUsecase.OutboxUseCase, error) {
	var err error
	c.outboxUseCaseInit.Do(func() {
		c.outboxUseCase, err = c.initOutboxUseCase()
		if err != nil {
			c.initErrors["outboxUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["outboxUseCase"]; exists {
		return nil, storedErr
	}
	return c.outboxUseCase, nil
}

// OutboxHandler returns the HTTP handler for the operator API.
func (c *Container) OutboxHandler() (*outboxHTTP.OutboxHandler, error) {
	var err error
	c.outboxHandlerInit.Do(func() {
		c.outboxHandler, err = c.initOutboxHandler()
		if err != nil {
			c.initErrors["outboxHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["outboxHandler"]; exists {
		return nil, storedErr
	}
	return c.outboxHandler, nil
}

// DispatcherConfig maps the application configuration to the dispatcher configuration.
func (c *Container) DispatcherConfig() outboxUsecase.Config {
	return outboxUsecase.Config{
		BatchSize:         c.config.OutboxBatchSize,
		PollInterval:      c.config.OutboxPollInterval,
		PublishTimeout:    c.config.OutboxPublishTimeout,
		MaxRetries:        c.config.OutboxMaxRetries,
		PublishRatePerSec: c.config.OutboxPublishRatePerSec,
		RetryBackoff:      c.config.OutboxRetryBackoff,
		MaxRetryBackoff:   c.config.OutboxMaxRetryBackoff,
	}
}

func (c *Container) initPayloadSealer() (*outboxService.PayloadSealer, error) {
	if c.config.OutboxPayloadKeyURI == "" {
		return nil, nil
	}
	return outboxService.OpenPayloadSealer(context.Background(), c.config.OutboxPayloadKeyURI)
}

// initLedger selects the repository by driver, then layers sealing and metrics on top.
func (c *Container) initLedger() (outboxUsecase.Ledger, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for outbox ledger: %w", err)
	}

	var ledger outboxUsecase.Ledger
	switch c.config.DBDriver {
	case database.DriverPostgres:
		ledger = outboxRepository.NewPostgreSQLOutboxRepository(db)
	case database.DriverMySQL:
		ledger = outboxRepository.NewMySQLOutboxRepository(db)
	case database.DriverSQLite:
		ledger = outboxRepository.NewSQLiteOutboxRepository(db)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}

	sealer, err := c.PayloadSealer()
	if err != nil {
		return nil, fmt.Errorf("failed to get payload sealer for outbox ledger: %w", err)
	}
	if sealer != nil {
		ledger = outboxUsecase.NewSealedLedger(ledger, sealer)
	}

	bm, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for outbox ledger: %w", err)
	}
	if err := bm.ObserveBacklog(ledger.CountUnpublished); err != nil {
		return nil, fmt.Errorf("failed to observe outbox backlog: %w", err)
	}
	return outboxUsecase.NewLedgerWithMetrics(ledger, bm), nil
}

func (c *Container) initPublisher() (publisher.Publisher, error) {
	routes, err := c.config.PublisherRouteMap()
	if err != nil {
		return nil, err
	}
	kafkaTopics, err := c.config.KafkaTopicMap()
	if err != nil {
		return nil, err
	}

	p, err := publisher.New(context.Background(), publisher.Config{
		Driver:           c.config.PublisherDriver,
		Routes:           routes,
		KafkaBrokers:     c.config.KafkaBrokerList(),
		KafkaTopicPrefix: c.config.KafkaTopicPrefix,
		KafkaTopics:      kafkaTopics,
		Redis: publisher.RedisConfig{
			Addr:     c.config.RedisAddr,
			Password: c.config.RedisPassword,
			DB:       c.config.RedisDB,
			Stream:   c.config.RedisStream,
			MaxLen:   c.config.RedisStreamMaxLen,
		},
		PubSubTopicURL: c.config.PubSubTopicURL,
	}, c.Logger())
	if err != nil {
		return nil, fmt.Errorf("failed to create %s publisher: %w", c.config.PublisherDriver, err)
	}
	return p, nil
}

func (c *Container) initUnitOfWork() (outboxUsecase.UnitOfWork, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for unit of work: %w", err)
	}
	ledger, err := c.Ledger()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox ledger for unit of work: %w", err)
	}
	return outboxUsecase.NewUnitOfWork(txManager, ledger), nil
}

func (c *Container) initDispatcher() (*outboxUsecase.Dispatcher, error) {
	ledger, err := c.Ledger()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox ledger for dispatcher: %w", err)
	}
	p, err := c.Publisher()
	if err != nil {
		return nil, fmt.Errorf("failed to get publisher for dispatcher: %w", err)
	}
	bm, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for dispatcher: %w", err)
	}

	logger := c.Logger()
	dispatcher, err := outboxUsecase.NewDispatcher(
		c.DispatcherConfig(),
		ledger,
		outboxUsecase.NewPublisherWithMetrics(p, bm),
		outboxUsecase.NewEscalationWithMetrics(outboxUsecase.NewLogEscalationPolicy(logger), bm),
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatcher: %w", err)
	}
	return dispatcher, nil
}

func (c *Container) initOutboxUseCase() (outboxUsecase.OutboxUseCase, error) {
	ledger, err := c.Ledger()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox ledger for outbox use case: %w", err)
	}
	bm, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for outbox use case: %w", err)
	}
	return outboxUsecase.NewOutboxUseCaseWithMetrics(outboxUsecase.NewOutboxUseCase(ledger), bm), nil
}

func (c *Container) initOutboxHandler() (*outboxHTTP.OutboxHandler, error) {
	useCase, err := c.OutboxUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox use case for outbox handler: %w", err)
	}
	return outboxHTTP.NewOutboxHandler(useCase, c.config.OutboxMaxRetries, c.Logger()), nil
}
