// Package container provides dependency injection for the bankfeed application.
// It centralizes the creation and wiring of all application dependencies,
// making them explicit and testable.
package container

import (
	"context"
	"fmt"

	"fjacquet/bankfeed/internal/categorizer"
	"fjacquet/bankfeed/internal/config"
	"fjacquet/bankfeed/internal/factory"
	"fjacquet/bankfeed/internal/importer"
	"fjacquet/bankfeed/internal/logging"
	"fjacquet/bankfeed/internal/parser"
	"fjacquet/bankfeed/internal/recurrence"
	"fjacquet/bankfeed/internal/registry"
	"fjacquet/bankfeed/internal/store"
	"fjacquet/bankfeed/internal/transfer"
)

// Container holds all application dependencies and provides methods to access them.
//
// Container is immutable after creation: all fields are private and can only
// be accessed through getter methods.
type Container struct {
	logger      logging.Logger
	config      *config.Config
	store       store.Store
	keywords    store.KeywordMap
	registry    *registry.Registry
	detector    *recurrence.Detector
	transfers   *transfer.Engine
	categorizer *categorizer.Engine
	importer    *importer.Importer
}

// Option adjusts how the container is built.
type Option func(*options)

type options struct {
	logger   logging.Logger
	inMemory bool
}

// WithLogger replaces the logger built from the configuration.
func WithLogger(logger logging.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMemoryStore uses a throwaway in-memory store instead of the SQLite database.
func WithMemoryStore() Option {
	return func(o *options) { o.inMemory = true }
}

// NewContainer creates and wires all application dependencies.
// This is the main entry point for dependency injection in the application.
func NewContainer(ctx context.Context, cfg *config.Config, opts ...Option) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	// Create logger first as it's needed by other components
	logger := o.logger
	if logger == nil {
		logger = logging.NewLogrusAdapterFromLogger(config.ConfigureLoggingFromConfig(cfg))
	}

	keywords, err := store.LoadKeywordMap(cfg.Categorization.KeywordsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load keyword map: %w", err)
	}

	var s store.Store
	if o.inMemory {
		s = store.NewMemoryStore()
	} else {
		s, err = store.OpenSQLite(ctx, cfg.Storage.Path, logger)
		if err != nil {
			return nil, err
		}
	}

	reg := registry.New(logger, factory.AllAdapters(logger)...)
	reg.Configure(parser.Options{
		HeaderScanRows:       cfg.Parsers.HeaderScanRows,
		HeaderMatchThreshold: cfg.Parsers.HeaderMatchThreshold,
	})

	detector := recurrence.NewDetector(cfg.Categorization.RecurrenceThreshold, logger)
	transfers := transfer.NewEngine(s, cfg.Transfers.DateWindowDays, logger)

	// Auto-linking is optional; manual link commands keep working without it.
	var linker categorizer.TransferLinker
	if cfg.Transfers.AutoLink {
		linker = transfers
	}

	cat := categorizer.NewEngine(s, reg, linker, detector, keywords, logger,
		categorizer.WithKeywordConfidence(cfg.Categorization.KeywordConfidence))
	imp := importer.New(s, reg, cat, linker, logger)

	logger.Debug("Container initialized",
		logging.Field{Key: "adapters", Value: len(reg.Adapters())},
		logging.Field{Key: "keywords", Value: len(keywords)},
		logging.Field{Key: "in_memory", Value: o.inMemory},
		logging.Field{Key: "auto_link", Value: cfg.Transfers.AutoLink})

	return &Container{
		logger:      logger,
		config:      cfg,
		store:       s,
		keywords:    keywords,
		registry:    reg,
		detector:    detector,
		transfers:   transfers,
		categorizer: cat,
		importer:    imp,
	}, nil
}

// GetLogger returns the container's logger instance.
func (c *Container) GetLogger() logging.Logger {
	return c.logger
}

// GetConfig returns the container's configuration instance.
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetStore returns the storage collaborator.
func (c *Container) GetStore() store.Store {
	return c.store
}

// GetKeywords returns the keyword map in use.
func (c *Container) GetKeywords() store.KeywordMap {
	return c.keywords
}

// GetRegistry returns the bank adapter registry.
func (c *Container) GetRegistry() *registry.Registry {
	return c.registry
}

// GetDetector returns the recurrence detector.
func (c *Container) GetDetector() *recurrence.Detector {
	return c.detector
}

// GetTransfers returns the transfer matching engine.
func (c *Container) GetTransfers() *transfer.Engine {
	return c.transfers
}

// GetCategorizer returns the categorization engine.
func (c *Container) GetCategorizer() *categorizer.Engine {
	return c.categorizer
}

// GetImporter returns the import pipeline.
func (c *Container) GetImporter() *importer.Importer {
	return c.importer
}

// ImportOptions returns import options for accountID filled from the configuration.
func (c *Container) ImportOptions(accountID string) importer.Options {
	return importer.Options{
		AccountID:          accountID,
		PossibleDuplicates: importer.Policy(c.config.Import.PossibleDuplicates),
		BatchSize:          c.config.Import.BatchSize,
	}
}

// Close releases the store.
func (c *Container) Close() error {
	if err := c.store.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}
	c.logger.Debug("Container closed")
	return nil
}
