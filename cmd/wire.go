package cmd

import (
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"example.com/hospital/services/emr/cache"
	"example.com/hospital/services/emr/commands"
	"example.com/hospital/services/emr/config"
	"example.com/hospital/services/emr/database"
	"example.com/hospital/services/emr/eventstore"
	"example.com/hospital/services/emr/messaging"
	"example.com/hospital/services/emr/metrics"
	"example.com/hospital/services/emr/projections"
	"example.com/hospital/services/emr/queries"
	"example.com/hospital/services/emr/repository"
)

// initDatabase connects and, when enabled, migrates the schema
func initDatabase(cfg config.Config) (*gorm.DB, error) {
	db, err := database.Connect(cfg.DB)
	if err != nil {
		return nil, err
	}
	if cfg.DB.EnableMigrations {
		if err := database.AutoMigrate(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// initEventBus builds the Redis event bus, nil when Redis is disabled
func initEventBus(cfg config.Config) *messaging.RedisEventBus {
	if !cfg.Redis.Enabled {
		return nil
	}
	bus, err := messaging.NewRedisEventBus(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize event bus, continuing with polling only")
		return nil
	}
	return bus
}

// initSearch builds the patient search indexer, nil when disabled
func initSearch(cfg config.Config) *projections.SearchIndexer {
	if !cfg.Elastic.Enabled {
		return nil
	}
	esClient, err := projections.NewElasticsearchClient(cfg.Elastic)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Elasticsearch, continuing without search")
		return nil
	}
	return projections.NewSearchIndexer(esClient, cfg.Elastic)
}

// buildCommandDispatcher wires every command handler
func buildCommandDispatcher(cfg config.Config, store eventstore.EventStore, m *metrics.Metrics) (*commands.Dispatcher, error) {
	dispatcher := commands.NewDispatcher(m, cfg.Dispatcher.Shards, cfg.Dispatcher.QueueDepth, cfg.Dispatcher.Timeout)

	maxRetries := cfg.Dispatcher.MaxRetries
	if err := commands.NewPatientHandler(store, maxRetries).Register(dispatcher); err != nil {
		return nil, err
	}
	if err := commands.NewAppointmentHandler(store, maxRetries).Register(dispatcher); err != nil {
		return nil, err
	}
	if err := commands.NewClinicalHandler(store, maxRetries).Register(dispatcher); err != nil {
		return nil, err
	}
	if err := commands.NewBillingHandler(store, maxRetries).Register(dispatcher); err != nil {
		return nil, err
	}
	return dispatcher, nil
}

// buildQueryDispatcher wires every query handler over the read models
func buildQueryDispatcher(db *gorm.DB, c cache.Cache, search *projections.SearchIndexer, m *metrics.Metrics) (*queries.Dispatcher, error) {
	dispatcher := queries.NewDispatcher(c, m)

	if err := queries.NewPatientQueryHandler(repository.NewPatientRepository(db), search).Register(dispatcher); err != nil {
		return nil, err
	}
	if err := queries.NewAppointmentQueryHandler(repository.NewAppointmentRepository(db)).Register(dispatcher); err != nil {
		return nil, err
	}
	if err := queries.NewClinicalQueryHandler(repository.NewClinicalNoteRepository(db)).Register(dispatcher); err != nil {
		return nil, err
	}
	if err := queries.NewBillingQueryHandler(repository.NewBillingRepository(db)).Register(dispatcher); err != nil {
		return nil, err
	}
	if err := queries.NewAnalyticsQueryHandler(repository.NewAnalyticsRepository(db)).Register(dispatcher); err != nil {
		return nil, err
	}
	return dispatcher, nil
}

// buildProjector registers every domain projector
func buildProjector(cfg config.Config, db *gorm.DB, store eventstore.EventStore, search *projections.SearchIndexer, m *metrics.Metrics) (*projections.Projector, error) {
	projector := projections.NewProjector(
		store,
		repository.NewProjectionRepository(db),
		m,
		cfg.Projector.BatchSize,
		cfg.Projector.MaxRetries,
		cfg.Projector.BreakerThreshold,
	)

	domainProjectors := []projections.DomainProjector{
		projections.NewPatientProjector(repository.NewPatientRepository(db), search),
		projections.NewAppointmentProjector(repository.NewAppointmentRepository(db)),
		projections.NewClinicalProjector(repository.NewClinicalNoteRepository(db)),
		projections.NewBillingProjector(repository.NewBillingRepository(db)),
		projections.NewAnalyticsProjector(repository.NewAnalyticsRepository(db)),
	}
	for _, dp := range domainProjectors {
		if err := projector.Register(dp); err != nil {
			return nil, err
		}
	}
	return projector, nil
}
