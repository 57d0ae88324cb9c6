package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"example.com/hospital/services/emr/api"
	"example.com/hospital/services/emr/cache"
	"example.com/hospital/services/emr/eventstore"
	"example.com/hospital/services/emr/messaging"
	"example.com/hospital/services/emr/metrics"
	"example.com/hospital/services/emr/tracing"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the API server",
	RunE:  runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	log.Info().Msg("Starting server")

	db, err := initDatabase(cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize database")
		return err
	}

	bus := initEventBus(cfg)
	var notifier eventstore.Notifier
	if bus != nil {
		notifier = bus
		defer bus.Close()
	}
	eventStore := eventstore.NewGormEventStore(db, notifier)

	redisCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis cache, continuing without caching")
	}

	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
	}

	search := initSearch(cfg)
	metricsCollector := metrics.NewMetrics()

	commandDispatcher, err := buildCommandDispatcher(cfg, eventStore, metricsCollector)
	if err != nil {
		return err
	}

	var queryCache cache.Cache
	if redisCache != nil {
		queryCache = redisCache
	}
	queryDispatcher, err := buildQueryDispatcher(db, queryCache, search, metricsCollector)
	if err != nil {
		return err
	}

	projector, err := buildProjector(cfg, db, eventStore, search, metricsCollector)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Async command shards
	commandDispatcher.Start(ctx)

	// External command intake
	if cfg.Azure.Enabled {
		azureClient, err := messaging.NewAzureClient(cfg.Azure)
		if err != nil {
			log.Error().Err(err).Msg("Failed to initialize Azure Service Bus")
			return err
		}
		msgProcessor := messaging.NewProcessor(commandDispatcher)
		go func() {
			if err := azureClient.StartConsumers(cfg.Azure.CommandsQueueName, msgProcessor); err != nil {
				log.Error().Err(err).Msg("Commands queue consumer stopped")
			}
		}()
	}

	server := api.NewServer(cfg, commandDispatcher, queryDispatcher, projector, metricsCollector, tracer)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start HTTP server")
		}
	}()

	<-ctx.Done()

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	commandDispatcher.Stop()
	if tracer != nil {
		tracer.Close()
	}

	log.Info().Msg("Server exited properly")
	return nil
}
