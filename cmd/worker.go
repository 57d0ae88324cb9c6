package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"example.com/hospital/services/emr/eventstore"
	"example.com/hospital/services/emr/metrics"
	"example.com/hospital/services/emr/projections"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the projection worker",
	Long:  `Start the background worker that folds events into the read models`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	log.Info().Msg("Starting worker")

	db, err := initDatabase(cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize database")
		return err
	}

	// The worker never appends, so the store carries no notifier
	eventStore := eventstore.NewGormEventStore(db, nil)

	search := initSearch(cfg)
	if search != nil {
		if err := search.EnsureIndex(context.Background()); err != nil {
			log.Warn().Err(err).Msg("Failed to ensure search index")
		}
	}

	metricsCollector := metrics.NewMetrics()

	projector, err := buildProjector(cfg, db, eventStore, search, metricsCollector)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := projector.InitProjections(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to initialize projections")
		return err
	}
	for _, projectionID := range projector.ProjectionIDs() {
		if err := projector.StartProjection(ctx, projectionID); err != nil {
			log.Error().Err(err).Str("projection", projectionID).Msg("Failed to start projection")
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	bus := initEventBus(cfg)
	var subscriber projections.EventSubscriber
	if bus != nil {
		subscriber = bus
		defer bus.Close()
	}
	processor := projections.NewEventProcessor(projector, subscriber, cfg.Projector.PollInterval)
	processor.Start(ctx)

	// Dead-letter retry sweep as a fallback mechanism
	g.Go(func() error {
		log.Info().Msg("Starting dead-letter retry cron job")

		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return err
		}

		_, err = scheduler.NewJob(
			gocron.DurationJob(cfg.Projector.RetryInterval),
			gocron.NewTask(func() {
				if err := projector.RetryFailedEvents(ctx, 100); err != nil {
					log.Error().Err(err).Msg("Failed to retry dead-lettered events")
				}
			}),
		)
		if err != nil {
			return err
		}

		scheduler.Start()

		<-ctx.Done()

		return scheduler.Shutdown()
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("Worker error")
		processor.Stop()
		return err
	}

	log.Info().Msg("Shutting down worker...")
	processor.Stop()

	log.Info().Msg("Worker exited properly")
	return nil
}
