package cmd

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"example.com/hospital/services/emr/eventstore"
	"example.com/hospital/services/emr/metrics"
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild [projection-id...]",
	Short: "Rebuild projections from the event log",
	Long:  `Truncate the named read models (all when none are named) and replay the full event log into them`,
	RunE:  runRebuild,
}

func init() {
	rootCmd.AddCommand(rebuildCmd)
}

func runRebuild(cmd *cobra.Command, args []string) error {
	db, err := initDatabase(cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize database")
		return err
	}

	eventStore := eventstore.NewGormEventStore(db, nil)
	search := initSearch(cfg)

	projector, err := buildProjector(cfg, db, eventStore, search, metrics.NewMetrics())
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := projector.InitProjections(ctx); err != nil {
		return err
	}

	targets := args
	if len(targets) == 0 {
		targets = projector.ProjectionIDs()
	}

	for _, projectionID := range targets {
		log.Info().Str("projection", projectionID).Msg("Rebuilding")
		if err := projector.RebuildProjection(ctx, projectionID); err != nil {
			log.Error().Err(err).Str("projection", projectionID).Msg("Rebuild failed")
			return err
		}
	}

	log.Info().Msg("Rebuild complete")
	return nil
}
