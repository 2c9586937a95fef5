package main

import (
	"context"
	"os"

	"github.com/ProfiFlow/backend/internal/analysis"
	"github.com/ProfiFlow/backend/internal/auth"
	"github.com/ProfiFlow/backend/internal/config"
	"github.com/ProfiFlow/backend/internal/database"
	"github.com/ProfiFlow/backend/internal/handlers"
	"github.com/ProfiFlow/backend/internal/llm"
	"github.com/ProfiFlow/backend/internal/logging"
	"github.com/ProfiFlow/backend/internal/realtime"
	"github.com/ProfiFlow/backend/internal/report"
	"github.com/ProfiFlow/backend/internal/routes"
	"github.com/ProfiFlow/backend/internal/store"
	"github.com/ProfiFlow/backend/internal/tracker"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "ProfiFlow backend: sprint reports over Yandex Tracker data",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Init(cfg.LogDir, verbose)

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}

	users := store.NewUserStore(db)
	trackers := store.NewTrackerStore(db)
	reports := store.NewReportStore(db)

	if cfg.Tracker.CloudID != "" || cfg.Tracker.OrgID != "" {
		trk, err := trackers.CreateOrUpdate(context.Background(), cfg.Tracker.Name, cfg.Tracker.CloudID, cfg.Tracker.OrgID)
		if err != nil {
			return err
		}
		log.Info().Int64("tracker_id", trk.ID).Str("name", trk.Name).Msg("tracker organization configured")
	}

	oauth := auth.NewYandexOAuth(cfg.OAuth)
	trackerClient := tracker.NewClient(cfg.TrackerBaseURL, cfg.TrackerCacheTTL, users, oauth)
	analyzer := analysis.NewAnalyzer(llm.NewYandexGPT(cfg.GPT))
	hub := realtime.NewHub()
	reportService := report.NewService(trackerClient, analyzer, reports, users, hub)

	engine := routes.SetupRoutes(routes.Handlers{
		Auth:    handlers.NewAuthHandler(oauth, users),
		Reports: handlers.NewReportHandler(reportService, trackerClient),
		Users:   handlers.NewUserHandler(users),
		Tracker: handlers.NewTrackerHandler(users, trackers),
		WS:      handlers.NewWSHandler(hub),
	})

	log.Info().Str("addr", cfg.Addr).Msg("server starting")
	return engine.Run(cfg.Addr)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("server exited")
		os.Exit(1)
	}
}
