package main

import (
	"sync"

	"github.com/spf13/cobra"

	datasource "yfinance-go/src/data_source"
	"yfinance-go/src/data_source/yahoo"
	"yfinance-go/src/interfaces"
	"yfinance-go/src/logger"
	"yfinance-go/src/network"
	"yfinance-go/src/server"
	"yfinance-go/src/storage"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

// -----------------------------------------------------------------------------

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Polls the configured symbols and serves the REST and WebSocket API.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		appLogger := logger.NewLogger(cfg, cfg.Name)

		network.Initialize()
		defer network.Cleanup()

		// 1. Storage
		store, err := storage.NewStore(cfg.MConfig, logger.NewLogger(cfg, "Storage"))
		if err != nil {
			return err
		}
		if err := store.Initialize(); err != nil {
			return err
		}
		defer store.Close()

		// 2. Poller
		source, err := yahoo.NewYahooSource(cfg.MConfig)
		if err != nil {
			return err
		}
		manager := datasource.NewMultiSourceManager([]interfaces.IDataSource{source}, store, logger.NewLogger(cfg, "MultiSourceManager"))
		manager.Retention = storage.Retention(cfg.MConfig)

		// 3. API
		srv := server.NewAPIServer(cfg.MConfig, store, logger.NewLogger(cfg, "APIServer"))
		manager.Exchanger = srv

		serverErr := make(chan error, 1)
		go func() {
			serverErr <- srv.Start()
		}()

		// 4. Run until interrupted
		ctx := cmd.Context()
		var wg sync.WaitGroup
		if err := manager.Start(ctx, &wg); err != nil {
			srv.Stop()
			return err
		}

		select {
		case <-ctx.Done():
			appLogger.Info("Shutting down...")
		case err = <-serverErr:
			if err != nil {
				appLogger.Error("Server failed: %v", err)
			}
		}

		manager.Stop()
		wg.Wait()
		if stopErr := srv.Stop(); stopErr != nil {
			appLogger.Warning("Server shutdown: %v", stopErr)
		}
		return err
	},
}
