package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/lawnchairsociety/battalionsim/internal/config"
	"github.com/lawnchairsociety/battalionsim/internal/database"
	"github.com/lawnchairsociety/battalionsim/internal/gamedata"
	"github.com/lawnchairsociety/battalionsim/internal/logger"
	"github.com/lawnchairsociety/battalionsim/internal/server"
)

func main() {
	serverConfigFile := flag.String("config", "data/server.yaml", "Path to server config YAML file")
	loggingConfig := flag.String("logging", "data/logging.yaml", "Path to logging config YAML file")
	listen := flag.String("listen", "", "Listen address (overrides http.listen)")
	dataDir := flag.String("data-dir", "", "Path to game data directory (overrides data.dir)")
	noDB := flag.Bool("no-db", false, "Run without profile storage")
	deleteAccount := flag.String("delete-account", "", "Delete an account and its saved profile, then exit (requires username)")
	flag.Parse()

	logConfig, _ := logger.LoadConfig(*loggingConfig)
	if err := logger.Initialize(logConfig); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	cfg, err := config.LoadConfig(*serverConfigFile)
	if err != nil {
		logger.Warning("Failed to load server config, using defaults", "path", *serverConfigFile, "error", err)
		cfg = config.DefaultConfig()
	}
	if *listen != "" {
		cfg.HTTP.Listen = *listen
	}
	if *dataDir != "" {
		cfg.Data.Dir = *dataDir
	}

	if *deleteAccount != "" {
		handleDeleteAccount(cfg, *deleteAccount)
		return
	}

	logger.Info("Starting battalion advisor")

	data, report := gamedata.LoadDir(cfg.Data.Dir)
	for table, loadErr := range report.Failed {
		logger.Warning("Game data table unavailable", "table", table, "error", loadErr)
	}
	logger.Info("Game data loaded", "dir", cfg.Data.Dir, "tables", len(report.Loaded), "failed", len(report.Failed))
	if data.TroopStats == nil {
		logger.Error("Troop stats missing, every calculation will fail until data is fixed", "dir", cfg.Data.Dir)
	}

	var db *database.Database
	if *noDB {
		logger.Info("Profile storage disabled by flag")
	} else {
		dbCfg := databaseConfig(cfg.Database)
		db, err = database.OpenWithConfig(dbCfg)
		if err != nil {
			logger.Error("Failed to open database, profile storage disabled", "driver", dbCfg.Driver, "target", dbCfg.Target(), "error", err)
			db = nil
		} else {
			logger.Info("Profile storage ready", "driver", dbCfg.Driver, "target", dbCfg.Target())
			defer db.Close()
		}
	}

	switch {
	case len(cfg.WebSocket.AllowedOrigins) == 0:
		logger.Info("WebSocket CORS policy", "mode", "same-origin")
	case len(cfg.WebSocket.AllowedOrigins) == 1 && cfg.WebSocket.AllowedOrigins[0] == "*":
		logger.Warning("WebSocket CORS allows all origins (not recommended for production)")
	default:
		logger.Info("WebSocket CORS policy", "allowed_origins", cfg.WebSocket.AllowedOrigins)
	}

	srv := server.New(cfg, data, db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Info("Advisor running", "listen", cfg.HTTP.Listen, "profiles", db != nil)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("Server error", "error", err)
			os.Exit(1)
		}
		return
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warning("Shutdown did not complete cleanly", "error", err)
	}
	logger.Info("Server stopped")
}

func databaseConfig(c config.DatabaseConfig) database.Config {
	pg := database.DefaultPostgresConfig()
	pg.Host = c.Postgres.Host
	pg.Port = c.Postgres.Port
	pg.User = c.Postgres.User
	pg.Password = c.Postgres.Password
	pg.Database = c.Postgres.Database
	pg.SSLMode = c.Postgres.SSLMode
	if c.Postgres.MaxOpenConns > 0 {
		pg.MaxOpenConns = c.Postgres.MaxOpenConns
	}
	if c.Postgres.MaxIdleConns > 0 {
		pg.MaxIdleConns = c.Postgres.MaxIdleConns
	}
	return database.Config{
		Driver:     c.Driver,
		SQLitePath: c.SQLitePath,
		Postgres:   pg,
	}
}

// handleDeleteAccount removes an account and its profile and exits.
func handleDeleteAccount(cfg *config.ServerConfig, username string) {
	db, err := database.OpenWithConfig(databaseConfig(cfg.Database))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	account, err := db.GetAccountByUsername(username)
	if errors.Is(err, database.ErrAccountNotFound) {
		fmt.Fprintf(os.Stderr, "Error: Account '%s' not found\n", username)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := db.DeleteAccount(account.ID); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to delete account: %v\n", err)
		os.Exit(1)
	}
	logger.Audit("Account deleted from command line", "username", account.Username, "event", "account_delete")
	fmt.Printf("Account '%s' and its profile have been deleted.\n", account.Username)
}
