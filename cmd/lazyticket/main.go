package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/Joseda-hg/lazyticket/internal/api"
	"github.com/Joseda-hg/lazyticket/internal/config"
	"github.com/Joseda-hg/lazyticket/internal/db"
	"github.com/Joseda-hg/lazyticket/internal/logging"
	"github.com/Joseda-hg/lazyticket/internal/tui"
	flag "github.com/spf13/pflag"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPathFlag := flag.String("config", "", "config file path")
	dbPathFlag := flag.String("db", "", "sqlite db path")
	serverFlag := flag.String("server", "", "backend base URL")
	logLevelFlag := flag.String("log-level", "", "log level (debug, info, warn, error)")
	flag.Parse()

	cfgPath, err := resolveConfigPath(*configPathFlag)
	if err != nil {
		log.Print(err)
		return 1
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Print(err)
		return 1
	}

	if *dbPathFlag != "" {
		cfg.DBPath = *dbPathFlag
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(filepath.Dir(cfgPath), "lazyticket.db")
	}
	if *serverFlag != "" {
		cfg.ServerURL = *serverFlag
	}
	if cfg.LogPath == "" {
		cfg.LogPath = filepath.Join(filepath.Dir(cfgPath), "lazyticket.log")
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		log.Print(err)
		return 1
	}

	cfg, err = config.WithEnv(cfg)
	if err != nil {
		log.Print(err)
		return 1
	}
	if *logLevelFlag != "" {
		cfg.LogLevel = *logLevelFlag
	}
	if err := cfg.Validate(); err != nil {
		log.Print(err)
		return 1
	}

	logger, logCloser, err := logging.New(logging.Options{Level: cfg.LogLevel, Path: cfg.LogPath})
	if err != nil {
		log.Print(err)
		return 1
	}
	defer logCloser.Close()
	logger.Info("starting", "server", cfg.ServerURL, "db", cfg.DBPath)

	store, err := openStore(cfg.DBPath)
	if err != nil {
		log.Print(err)
		return 1
	}
	defer store.DB.Close()

	client := api.NewClient(cfg.ServerURL,
		api.WithTimeout(cfg.Timeout()),
		api.WithLogger(logging.WithComponent(logger, "api")),
	)

	if err := tui.Run(tui.Options{Backend: client, Sessions: store, Logger: logger}); err != nil {
		logger.Error("tui exited", "error", err)
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func resolveConfigPath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	return config.DefaultConfigPath()
}

func openStore(dbPath string) (*db.Store, error) {
	if err := config.EnsureDir(dbPath); err != nil {
		return nil, err
	}

	sqlDB, err := db.Open(dbPath)
	if err != nil {
		return nil, err
	}

	return db.NewStore(sqlDB), nil
}
