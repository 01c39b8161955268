package main

import (
	"context"
	"fmt"

	"github.com/asavelyev/notesync/internal/config"
	httphandler "github.com/asavelyev/notesync/internal/handler/http"
	"github.com/asavelyev/notesync/internal/logger"
	"github.com/asavelyev/notesync/internal/server"
	"github.com/asavelyev/notesync/internal/store"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo()

	log := logger.NewLogger("notesync-server")
	cfg, err := config.GetServerConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}

	log.Debug().Any("config", cfg).Msg("received configs")

	db, err := store.NewConnectPostgres(context.Background(), cfg.DB, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error connecting database")
	}
	defer func() {
		if err = db.Close(); err != nil {
			log.Err(err).Msg("error closing database")
		}
	}()

	handlers := httphandler.NewHandler(
		store.NewObjectRepository(db, log),
		store.NewDeviceRepository(db, log),
		cfg.App,
		log,
	)

	srv, err := server.NewServer(handlers.Init(), cfg.Server, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating server")
	}

	srv.RunServer()
}

func printBuildInfo() {
	if buildVersion == "" {
		buildVersion = "N/A"
	}

	if buildDate == "" {
		buildDate = "N/A"
	}

	if buildCommit == "" {
		buildCommit = "N/A"
	}

	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)
}
