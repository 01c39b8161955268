package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/asavelyev/notesync/internal/config"
	"github.com/asavelyev/notesync/internal/logger"
	"github.com/asavelyev/notesync/internal/remote"
	"github.com/asavelyev/notesync/internal/service"
	"github.com/asavelyev/notesync/internal/store"
	"github.com/asavelyev/notesync/internal/utils"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo()

	log := logger.NewClientLogger("notesync-client")
	cfg, err := config.GetClientConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
		syscall.SIGQUIT,
	)
	defer stop()

	db, err := store.NewLocalDB(ctx, cfg.Local, log)
	if err != nil {
		log.Fatal().Err(err).Msg("create local storage")
	}
	defer func() {
		if err = db.Close(); err != nil {
			log.Err(err).Msg("error closing local database")
		}
	}()

	localStorage := store.NewLocalStorage(db, log)

	deviceID, err := resolveDeviceID(ctx, localStorage, cfg.Device)
	if err != nil {
		log.Fatal().Err(err).Msg("resolve device identity")
	}
	log.Info().Str("device_id", deviceID).Msg("device identity resolved")

	objects, err := remote.NewHTTPObjectStore(cfg.Remote, log)
	if err != nil {
		log.Fatal().Err(err).Msg("create remote object store")
	}

	engine, err := service.NewEngine(ctx, localStorage, objects, cfg.Sync, deviceID, log)
	if err != nil {
		log.Fatal().Err(err).Msg("create sync engine")
	}

	engine.Start(ctx)

	<-ctx.Done()
	engine.Stop()
	log.Info().Msg("sync agent stopped gracefully")
}

// resolveDeviceID returns the persisted device identifier, assigning one on
// first run. A configured DEVICE_ID takes precedence over a generated uuid,
// but a previously persisted identity is never overwritten: the origin of
// already-synced generations must stay stable.
func resolveDeviceID(ctx context.Context, identity store.DeviceIdentity, cfg config.Device) (string, error) {
	id, err := identity.DeviceID(ctx)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, store.ErrNoDeviceIdentity) {
		return "", err
	}

	id = cfg.ID
	if id == "" {
		id = utils.NewUUIDGenerator().Generate()
	}
	if err = identity.SetDeviceID(ctx, id, cfg.Label); err != nil {
		return "", err
	}
	return id, nil
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
