package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/AndreasArnolfo/Babyrons/internal/config"
	"github.com/AndreasArnolfo/Babyrons/internal/repository/mongodb"
	"github.com/AndreasArnolfo/Babyrons/internal/repository/sheets"
	"github.com/AndreasArnolfo/Babyrons/internal/scheduler"
	"github.com/AndreasArnolfo/Babyrons/internal/server/handlers"
	"github.com/AndreasArnolfo/Babyrons/internal/server/router"
	photossvc "github.com/AndreasArnolfo/Babyrons/internal/service/photos"
	reportingsvc "github.com/AndreasArnolfo/Babyrons/internal/service/reporting"
	"github.com/AndreasArnolfo/Babyrons/internal/storage/sqlitekv"
	"github.com/AndreasArnolfo/Babyrons/internal/store"
	syncsvc "github.com/AndreasArnolfo/Babyrons/internal/sync"
	"github.com/AndreasArnolfo/Babyrons/pkg/clients/media"
	"github.com/AndreasArnolfo/Babyrons/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New())
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	kv, err := sqlitekv.Open(cfg.Storage.Path)
	if err != nil {
		baseLogger.Fatal("failed to open local store", zap.Error(err))
	}
	defer func() {
		if err := kv.Close(); err != nil {
			baseLogger.Error("failed to close local store", zap.Error(err))
		}
	}()

	// The remote backend is optional; without it the app runs local-only.
	var remote *mongodb.Repository
	if cfg.RemoteEnabled() {
		remote, err = mongodb.New(context.Background(), cfg.Mongo.URI, cfg.Mongo.DBName, baseLogger.Named("repo.mongodb"))
		if err != nil {
			baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
		}
		defer func() {
			if err := remote.Close(context.Background()); err != nil {
				baseLogger.Error("failed to close mongodb connection", zap.Error(err))
			}
		}()
	} else {
		baseLogger.Warn("remote backend not configured, running local-only")
	}

	var migrator store.PhotoMigrator
	if cfg.Media.UploadURL != "" {
		migrator = photossvc.NewService(media.NewClient(cfg.Media), baseLogger.Named("svc.photos"))
	}

	var gateway store.RemoteGateway
	if remote != nil {
		gateway = remote
	}
	st, err := store.New(kv, gateway, migrator, baseLogger.Named("store"))
	if err != nil {
		baseLogger.Fatal("failed to init store", zap.Error(err))
	}
	defer st.Close()

	identity := syncsvc.Identity{UserID: cfg.Sync.UserID, Email: cfg.Sync.Email}
	if remote != nil && identity.UserID != "" {
		st.SetUserID(identity.UserID)

		loadCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := st.LoadFromRemote(loadCtx); err != nil {
			baseLogger.Warn("initial remote load failed, continuing with local cache", zap.Error(err))
		}
		cancel()

		babiesListener := syncsvc.NewBabiesListener(remote, st, identity, baseLogger.Named("sync.babies"))
		if err := babiesListener.Start(context.Background()); err != nil {
			baseLogger.Warn("babies listener not started", zap.Error(err))
		}
		defer babiesListener.Stop()

		eventsListener := syncsvc.NewEventsListener(remote, st, identity, baseLogger.Named("sync.events"))
		if err := eventsListener.Start(context.Background()); err != nil {
			baseLogger.Warn("events listener not started", zap.Error(err))
		}
		defer eventsListener.Stop()
	}

	if cfg.SheetsEnabled() {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		reportingSvc := reportingsvc.NewService(st, sheetsRepo, cfg.Sheets.SummaryRange, baseLogger.Named("svc.reporting"))
		sched := scheduler.NewScheduler(cfg.Reporting, reportingSvc, baseLogger.Named("scheduler"))
		sched.Start()
		defer sched.Stop()
	} else {
		baseLogger.Info("sheets export not configured, weekly summary disabled")
	}

	babiesHandler := handlers.NewBabiesHandler(st, baseLogger.Named("handlers.babies"))
	eventsHandler := handlers.NewEventsHandler(st, baseLogger.Named("handlers.events"))
	settingsHandler := handlers.NewSettingsHandler(st, baseLogger.Named("handlers.settings"))
	engine := router.New(babiesHandler, eventsHandler, settingsHandler, baseLogger.Named("router"))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
