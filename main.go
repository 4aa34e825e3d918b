package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/alecthomas/kong"
	"github.com/sirupsen/logrus"

	"github.com/danpilch/transitpal/internal/api"
	"github.com/danpilch/transitpal/internal/api/bike"
	"github.com/danpilch/transitpal/internal/api/bus"
	"github.com/danpilch/transitpal/internal/api/train"
	"github.com/danpilch/transitpal/internal/config"
	"github.com/danpilch/transitpal/internal/favorites"
	"github.com/danpilch/transitpal/internal/fetch"
	"github.com/danpilch/transitpal/internal/monitor"
	"github.com/danpilch/transitpal/internal/notify"
	"github.com/danpilch/transitpal/internal/report"
	"github.com/danpilch/transitpal/internal/routecache"
	"github.com/danpilch/transitpal/internal/scheduler"
	"github.com/danpilch/transitpal/internal/server"
	"github.com/danpilch/transitpal/internal/state"
	"github.com/danpilch/transitpal/internal/store"
)

var version = "dev"

type Globals struct {
	Config string `help:"Path to config file" default:"config.yaml" type:"path"`
	Debug  bool   `help:"Enable debug logging"`
}

var CLI struct {
	Globals

	Run       RunCmd       `cmd:"" default:"1" help:"Keep favorite arrivals refreshed (default)"`
	Favorites FavoritesCmd `cmd:"" help:"Edit the favorites file"`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("transitpal"),
		kong.Description("Keeps train, bus and bike-share data for your favorite stops fresh."),
	)

	// Setup structured logging with logfmt
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetLevel(logrus.InfoLevel)
	if CLI.Debug {
		logger.SetLevel(logrus.DebugLevel)
	}
	logger.SetFormatter(&logrus.TextFormatter{
		DisableColors: true,
		FullTimestamp: true,
	})

	ctx.FatalIfErrorf(ctx.Run(&CLI.Globals, logger))
}

type RunCmd struct{}

func (r *RunCmd) Run(g *Globals, logger *logrus.Logger) error {
	// Load configuration
	cfg, err := config.Load(g.Config)
	if err != nil {
		return err
	}

	// Get credentials from environment
	creds, err := config.CredentialsFromEnv()
	if err != nil {
		return err
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	reporting, err := report.Setup(creds.SentryDSN, "production", version)
	if err != nil {
		logger.WithField("error", err).Warn("failed to initialise sentry, continuing without error reporting")
	}
	defer report.Flush()

	initialFavorites, err := favorites.Load(cfg.FavoritesFile)
	if err != nil {
		return fmt.Errorf("loading favorites: %w", err)
	}

	// Initialize clients
	httpClient := api.NewPooledClient()
	trainClient := train.NewClient(httpClient, cfg.Train.BaseURL, creds.TrainAPIKey, loc)
	busClient := bus.NewClient(httpClient, cfg.Bus.BaseURL, creds.BusAPIKey, loc)
	bikeClient := bike.NewClient(httpClient, cfg.Bike.BaseURL)

	orch := fetch.NewOrchestrator(
		fetch.NewTrainFetcher(trainClient, logger),
		fetch.NewBusFetcher(busClient, logger),
		fetch.NewBikeFetcher(bikeClient, logger),
	)

	// The store, persister and alert sender outlive the signal context so that
	// shutdown can flush them in order.
	lifetime := context.Background()

	st := store.New(state.New(initialFavorites), logger)
	st.Start(lifetime)

	var routes fetch.RouteCache
	if cfg.Redis.Address != "" {
		redisClient, err := routecache.Connect(lifetime, cfg.Redis.Address, creds.RedisPassword, cfg.Redis.DB)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"address": cfg.Redis.Address,
				"error":   err,
			}).Warn("route cache unavailable, fetching routes directly")
		} else {
			defer redisClient.Close()
			routes = routecache.New(redisClient, cfg.Redis.RouteTTL, logger)
		}
	}

	refresher := fetch.NewRefresher(orch, busClient, routes, st, logger)

	// Initialize subscribers
	st.Subscribe(monitor.NewStatusMonitor(st, logger))

	persister := favorites.NewPersister(cfg.FavoritesFile, initialFavorites, logger)
	persister.Start(lifetime)
	st.Subscribe(persister)

	var alerts *monitor.AlertMonitor
	if creds.AlertsEnabled() {
		notifier := notify.NewNotifier(creds.PushoverToken, creds.PushoverUser, logger)
		alerts = monitor.NewAlertMonitor(notifier, logger)
		alerts.Start(lifetime)
		st.Subscribe(alerts)
	} else {
		logger.Info("PUSHOVER_TOKEN or PUSHOVER_USER not set, push alerts disabled")
	}

	sched := scheduler.NewScheduler(scheduler.Intervals{
		Refresh: cfg.RefreshInterval,
		Elapsed: cfg.ElapsedInterval,
		Routes:  cfg.RoutesInterval,
	}, refresher, st, logger)

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1, syscall.SIGUSR2)

	go func() {
		for sig := range sigCh {
			switch sig {
			case syscall.SIGUSR1:
				sched.Pause()
			case syscall.SIGUSR2:
				sched.Resume(ctx)
			default:
				logger.WithField("signal", sig).Info("received signal, shutting down")
				cancel()
				return
			}
		}
	}()

	var (
		httpServer *http.Server
		apiServer  *server.Server
	)
	if cfg.Listen != "" {
		apiServer = server.New(st, refresher, logger, version)
		errorLog := logger.WriterLevel(logrus.ErrorLevel)
		defer errorLog.Close()

		httpServer = &http.Server{
			Addr:         cfg.Listen,
			Handler:      apiServer.Routes(ctx),
			IdleTimeout:  time.Minute,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			ErrorLog:     log.New(errorLog, "", 0),
		}

		go func() {
			logger.WithField("addr", httpServer.Addr).Info("starting http server")
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.WithField("error", err).Error("http server failed")
				report.ReportError(err)
				cancel()
			}
		}()
	}

	logger.WithFields(logrus.Fields{
		"favorites":        len(initialFavorites),
		"refresh_interval": cfg.RefreshInterval,
		"timezone":         loc.String(),
		"route_cache":      routes != nil,
		"sentry":           reporting,
	}).Info("starting transitpal")

	sched.Start(ctx)

	// Wait for context cancellation
	<-ctx.Done()

	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.WithField("error", err).Warn("http server did not shut down cleanly")
		}
		shutdownCancel()
		apiServer.Wait()
	}

	sched.Stop()

	flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := st.Flush(flushCtx); err != nil {
		logger.WithField("error", err).Warn("store did not flush before shutdown")
	}
	flushCancel()

	if alerts != nil {
		alerts.Stop()
	}
	persister.Stop()
	st.Stop()

	logger.Info("transitpal stopped")
	return nil
}
