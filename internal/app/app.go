package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"price-target-alerts/internal/alerting"
	"price-target-alerts/internal/api"
	"price-target-alerts/internal/config"
	"price-target-alerts/internal/feed"
	"price-target-alerts/internal/monitor"
	"price-target-alerts/internal/scheduler"
	"price-target-alerts/internal/storage"
	"price-target-alerts/internal/swap"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newFeed() (feed.PriceFeed, error) {
	switch a.Config.Feed.Provider {
	case "coingecko":
		return feed.NewCoingecko(feed.CoingeckoOptions{
			BaseURL:   a.Config.Feed.Coingecko.BaseURL,
			Timeout:   a.Config.Feed.Coingecko.RequestTimeout,
			UserAgent: a.Config.Feed.Coingecko.UserAgent,
			APIKey:    a.Config.Feed.Coingecko.APIKey,
		}, a.Logger), nil
	case "chainlink":
		return feed.NewChainlink(feed.ChainlinkOptions{
			RPCURL:      a.Config.Feed.Chainlink.RPCURL,
			Aggregators: a.Config.Feed.Chainlink.Aggregators,
			Timeout:     a.Config.Feed.Chainlink.RequestTimeout,
		}, a.Logger), nil
	default:
		return nil, fmt.Errorf("unknown feed provider %q", a.Config.Feed.Provider)
	}
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Email.Host == "" {
		return nil
	}
	return alerting.NewEmailNotifier(alerting.EmailOptions{
		Host:     a.Config.Email.Host,
		Port:     a.Config.Email.Port,
		Username: a.Config.Email.Username,
		Password: a.Config.Email.Password,
		From:     a.Config.Email.From,
	}, a.Logger)
}

func (a *App) newQuoter(priceFeed feed.PriceFeed) *swap.Quoter {
	return swap.New(swap.Options{
		FeeRate:     decimal.NewFromFloat(a.Config.Swap.FeeRate),
		SourceChain: a.Config.Swap.SourceChain,
		TargetChain: a.Config.Swap.TargetChain,
	}, priceFeed, a.Logger)
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, errors.New("database.dsn is not configured")
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// Run executes the long-running monitoring service together with the HTTP API.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	priceFeed, err := a.newFeed()
	if err != nil {
		return err
	}
	notifier := a.newNotifier()
	if notifier == nil {
		a.Logger.Warn().Msg("email.host not configured; notifications disabled")
	}

	engine := monitor.New(monitor.Options{
		TrackedChains:        a.Config.Monitor.TrackedChains,
		WatchedChains:        a.Config.Monitor.WatchedChains,
		IncreaseThresholdPct: decimal.NewFromFloat(a.Config.Monitor.IncreaseThresholdPct),
		DetectionLookback:    a.Config.Monitor.DetectionLookback,
		CallTimeout:          a.Config.Monitor.CallTimeout,
		SampleWorkers:        a.Config.Monitor.SampleWorkers,
		OpsEmail:             a.Config.Monitor.OpsEmail,
		LockKey:              a.Config.Scheduler.AdvisoryLockKey,
	}, priceFeed, store, store, notifier, store, a.Logger)

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToBucket,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	server := api.New(api.Options{
		ListenAddr:      a.Config.API.ListenAddr,
		ShutdownTimeout: a.Config.API.ShutdownTimeout,
	}, store, store, a.newQuoter(priceFeed), a.Logger)

	a.Logger.Info().Msg("starting monitoring service")

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return sched.Run(groupCtx, engine.RunCycle)
	})
	group.Go(func() error {
		return server.Run(groupCtx)
	})

	err = group.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("monitoring service stopped")
	return nil
}

// ExportOptions hold parameters for exporting historical samples.
type ExportOptions struct {
	Chain     string
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Chain string
	Limit int
}

// SetAlertOptions configure the set-alert command.
type SetAlertOptions struct {
	Chain       string
	TargetPrice decimal.Decimal
	Email       string
}
