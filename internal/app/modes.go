package app

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/domain"
	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/server"
	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/server/handler"
	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/server/ws"
	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/service"
	"github.com/samuraifrenchienft/Music-Legends-Final-sub000/internal/worker"
)

// services bundles the business layer built on top of Dependencies.
type services struct {
	trades   *service.TradeService
	mints    *service.MintService
	listings *service.ListingService
	reviews  *service.ReviewService
}

func (a *App) buildServices(deps *Dependencies) services {
	policy := service.SupplyPolicy{
		Epoch:          a.cfg.Supply.Epoch,
		TierCaps:       make(map[domain.Tier]int64, len(a.cfg.Supply.TierCaps)),
		ScarceTiers:    make(map[domain.Tier]bool, len(a.cfg.Supply.ScarceTiers)),
		DailyScarceCap: a.cfg.Supply.DailyScarceCap,
	}
	for tier, tierCap := range a.cfg.Supply.TierCaps {
		policy.TierCaps[domain.Tier(strings.ToLower(tier))] = tierCap
	}
	for _, tier := range a.cfg.Supply.ScarceTiers {
		policy.ScarceTiers[domain.Tier(strings.ToLower(tier))] = true
	}

	mints := service.NewMintService(
		deps.SupplyStore, deps.CardStore, deps.Templates, deps.MintLimiter,
		policy, deps.AuditStore, deps.SignalBus, a.logger,
	)
	trades := service.NewTradeService(
		deps.TradeStore, deps.CardStore, deps.EconomyStore, deps.LockManager,
		deps.AuditStore, deps.SignalBus, a.cfg.Trade.Window.Duration, a.logger,
	)
	listings := service.NewListingService(
		deps.ListingStore, deps.EconomyStore, deps.LockManager, deps.Processor,
		mints, deps.PaymentLog, a.cfg.Processor.Currency,
		deps.AuditStore, deps.SignalBus, a.logger,
	)
	reviews := service.NewReviewService(
		deps.ListingStore, deps.Processor, deps.Notifier,
		deps.AuditStore, deps.SignalBus, a.logger,
	)

	return services{trades: trades, mints: mints, listings: listings, reviews: reviews}
}

// ServeMode runs the HTTP API and WebSocket hub only.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)
	svcs := a.buildServices(deps)
	a.startServer(ctx, g, deps, svcs)
	return g.Wait()
}

// WorkerMode runs the periodic jobs only: sweeper, reconciler, archival.
func (a *App) WorkerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting worker mode")

	g, ctx := errgroup.WithContext(ctx)
	svcs := a.buildServices(deps)
	a.startWorkers(ctx, g, deps, svcs)
	return g.Wait()
}

// FullMode runs the API server and the periodic jobs in one process.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	svcs := a.buildServices(deps)
	a.startServer(ctx, g, deps, svcs)
	a.startWorkers(ctx, g, deps, svcs)
	return g.Wait()
}

func (a *App) startServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, svcs services) {
	if !a.cfg.Server.Enabled {
		a.logger.InfoContext(ctx, "http server disabled")
		return
	}

	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{
		Epoch:     a.cfg.Supply.Epoch,
		StartedAt: time.Now().UTC(),
	})
	g.Go(func() error {
		err := hub.Run(ctx)
		if err == context.Canceled {
			return nil
		}
		return err
	})

	handlers := server.Handlers{
		Health:   handler.NewHealthHandler(deps.Postgres, deps.Redis, a.logger),
		Trades:   handler.NewTradeHandler(svcs.trades, a.logger),
		Listings: handler.NewListingHandler(svcs.listings, a.logger),
		Cards:    handler.NewCardHandler(svcs.mints, a.logger),
		Admin:    handler.NewAdminHandler(svcs.reviews, svcs.listings, a.logger),
		Supply:   handler.NewSupplyHandler(svcs.mints, a.logger),
		Audit:    handler.NewAuditHandler(deps.AuditStore, a.logger),
		Balances: handler.NewBalanceHandler(deps.BalanceStore, a.logger),
	}
	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, handlers, hub, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

func (a *App) startWorkers(ctx context.Context, g *errgroup.Group, deps *Dependencies, svcs services) {
	sweeper := worker.NewSweeper(
		svcs.trades, a.cfg.Trade.SweepInterval.Duration, a.cfg.Trade.SweepBatch, a.logger,
	)
	g.Go(func() error {
		if err := sweeper.Run(ctx); err != context.Canceled {
			return err
		}
		return nil
	})

	reconciler := worker.NewReconciler(svcs.reviews, time.Hour, a.logger)
	g.Go(func() error {
		if err := reconciler.Run(ctx); err != context.Canceled {
			return err
		}
		return nil
	})

	if deps.Archiver != nil {
		archival := worker.NewArchival(
			deps.Archiver, a.cfg.Archive.Interval.Duration, a.cfg.Archive.RetentionDays, a.logger,
		)
		g.Go(func() error {
			if err := archival.Run(ctx); err != context.Canceled {
				return err
			}
			return nil
		})
	} else {
		a.logger.InfoContext(ctx, "archival disabled")
	}
}
