package main

import (
	"context"
	"fmt"
	"time"

	"product-filter/src/app"
	"product-filter/src/grpc_control"
	"product-filter/src/interfaces"
	"product-filter/src/logger"
	"product-filter/src/models"
	"product-filter/src/server"
	"product-filter/src/utils"

	"google.golang.org/grpc"
)

type runningServers struct {
	api       *server.APIServer
	grpc      *grpc.Server
	scheduler *utils.Scheduler
	errs      chan error
}

// -----------------------------------------------------------------------------

// startServers orchestrates the startup of all server components
func startServers(ctx context.Context, a *app.App, appLogger *logger.Logger) *runningServers {
	conf := a.Config
	rs := &runningServers{errs: make(chan error, 2)}

	// 1. HTTP + WebSocket API
	rs.api = server.NewAPIServer(conf.MConfig, server.Services{
		Searcher:   searcher{a},
		Trends:     a.Trends,
		Prices:     a.Prices,
		Store:      a.Store,
		Cache:      cacheOrNil(a),
		Categories: conf.Categories,
		Metrics:    a.Metrics,
	}, appLogger.Named("APIServer"))
	a.AttachExchanger(rs.api)

	go func() {
		if err := rs.api.Start(); err != nil {
			rs.errs <- fmt.Errorf("http: %w", err)
		}
	}()

	// 2. gRPC entry point
	if conf.GrpcPort != 0 {
		addr := fmt.Sprintf("%s:%d", conf.GrpcHost, conf.GrpcPort)
		svc := grpc_control.NewControlService(searcher{a}, a.Trends, conf.Categories, appLogger.Named("ControlService"))
		var grpcErrs <-chan error
		rs.grpc, grpcErrs = grpc_control.Serve(addr, svc, appLogger.Named("ControlService"))
		go func() {
			if err := <-grpcErrs; err != nil {
				rs.errs <- fmt.Errorf("grpc: %w", err)
			}
		}()
	}

	// 3. Recommended price updates
	if conf.PriceUpdate.Enabled {
		interval := time.Duration(conf.PriceUpdate.IntervalMinutes) * time.Minute
		rs.scheduler = utils.NewScheduler("price-update", interval, func(ctx context.Context) error {
			a.Prices.RunOnce(ctx)
			return ctx.Err()
		}, appLogger.Named("Scheduler"))
		if err := rs.scheduler.Start(ctx, false); err != nil {
			appLogger.Error("Price updates disabled: %v", err)
			rs.scheduler = nil
		}
	}

	return rs
}

// -----------------------------------------------------------------------------

func (rs *runningServers) stop() {
	if rs.scheduler != nil {
		rs.scheduler.Stop()
	}
	if rs.grpc != nil {
		rs.grpc.GracefulStop()
	}
	if err := rs.api.Stop(); err != nil {
		rs.api.Logger.Warning("HTTP shutdown: %v", err)
	}
}

// -----------------------------------------------------------------------------

// searcher resolves the orchestrator per call, since attaching the API
// server as exchanger replaces it.
type searcher struct{ a *app.App }

func (s searcher) Search(ctx context.Context, req models.MSearchRequest) (*models.MSearchResponse, error) {
	return s.a.Orchestrator.Search(ctx, req)
}

func cacheOrNil(a *app.App) interfaces.IPriceCache {
	if a.Cache == nil {
		return nil
	}
	return a.Cache
}
