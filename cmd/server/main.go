package main

import (
	"context"
	"flag"

	"go.uber.org/zap"

	"github.com/opennavx/navsim/pkg/engine"
	"github.com/opennavx/navsim/pkg/http"
	"github.com/opennavx/navsim/pkg/http/usecases"
	"github.com/opennavx/navsim/pkg/logger"
	"github.com/opennavx/navsim/pkg/simulation"
	"github.com/opennavx/navsim/pkg/util"
)

var (
	useRateLimit = flag.Bool("use_rate_limit", false, "enable per-client API rate limiting")
)

func main() {
	flag.Parse()
	logger, err := logger.New()
	if err != nil {
		panic(err)
	}
	if err := util.ReadConfig(); err != nil {
		logger.Warn("config file not found, using defaults", zap.Error(err))
	}

	regionEngine, err := engine.New(logger)
	if err != nil {
		panic(err)
	}

	api := http.NewServer(logger)

	routingService := usecases.NewRoutingService(logger, regionEngine)
	simulationManager := simulation.NewManager(logger)
	simulationService := usecases.NewSimulationService(logger, routingService, simulationManager)

	ctx, cleanup, err := NewContext()
	if err != nil {
		panic(err)
	}
	api.Use(ctx,
		logger, *useRateLimit, routingService, simulationService)

	signal := http.GracefulShutdown()

	simulationManager.Shutdown()
	logger.Info("NavSim Server Stopped", zap.String("signal", signal.String()))
	cleanup()
}

func NewContext() (context.Context, func(), error) {
	ctx, cancel := context.WithCancel(context.Background())
	cb := func() {
		cancel()
	}

	return ctx, cb, nil
}
