package main

import (
	"context"
	"expvar"
	"log"
	"runtime"

	"go.uber.org/zap"
	"spinroom/internal/game"
	"spinroom/internal/infrastructure/configs"
	"spinroom/internal/infrastructure/ratelimiter"
	"spinroom/internal/infrastructure/tracing"
	"spinroom/internal/infrastructure/ws"
	"spinroom/internal/presentation/api"
	healthHandler "spinroom/internal/presentation/handler/health"
	statusHandler "spinroom/internal/presentation/handler/status"
)

func main() {
	logger := zap.Must(zap.NewProduction()).Sugar()
	defer logger.Sync()

	configPath := configs.DetermineConfigPath()
	cfg, err := configs.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	shutdownTracer, err := tracing.InitTracer(tracing.NewDefaultConfig("spinroom"))
	if err != nil {
		logger.Warnw("tracing disabled", "error", err)
	} else {
		defer shutdownTracer(context.Background())
	}

	core := ws.NewCore(logger)
	store := game.NewRoomStore(cfg.Rooms.Capacity)
	scheduler := game.NewSpinScheduler(cfg.Spin, nil)
	coordinator := game.NewCoordinator(store, scheduler, core, game.NewTimerFactory(), logger)
	core.Bind(coordinator)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go coordinator.Run(ctx)

	rateLimiter := ratelimiter.NewFixedWindowRateLimiter(
		cfg.RateLimiter.RequestsPerTimeFrame,
		cfg.RateLimiter.TimeFrame,
	)
	defer rateLimiter.Close()

	app := api.NewApplication(
		*cfg,
		core,
		healthHandler.NewHandler(),
		statusHandler.NewHandler(),
		logger,
		rateLimiter,
	)

	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))

	mux := app.Mount()
	logger.Fatal(app.Run(mux))
}
