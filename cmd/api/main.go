package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"battery-sizing/internal/api"
	"battery-sizing/internal/api/handlers"
	"battery-sizing/internal/config"
	"battery-sizing/internal/data"
	"battery-sizing/internal/logging"
	"battery-sizing/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfgPath := flag.String("config", os.Getenv("BSIZE_CONFIG"), "configuration file (optional)")
	flag.Parse()

	log := logging.New("api")
	if err := run(*cfgPath); err != nil {
		log.Fatal().Err(err).Msg("api server stopped")
	}
}

func run(cfgPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logging.SetLevel(cfg.Logging.Level)
	log := logging.New("api")

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	sink, err := metrics.NewPromSink(reg)
	if err != nil {
		return fmt.Errorf("prom sink: %w", err)
	}

	store := data.NewSeriesStore(cfg.Server.SessionTTL())
	if ttl := cfg.Server.SessionTTL(); ttl > 0 {
		store.StartCleanup(ttl / 4)
	}
	defer store.Close()

	router := api.NewRouter(&handlers.Env{
		Config:  cfg,
		Store:   store,
		Metrics: sink,
		Log:     log,
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("env", cfg.Server.Env).
			Str("battery_dir", cfg.Server.BatteryDir).
			Msg("starting api server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
