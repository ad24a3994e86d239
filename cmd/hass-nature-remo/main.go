package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/glockpete/hass-nature-remo/internal/config"
	"github.com/glockpete/hass-nature-remo/internal/core"
	"github.com/glockpete/hass-nature-remo/internal/remo"
	"github.com/glockpete/hass-nature-remo/internal/server"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	token, err := cfg.ResolveToken()
	if err != nil {
		log.Fatalf("resolve token: %v", err)
	}

	service, err := remo.NewService(remo.Config{
		AccessToken:     token,
		BaseURL:         cfg.BaseURL,
		PollInterval:    time.Duration(cfg.PollIntervalSeconds) * time.Second,
		RequestTimeout:  time.Duration(cfg.TimeoutSeconds) * time.Second,
		DefaultCoolTemp: cfg.CoolTemperature,
		DefaultHeatTemp: cfg.HeatTemperature,
	})
	if err != nil {
		log.Fatalf("init service: %v", err)
	}

	coordinator := service.Coordinator()
	coordinator.SetErrorHandler(func(err error) {
		log.Printf("poll failed, serving last snapshot: %v", err)
	})

	if cfg.MQTT != nil {
		publisher, err := remo.NewPublisher(*cfg.MQTT)
		if err != nil {
			log.Fatalf("mqtt connect: %v", err)
		}
		defer publisher.Close()
		coordinator.AddListener(func(snap *remo.Snapshot) {
			if err := publisher.PublishSnapshot(snap, service.Climates()); err != nil {
				log.Printf("mqtt publish: %v", err)
			}
		})
	}

	plugins := []core.Plugin{remo.NewPlugin(service)}
	if err := core.ValidatePlugins(plugins); err != nil {
		log.Fatalf("validate plugins: %v", err)
	}

	metricsRegistry := core.MetricsRegistry(plugins)
	metricsRegistry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "hass_nature_remo_build_info",
		Help: "Build information",
	}, func() float64 { return 1 }))

	registry := core.NewRegistryService(plugins)

	httpMux := http.NewServeMux()
	httpMux.HandleFunc("/health", server.HealthHandler)
	httpMux.Handle("/metrics", server.MetricsHandler(metricsRegistry))
	registry.RegisterHTTP(httpMux)
	for _, plugin := range plugins {
		if registrant, ok := plugin.(core.HTTPRegistrant); ok {
			registrant.RegisterHTTP(httpMux)
		}
	}

	httpServer := server.NewHTTPServer(cfg.HTTPAddr, httpMux)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http serve: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := coordinator.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		var authErr *remo.AuthError
		if errors.As(err, &authErr) {
			log.Fatalf("access token rejected, re-authentication required: %v", err)
		}
		log.Fatalf("poll loop: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Server.Shutdown(shutdownCtx)
}
