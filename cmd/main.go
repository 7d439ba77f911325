package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/davidbz/hearth/internal/config"
	"github.com/davidbz/hearth/internal/domain"
	"github.com/davidbz/hearth/internal/httpserver"
	"github.com/davidbz/hearth/internal/httpserver/middleware"
	"github.com/davidbz/hearth/internal/metrics"
	"github.com/davidbz/hearth/internal/observability"
	"github.com/davidbz/hearth/internal/provider/custom"
	"github.com/davidbz/hearth/internal/provider/echo"
	"github.com/davidbz/hearth/internal/provider/gemini"
	"github.com/davidbz/hearth/internal/provider/openai"
	"github.com/davidbz/hearth/internal/provider/registry"
	"github.com/davidbz/hearth/internal/stream"
	"github.com/davidbz/hearth/internal/upstream"
)

func main() {
	container := buildContainer()

	err := container.Invoke(func(server *httpserver.Server, cfg *config.ServerConfig, _ *zap.Logger) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start()
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeout)*time.Second)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	})
	if err != nil {
		log.Fatalf("Server stopped with error: %v", err)
	}
}

func buildContainer() *dig.Container {
	container := dig.New()

	// Configuration
	if err := container.Provide(config.Load); err != nil {
		log.Fatalf("Failed to provide config: %v", err)
	}
	if err := container.Provide(config.ParseDependenciesConfig); err != nil {
		log.Fatalf("Failed to provide config dependencies: %v", err)
	}

	// Observability
	if err := container.Provide(func(cfg *config.LogConfig) (*zap.Logger, error) {
		return observability.InitLogger(cfg.Level)
	}); err != nil {
		log.Fatalf("Failed to provide logger: %v", err)
	}

	// Metrics
	if err := container.Provide(func() *prometheus.Registry {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		return reg
	}); err != nil {
		log.Fatalf("Failed to provide metrics registry: %v", err)
	}
	if err := container.Provide(func(reg *prometheus.Registry) *metrics.Recorder {
		return metrics.NewRecorder(reg)
	}); err != nil {
		log.Fatalf("Failed to provide metrics recorder: %v", err)
	}

	// Provider Registry
	if err := container.Provide(newProviderRegistry); err != nil {
		log.Fatalf("Failed to provide registry: %v", err)
	}

	// Upstream
	if err := container.Provide(upstream.NewClients); err != nil {
		log.Fatalf("Failed to provide upstream clients: %v", err)
	}
	if err := container.Provide(upstream.NewForwarder, dig.As(new(domain.Forwarder))); err != nil {
		log.Fatalf("Failed to provide forwarder: %v", err)
	}

	// Domain Services
	if err := container.Provide(domain.NewGatewayService); err != nil {
		log.Fatalf("Failed to provide gateway service: %v", err)
	}
	if err := container.Provide(stream.NewTracker); err != nil {
		log.Fatalf("Failed to provide stream tracker: %v", err)
	}

	// HTTP Layer
	if err := container.Provide(httpserver.NewHandler); err != nil {
		log.Fatalf("Failed to provide HTTP handler: %v", err)
	}
	if err := container.Provide(middleware.BuildMiddlewareChain); err != nil {
		log.Fatalf("Failed to provide middleware chain: %v", err)
	}
	if err := container.Provide(newMounts); err != nil {
		log.Fatalf("Failed to provide auxiliary routes: %v", err)
	}
	if err := container.Provide(httpserver.NewServer); err != nil {
		log.Fatalf("Failed to provide HTTP server: %v", err)
	}

	return container
}

// newProviderRegistry builds every known adapter from the resolved settings.
func newProviderRegistry(cfg *config.ProvidersConfig) (domain.ProviderRegistry, error) {
	settings, err := cfg.ProviderSettings()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve provider settings: %w", err)
	}

	openaiProvider, err := openai.NewProvider(settings[domain.ProviderOpenAI])
	if err != nil {
		return nil, err
	}
	deepseekProvider, err := openai.NewProvider(settings[domain.ProviderDeepSeek])
	if err != nil {
		return nil, err
	}
	geminiProvider, err := gemini.NewProvider(settings[domain.ProviderGemini])
	if err != nil {
		return nil, err
	}
	customProvider, err := custom.NewProvider(settings[domain.ProviderCustom])
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	reg := registry.NewRegistry()
	for _, p := range []domain.Provider{openaiProvider, deepseekProvider, geminiProvider, customProvider} {
		if err := reg.Register(ctx, p); err != nil {
			return nil, fmt.Errorf("failed to register %s provider: %w", p.Name(), err)
		}
	}

	return reg, nil
}

// newMounts collects the optional routes enabled by configuration.
func newMounts(
	metricsCfg *config.MetricsConfig,
	echoCfg *config.EchoConfig,
	reg *prometheus.Registry,
) []httpserver.Mount {
	var mounts []httpserver.Mount

	if metricsCfg.Enabled {
		mounts = append(mounts, httpserver.Mount{
			Pattern: "GET " + metricsCfg.Path,
			Handler: metrics.Handler(reg),
		})
	}

	if echoCfg.Enabled {
		mounts = append(mounts, httpserver.Mount{
			Pattern: "/echo/",
			Handler: http.StripPrefix("/echo", echo.NewUpstream(echo.Config{APIKey: echoCfg.APIKey})),
		})
	}

	return mounts
}
