package http

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // profiling is opt-in via flag
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"github.com/spf13/cobra"
	otlpruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/pitlap/race-analytics-service-go/log"
	"github.com/pitlap/race-analytics-service-go/pkg/cmd/options"
	"github.com/pitlap/race-analytics-service-go/pkg/config"
	"github.com/pitlap/race-analytics-service-go/pkg/db/postgres"
	"github.com/pitlap/race-analytics-service-go/pkg/forecast"
	"github.com/pitlap/race-analytics-service-go/pkg/repository/impl"
	"github.com/pitlap/race-analytics-service-go/pkg/server"
	"github.com/pitlap/race-analytics-service-go/pkg/service"
	"github.com/pitlap/race-analytics-service-go/pkg/sim/championship"
	"github.com/pitlap/race-analytics-service-go/pkg/utils"
)

//nolint:funlen // flag definitions
func NewServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "http",
		Short: "starts the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return startServer(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&config.HTTPServerAddr,
		"http-server-addr",
		"a",
		"localhost:8080",
		"HTTP server listen address")
	cmd.Flags().StringVar(&config.TLSServerAddr,
		"tls-server-addr",
		"",
		"TLS server listen address (empty: no TLS listener)")
	cmd.Flags().StringVar(&config.TLSCertFile,
		"tls-cert",
		"",
		"path to TLS certificate file")
	cmd.Flags().StringVar(&config.TLSKeyFile,
		"tls-key",
		"",
		"path to TLS key file")
	cmd.Flags().StringVar(&config.TraefikCerts,
		"traefik-certs",
		"",
		"path to the traefik acme.json file")
	cmd.Flags().StringVar(&config.TraefikCertDomain,
		"traefik-cert-domain",
		"",
		"domain to look up in the traefik certs")
	cmd.Flags().BoolVar(&config.EnableTelemetry,
		"enable-telemetry",
		false,
		"enables telemetry")
	cmd.Flags().StringVar(&config.TelemetryEndpoint,
		"telemetry-endpoint",
		"localhost:4317",
		"Endpoint that receives open telemetry data")
	cmd.Flags().IntVar(&config.ProfilingPort,
		"profiling-port",
		0,
		"port to use for providing profiling data")
	cmd.Flags().StringVar(&config.ForecastServiceURL,
		"forecast-service-url",
		"",
		"base URL of the ranking service (empty: use stored forecasts)")
	cmd.Flags().StringVar(&config.SimDeadline,
		"sim-deadline",
		"10s",
		"time budget for a single championship simulation request")
	cmd.Flags().IntVar(&config.SimWorkers,
		"sim-workers",
		0,
		"number of simulation workers (0: number of CPUs)")
	cmd.Flags().IntVar(&config.FastTrialCap,
		"fast-trial-cap",
		1000,
		"maximum number of trials in fast mode")
	cmd.Flags().IntVar(&config.FullTrialCap,
		"full-trial-cap",
		100000,
		"maximum number of trials in full mode")
	return cmd
}

//nolint:funlen // by design
func startServer(ctx context.Context) error {
	logger, sqlLogger := options.SetupLoggers()

	if config.ProfilingPort > 0 {
		log.Info("Starting profiling server on port",
			log.Int("port", config.ProfilingPort))
		go func() {
			//nolint:gosec // local profiling endpoint
			err := http.ListenAndServe(
				fmt.Sprintf("localhost:%d", config.ProfilingPort),
				nil)
			if err != nil {
				log.Error("Profiling server stopped", log.ErrorField(err))
			}
		}()
	}

	waitForRequiredServices()

	var telemetry *config.Telemetry
	if config.EnableTelemetry {
		log.Info("Enabling telemetry")
		var err error
		if telemetry, err = config.SetupTelemetry(ctx); err != nil {
			log.Warn("Could not setup telemetry", log.ErrorField(err))
		}
		err = otlpruntime.Start(
			otlpruntime.WithMinimumReadMemStatsInterval(time.Second))
		if err != nil {
			log.Warn("Could not start runtime metrics", log.ErrorField(err))
		}
	}

	log.Info("Starting server")
	pool := postgres.InitWithURL(
		config.DB,
		postgres.WithTracer(sqlLogger.Sugar()),
	)
	defer postgres.CloseDb()

	repos := impl.NewRepositories(pool)
	var provider forecast.Provider
	if config.ForecastServiceURL != "" {
		provider = forecast.NewHTTPProvider(config.ForecastServiceURL)
	} else {
		provider = forecast.NewStoreProvider(repos.Forecast())
	}

	deadline, err := time.ParseDuration(config.SimDeadline)
	if err != nil {
		log.Warn("Invalid sim-deadline. Using 10s", log.ErrorField(err))
		deadline = 10 * time.Second
	}
	champ := service.NewChampionshipService(repos, provider,
		service.WithSimulator(championship.NewSimulator(
			championship.WithTrialCaps(config.FastTrialCap, config.FullTrialCap))),
		service.WithDeadline(deadline),
		service.WithWorkers(config.SimWorkers))
	srv := server.New(
		service.NewAnalysisService(repos),
		champ,
		server.WithLogger(logger.Named("server")))

	handler := h2c.NewHandler(newCORS().Handler(srv.Handler()), &http2.Server{})
	errChan := make(chan error, 2)

	log.Info("Starting HTTP server", log.String("addr", config.HTTPServerAddr))
	//nolint:gosec // timeouts are handled per request
	httpServer := &http.Server{
		Addr:    config.HTTPServerAddr,
		Handler: handler,
	}
	go func() { errChan <- httpServer.ListenAndServe() }()

	var tlsServer *http.Server
	if config.TLSServerAddr != "" {
		if tlsConfig := NewTLSConfigProvider(ctx); tlsConfig != nil {
			log.Info("Starting TLS server", log.String("addr", config.TLSServerAddr))
			//nolint:gosec // timeouts are handled per request
			tlsServer = &http.Server{
				Addr:      config.TLSServerAddr,
				Handler:   handler,
				TLSConfig: tlsConfig,
			}
			go func() { errChan <- tlsServer.ListenAndServeTLS("", "") }()
		} else {
			log.Warn("TLS server requested but no certificate available")
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case v := <-sigChan:
		log.Debug("Got signal", log.Any("signal", v))
	case err := <-errChan:
		log.Error("server could not be started", log.ErrorField(err))
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP server shutdown", log.ErrorField(err))
	}
	if tlsServer != nil {
		if err := tlsServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("TLS server shutdown", log.ErrorField(err))
		}
	}
	if telemetry != nil {
		telemetry.Shutdown()
	}
	log.Info("Server terminated")
	return nil
}

func waitForRequiredServices() {
	timeout, err := time.ParseDuration(config.WaitForServices)
	if err != nil {
		log.Warn("Invalid duration value. Setting default 60s", log.ErrorField(err))
		timeout = 60 * time.Second
	}
	postgresAddr := utils.ExtractFromDBURL(config.DB)
	if err := utils.WaitForTCP(postgresAddr, timeout); err != nil {
		log.Fatal("database not ready", log.ErrorField(err))
	}
	if config.ForecastServiceURL != "" {
		if err := utils.WaitForHTTPResponse(
			config.ForecastServiceURL, timeout); err != nil {
			log.Warn("ranking service not reachable", log.ErrorField(err))
		}
	}
}

func newCORS() *cors.Cors {
	return cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowedHeaders: []string{"*"},
		MaxAge:         int(2 * time.Hour / time.Second),
	})
}
