package commands

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/haivivi/voxkey/pkg/voiceauth"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API.

Routes:
  POST   /v1/enroll             enroll from {"owner_id", "recordings"}
  POST   /v1/verify             verify {"owner_id", "recording"}
  GET    /v1/templates          list enrolled owners
  GET    /v1/templates/{owner}  template metadata
  DELETE /v1/templates/{owner}  remove a template
  GET    /healthz               liveness
  GET    /metrics               Prometheus metrics

The listen address defaults to http.addr from the config file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		reg := newRegistry()
		e, err := openEnv(ctx, voiceauth.NewMetrics(reg))
		if err != nil {
			return err
		}
		defer e.Close()

		addr := e.cfg.HTTP.Addr
		if serveAddr != "" {
			addr = serveAddr
		}
		srv := newHTTPServer(addr, e.svc, reg)
		return runServer(ctx, srv)
	},
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func newHTTPServer(addr string, svc *voiceauth.Service, reg *prometheus.Registry) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           voiceauth.NewHandler(svc, voiceauth.HandlerOptions{Metrics: svc.Metrics(), Gatherer: reg}),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// runServer serves until ctx is done, then shuts down gracefully.
func runServer(ctx context.Context, srv *http.Server) error {
	errc := make(chan error, 1)
	go func() {
		slog.Info("voxkey: listening", "addr", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	slog.Info("voxkey: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides http.addr)")
	rootCmd.AddCommand(serveCmd)
}
