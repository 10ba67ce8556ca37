package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vijay-prabhu/matchcompat/internal/engine"
	"github.com/vijay-prabhu/matchcompat/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the incremental worker on a schedule",
	Long: `Run the incremental worker every worker.interval_seconds and serve
/metrics and /healthz on metrics.addr until interrupted.`,
	RunE: runServe,
}

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address for /metrics and /healthz (default: metrics.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	e, log, cleanup, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	addr := serveAddr
	if addr == "" {
		addr = e.Config().Metrics.Addr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           newOpsRouter(e),
		ReadHeaderTimeout: 5 * time.Second,
	}
	scheduler := worker.NewScheduler(e.Worker(), e.Config().Worker, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("ops listener starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		err := scheduler.Run(gctx)
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		shutdownCtx, done := context.WithTimeout(context.WithoutCancel(gctx), 10*time.Second)
		defer done()
		if serr := srv.Shutdown(shutdownCtx); serr != nil {
			log.Warn("ops listener shutdown failed", "error", serr)
		}
		return err
	})
	return g.Wait()
}

type healthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// newOpsRouter serves the prometheus registry and a database health check
func newOpsRouter(e *engine.Engine) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok"}
		code := http.StatusOK
		if err := e.Health(ctx); err != nil {
			resp = healthResponse{Status: "unavailable", Error: err.Error()}
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}
