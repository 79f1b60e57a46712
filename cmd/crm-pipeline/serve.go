package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/fitglue/crm-pipeline/pkg/bootstrap"
	"github.com/fitglue/crm-pipeline/pkg/framework"
	"github.com/fitglue/crm-pipeline/pkg/trigger"
)

const shutdownTimeout = 10 * time.Second

type ServeOptions struct {
	Addr string
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP trigger",
		Long: `Serve the HTTP trigger on --addr (default :$PORT).

POST / accepts {"recordId": "..."} and answers with the outcome.
GET /healthz reports liveness.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default :$PORT)")

	return cmd
}

func serve(ctx context.Context, opts *ServeOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := bootstrap.NewService(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	addr := opts.Addr
	if addr == "" {
		addr = ":" + svc.Config.Port
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           newRouter(svc),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		svc.Logger.Info("Listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	svc.Logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newRouter(svc *bootstrap.Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		framework.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	// The trigger answers non-POST methods itself.
	r.HandleFunc("/", trigger.NewHTTPHandler(svc))

	return r
}
