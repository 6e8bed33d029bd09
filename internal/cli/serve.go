package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/junioryono/component"
	"github.com/junioryono/component/internal/config"
	"github.com/junioryono/component/internal/gizmo"
	"github.com/junioryono/component/middleware"
)

func newServeCommand(a *app) *cobra.Command {
	defaults := config.Defaults()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve greetings with one component scope per request",
		Long: `serve answers GET /greeting with the greeting of the registered gizmo.
Requests with ?gizmo=alternative register an alternative gizmo factory in
their own scope, which leaves every other request untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runServe(cmd.Context())
		},
	}

	cmd.Flags().String("addr", defaults.Server.Addr, "listen address")
	_ = a.v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))

	return cmd
}

func (a *app) runServe(ctx context.Context) (err error) {
	inj, err := a.newInjector()
	if err != nil {
		return err
	}
	defer closeInjector(inj, &err)

	if err := registerGreeting(ctx, inj); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           newRouter(inj, a.logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// greetingController answers greeting requests. One is built per request.
type greetingController struct {
	Gizmo   gizmo.Gizmo
	Request *http.Request
}

type greetingResponse struct {
	Gizmo     string `json:"gizmo"`
	Greeting  string `json:"greeting"`
	RequestID string `json:"request_id,omitempty"`
}

// Greet writes the gizmo and its greeting as JSON.
func (c *greetingController) Greet(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(greetingResponse{
		Gizmo:     fmt.Sprint(c.Gizmo),
		Greeting:  c.Gizmo.Greeting(),
		RequestID: chimw.GetReqID(c.Request.Context()),
	})
}

// registerGreeting registers the original gizmo and the controller
// factory in the root scope.
func registerGreeting(ctx context.Context, inj *component.Injector) error {
	if err := inj.Register(ctx, gizmo.NewOriginal()); err != nil {
		return err
	}

	return inj.RegisterFactory(ctx, func(ctx context.Context) (*greetingController, error) {
		g, err := component.Resolve[gizmo.Gizmo](ctx, inj)
		if err != nil {
			return nil, err
		}

		r, err := component.Resolve[*http.Request](ctx, inj)
		if err != nil {
			return nil, err
		}

		return &greetingController{Gizmo: g, Request: r}, nil
	})
}

func newRouter(inj *component.Injector, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(logger))
	r.Use(chimw.Recoverer)

	r.Use(middleware.ScopeMiddleware(inj,
		middleware.WithSetup(func(scope *component.Scope, r *http.Request) error {
			if r.URL.Query().Get("gizmo") != "alternative" {
				return nil
			}
			return inj.RegisterFactory(r.Context(), gizmo.NewAlternative)
		}),
		middleware.WithLogger(logger),
	))

	r.Get("/greeting", middleware.Handle(inj, (*greetingController).Greet,
		middleware.WithHandleLogger(logger),
		middleware.WithResolutionErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Error("failed to resolve controller", "error", err, "request_id", chimw.GetReqID(r.Context()))
			code := middleware.StatusCode(err)
			http.Error(w, http.StatusText(code), code)
		}),
	))

	return r
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", chimw.GetReqID(r.Context()),
			)
		})
	}
}
