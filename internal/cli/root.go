// Package cli implements the gizmo command.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/junioryono/component"
	"github.com/junioryono/component/internal/config"
	"github.com/junioryono/component/internal/gizmo"
	"github.com/junioryono/component/internal/tracing"
)

// app is the state shared by the commands of one invocation.
type app struct {
	v        *viper.Viper
	cfgFile  string
	envFiles []string

	cfg     config.Config
	logger  *slog.Logger
	tracing *tracing.Provider
}

// NewRootCommand builds the gizmo command tree.
func NewRootCommand(version string) *cobra.Command {
	a := &app{v: viper.New()}
	defaults := config.Defaults()

	root := &cobra.Command{
		Use:               "gizmo",
		Short:             "Scoped component injection, demonstrated with gizmos",
		Long:              `gizmo registers gizmos in a component injector and shows how scopes override, share and dispose them.`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.tracing.Shutdown(cmd.Context())
		},
	}

	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "",
		"config file (yaml, json or toml)")
	root.PersistentFlags().StringSliceVar(&a.envFiles, "env-file", []string{".env"},
		".env files to load before reading the environment")
	root.PersistentFlags().String("log-level", defaults.LogLevel,
		"log level (debug, info, warn, error)")
	_ = a.v.BindPFlag("log_level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(
		newDemoCommand(a),
		newAsyncCommand(a),
		newServeCommand(a),
	)

	return root
}

// Execute runs the root command until it finishes or the process is interrupted.
func Execute(version string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return NewRootCommand(version).ExecuteContext(ctx)
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.v, a.cfgFile, a.envFiles...)
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))

	a.tracing, err = tracing.NewProvider(cmd.Context(), cfg.Tracing, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("setting up tracing: %w", err)
	}

	return nil
}

func (a *app) newInjector() (*component.Injector, error) {
	return component.New(
		component.WithLogger(a.logger),
		component.WithTracerProvider(a.tracing.TracerProvider()),
		component.WithInterfaces(gizmo.Type),
	)
}

// closeInjector closes inj and reports the error through errp unless an
// earlier error is already set.
func closeInjector(inj *component.Injector, errp *error) {
	if err := inj.Close(); err != nil && *errp == nil {
		*errp = err
	}
}

// syncWriter serializes writes from concurrent demo loops.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
