package cli

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"github.com/junioryono/component"
	"github.com/junioryono/component/internal/config"
	"github.com/junioryono/component/internal/gizmo"
)

func newAsyncCommand(a *app) *cobra.Command {
	defaults := config.Defaults()

	cmd := &cobra.Command{
		Use:   "async",
		Short: "Run two concurrent gizmo loops, one of them in its own scope",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAsync(cmd.Context(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().Int("iterations", defaults.Demo.Iterations, "greetings per loop")
	cmd.Flags().Duration("interval", defaults.Demo.Interval, "pause between greetings")
	_ = a.v.BindPFlag("demo.iterations", cmd.Flags().Lookup("iterations"))
	_ = a.v.BindPFlag("demo.interval", cmd.Flags().Lookup("interval"))

	return cmd
}

func (a *app) runAsync(ctx context.Context, out io.Writer) (err error) {
	inj, err := a.newInjector()
	if err != nil {
		return err
	}
	defer closeInjector(inj, &err)

	w := &syncWriter{w: out}

	consume, err := component.Inject(inj, gizmo.Consumer(w))
	if err != nil {
		return err
	}

	if err := inj.Register(ctx, gizmo.NewOriginal()); err != nil {
		return err
	}

	n, interval := a.cfg.Demo.Iterations, a.cfg.Demo.Interval
	errs := make([]error, 2)

	var wg sync.WaitGroup
	wg.Add(2)

	// This loop stays in the root scope and only sees the original gizmo.
	go func() {
		defer wg.Done()
		errs[0] = gizmo.Loop(ctx, consume, "OG", n, interval)
	}()

	// This one runs concurrently in its own scope, where a factory
	// provides the alternative gizmo.
	go func() {
		defer wg.Done()
		errs[1] = inj.WithScope(ctx, func(ctx context.Context) error {
			if err := inj.RegisterFactory(ctx, gizmo.AlternativeFactory(w)); err != nil {
				return err
			}
			return gizmo.Loop(ctx, consume, "AG", n, interval)
		})
	}()

	wg.Wait()

	return errors.Join(errs...)
}
