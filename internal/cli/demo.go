package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/junioryono/component"
	"github.com/junioryono/component/internal/gizmo"
)

func newDemoCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Override the registered gizmo inside a scope",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDemo(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func (a *app) runDemo(ctx context.Context, out io.Writer) (err error) {
	inj, err := a.newInjector()
	if err != nil {
		return err
	}
	defer closeInjector(inj, &err)

	consume, err := component.Inject(inj, gizmo.Consumer(out))
	if err != nil {
		return err
	}

	if err := inj.Register(ctx, gizmo.NewOriginal()); err != nil {
		return err
	}

	consume(ctx, "OG", nil)

	err = inj.WithScope(ctx, func(ctx context.Context) error {
		if err := inj.Register(ctx, gizmo.NewAlternative()); err != nil {
			return err
		}

		consume(ctx, "AG", nil)
		return nil
	})
	if err != nil {
		return err
	}

	// The scope is gone, so the original gizmo is back.
	consume(ctx, "OG", nil)

	return nil
}
