package gizmo_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/component"
	"github.com/junioryono/component/internal/gizmo"
)

func TestGizmos(t *testing.T) {
	assert.Equal(t, "Hello, world!", gizmo.NewOriginal().Greeting())
	assert.Equal(t, "Hello everyone!", gizmo.NewAlternative().Greeting())

	assert.True(t, strings.HasPrefix(gizmo.NewOriginal().String(), "OriginalGizmo("))
	assert.True(t, strings.HasPrefix(gizmo.NewAlternative().String(), "AlternativeGizmo("))

	assert.NotEqual(t, gizmo.NewOriginal().ID, gizmo.NewOriginal().ID, "every gizmo gets a fresh ID")
	assert.NotEqual(t, gizmo.NewAlternative().ID, gizmo.NewAlternative().ID)
}

func TestAlternativeFactory(t *testing.T) {
	var buf bytes.Buffer
	factory := gizmo.AlternativeFactory(&buf)

	g := factory()
	require.NotNil(t, g)
	assert.Equal(t, "Creating alternative gizmo\n", buf.String())
}

func TestConsumer_Injected(t *testing.T) {
	ctx := context.Background()

	inj, err := component.New(component.WithInterfaces(gizmo.Type))
	require.NoError(t, err)
	t.Cleanup(func() { _ = inj.Close() })

	original := gizmo.NewOriginal()
	require.NoError(t, inj.Register(ctx, original))

	var buf bytes.Buffer
	consume := component.MustInject(inj, gizmo.Consumer(&buf))

	consume(ctx, "OG", nil)
	assert.Equal(t, "OG "+original.String()+" says: Hello, world!\n", buf.String())
}

func TestLoop(t *testing.T) {
	t.Run("calls consume n times", func(t *testing.T) {
		var prefixes []string
		consume := func(ctx context.Context, prefix string, g gizmo.Gizmo) {
			assert.Nil(t, g)
			prefixes = append(prefixes, prefix)
		}

		require.NoError(t, gizmo.Loop(context.Background(), consume, "OG", 3, time.Millisecond))
		assert.Equal(t, []string{"OG", "OG", "OG"}, prefixes)
	})

	t.Run("stops when the context is done", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())

		calls := 0
		consume := func(context.Context, string, gizmo.Gizmo) {
			calls++
			cancel()
		}

		err := gizmo.Loop(ctx, consume, "OG", 5, time.Hour)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}
