package component_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/junioryono/component"
	"github.com/junioryono/component/internal/testutil"
)

// Slot types registered by the scope stack model.
type (
	slotA struct{ n int }
	slotB struct{ n int }
	slotC struct{ n int }
)

var slotTypes = []reflect.Type{
	reflect.TypeOf(&slotA{}),
	reflect.TypeOf(&slotB{}),
	reflect.TypeOf(&slotC{}),
}

func newSlot(kind, n int) any {
	switch kind {
	case 0:
		return &slotA{n}
	case 1:
		return &slotB{n}
	default:
		return &slotC{n}
	}
}

// TestScopeStack_MatchesModel drives random scope operations and checks
// every resolution against a plain stack of maps.
func TestScopeStack_MatchesModel(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		inj, err := component.New()
		require.NoError(rt, err)
		defer inj.Close()

		contexts := []context.Context{context.Background()}
		scopes := []*component.Scope{nil}
		model := []map[int]any{{}}

		steps := rapid.IntRange(1, 40).Draw(rt, "steps")
		for step := range steps {
			top := len(model) - 1

			switch op := rapid.IntRange(0, 3).Draw(rt, "op"); op {
			case 0:
				ctx, scope := inj.Scope(contexts[top])
				contexts = append(contexts, ctx)
				scopes = append(scopes, scope)
				model = append(model, map[int]any{})

			case 1:
				if top == 0 {
					continue
				}
				require.NoError(rt, scopes[top].Close())
				contexts, scopes, model = contexts[:top], scopes[:top], model[:top]

			case 2:
				kind := rapid.IntRange(0, len(slotTypes)-1).Draw(rt, "kind")
				v := newSlot(kind, step)
				require.NoError(rt, inj.Register(contexts[top], v))
				model[top][kind] = v

			case 3:
				kind := rapid.IntRange(0, len(slotTypes)-1).Draw(rt, "kind")
				err := inj.Unregister(contexts[top], slotTypes[kind])
				if _, ok := model[top][kind]; ok {
					require.NoError(rt, err)
					delete(model[top], kind)
				} else {
					require.ErrorIs(rt, err, component.ErrComponentNotFound)
				}
			}

			top = len(model) - 1
			for kind, typ := range slotTypes {
				var want any
				for i := top; i >= 0; i-- {
					if v, ok := model[i][kind]; ok {
						want = v
						break
					}
				}

				got, err := inj.Resolve(contexts[top], typ)
				if want == nil {
					require.ErrorIs(rt, err, component.ErrComponentNotFound)
					continue
				}

				require.NoError(rt, err)
				require.Same(rt, want, got)
			}
		}
	})
}

// TestPersistentFactory_SingleInstance checks that a persistent factory
// yields one instance however deeply and in whichever order scopes nest.
func TestPersistentFactory_SingleInstance(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		inj, err := component.New()
		require.NoError(rt, err)
		defer inj.Close()

		factory := testutil.NewCountingFactory(testutil.NewTestService)
		require.NoError(rt, inj.RegisterFactory(context.Background(), factory.Func(), component.Persistent()))

		var first *testutil.TestService
		ctx := context.Background()

		depth := rapid.IntRange(0, 10).Draw(rt, "depth")
		for range depth {
			ctx, _ = inj.Scope(ctx)

			if rapid.Bool().Draw(rt, "resolve") {
				got, err := component.Resolve[*testutil.TestService](ctx, inj)
				require.NoError(rt, err)
				if first == nil {
					first = got
				}
				require.Same(rt, first, got)
			}
		}

		got, err := component.Resolve[*testutil.TestService](context.Background(), inj)
		require.NoError(rt, err)
		if first != nil {
			require.Same(rt, first, got)
		}
		require.Equal(rt, 1, factory.Calls())
	})
}
