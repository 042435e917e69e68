package script

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/button"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/view"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/shared/types"
	"github.com/GriffinCanCode/AgentOS/windowing/tests/helpers/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var home = types.Key{Cluster: "shop", Window: "home"}

func newRunner(t *testing.T, cfg Config) *Runner {
	t.Helper()
	r := NewRunner(cfg, nil)
	t.Cleanup(r.Close)
	return r
}

func interaction(t *testing.T, nav button.Navigator, action types.Action) *button.Interaction {
	t.Helper()
	return &button.Interaction{
		Session: testutil.NewSession(t),
		Window:  home,
		Slot:    3,
		Event:   &types.ClickEvent{Region: types.RegionManaged, Slot: 3, Action: action, Cursor: testutil.Item("iron", 4)},
		View:    view.New("surf_t", types.SizedLayout(9), "t"),
		Nav:     nav,
	}
}

func TestCompileRequiresExecute(t *testing.T) {
	r := newRunner(t, Config{})
	ctx := context.Background()

	_, err := r.Compile(ctx, "bad", nil, "function execute( {")
	assert.Error(t, err)

	_, err = r.Compile(ctx, "empty", nil, "var x = 1")
	assert.ErrorIs(t, err, ErrNoExecute)

	b, err := r.Compile(ctx, "ok", nil, "function execute(e) { return false }")
	require.NoError(t, err)
	assert.Equal(t, "ok", b.ID())
	assert.False(t, b.CapturesInput())
}

func TestExecuteReturnsCancel(t *testing.T) {
	r := newRunner(t, Config{})
	ctx := context.Background()
	tests := []struct {
		name   string
		source string
		want   bool
	}{
		{"false", "function execute(e) { return false }", false},
		{"true", "function execute(e) { return true }", true},
		{"missing return cancels", "function execute(e) {}", true},
		{"reads event", `function execute(e) { return e.action === "pickup" && e.slot === 3 && e.cursor.amount === 4 }`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := r.Compile(ctx, "b", nil, tt.source)
			require.NoError(t, err)
			got, err := b.Execute(ctx, interaction(t, new(testutil.MockNavigator), types.ActionPickup))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScriptStateLivesInSessionCache(t *testing.T) {
	r := newRunner(t, Config{})
	ctx := context.Background()
	b, err := r.Compile(ctx, "counter", nil, `
var leaked = (typeof leaked === "undefined") ? 0 : leaked + 1
function execute(e) {
	e.set("clicks", (e.get("clicks") || 0) + 1)
	return leaked === 0
}`)
	require.NoError(t, err)

	in := interaction(t, new(testutil.MockNavigator), types.ActionPickup)
	for i := 0; i < 3; i++ {
		cancel, err := b.Execute(ctx, in)
		require.NoError(t, err)
		assert.True(t, cancel, "globals do not survive between calls")
	}
	clicks, ok := in.Session.Cache().Get("clicks")
	require.True(t, ok)
	assert.EqualValues(t, 3, clicks)
}

func TestNavigation(t *testing.T) {
	r := newRunner(t, Config{})
	ctx := context.Background()
	nav := new(testutil.MockNavigator)
	in := interaction(t, nav, types.ActionPickup)
	nav.On("ChangeWindow", in.Session, types.Key{Cluster: "shop", Window: "items"}).Return(nil).Once()
	nav.On("RunChat", in.Session, 7, "Name?").Return(nil).Once()
	nav.On("Update", in.Session, true).Once()
	nav.On("HasPermission", in.Session.Identity(), "shop.items").Return(true).Once()

	b, err := r.Compile(ctx, "nav", nil, `function execute(e) {
	if (!e.hasPermission("shop.items")) return true
	e.open("items")
	e.chat(7, "Name?")
	e.update(true)
	return true
}`)
	require.NoError(t, err)
	_, err = b.Execute(ctx, in)
	require.NoError(t, err)
	nav.AssertExpectations(t)
}

func TestNavigationErrorIsReported(t *testing.T) {
	r := newRunner(t, Config{})
	ctx := context.Background()
	nav := new(testutil.MockNavigator)
	in := interaction(t, nav, types.ActionPickup)
	nav.On("Back", in.Session).Return(errors.New("no history"))

	b, err := r.Compile(ctx, "back", nil, `function execute(e) { return e.back() ? false : true }`)
	require.NoError(t, err)
	cancel, err := b.Execute(ctx, in)
	assert.EqualError(t, err, "no history")
	assert.True(t, cancel)
}

func TestScriptErrors(t *testing.T) {
	r := newRunner(t, Config{Timeout: 50 * time.Millisecond})
	ctx := context.Background()
	nav := new(testutil.MockNavigator)

	thrower, err := r.Compile(ctx, "throw", nil, `function execute(e) { throw new Error("boom") }`)
	require.NoError(t, err)
	cancel, err := thrower.Execute(ctx, interaction(t, nav, types.ActionPickup))
	assert.ErrorContains(t, err, "boom")
	assert.True(t, cancel)

	spinner, err := r.Compile(ctx, "spin", nil, `function execute(e) { for (;;) {} }`)
	require.NoError(t, err)
	_, err = spinner.Execute(ctx, interaction(t, nav, types.ActionPickup))
	assert.ErrorContains(t, err, "timeout")

	// the pool recovers after an interrupted call
	ok, err := r.Compile(ctx, "ok", nil, `function execute(e) { return false }`)
	require.NoError(t, err)
	cancel, err = ok.Execute(ctx, interaction(t, nav, types.ActionPickup))
	require.NoError(t, err)
	assert.False(t, cancel)
}

func TestRender(t *testing.T) {
	r := newRunner(t, Config{})
	ctx := context.Background()
	s := testutil.NewSession(t)
	s.Cache().Set("clicks", 5)
	v := view.New("surf_t", types.SizedLayout(9), "t")

	custom, err := r.Compile(ctx, "custom", testutil.Item("stone", 1),
		`function execute(e) { return true }
function render(e) { return { key: "paper", amount: e.get("clicks"), name: e.window } }`)
	require.NoError(t, err)
	require.NoError(t, custom.Render(ctx, &button.RenderContext{Session: s, Window: home, Slot: 2, View: v}))
	assert.Equal(t, &types.Item{Key: "paper", Amount: 5, Name: "home"}, v.Get(2))

	plain, err := r.Compile(ctx, "plain", testutil.Item("stone", 1), `function execute(e) { return true }`)
	require.NoError(t, err)
	require.NoError(t, plain.Render(ctx, &button.RenderContext{Session: s, Window: home, Slot: 4, View: v}))
	assert.Equal(t, "stone", v.Get(4).Key)

	broken, err := r.Compile(ctx, "broken", nil, `function execute(e) { return true }
function render(e) { return 42 }`)
	require.NoError(t, err)
	assert.Error(t, broken.Render(ctx, &button.RenderContext{Session: s, Window: home, Slot: 5, View: v}))
}

func TestClosedRunner(t *testing.T) {
	r := NewRunner(Config{PoolSize: 1}, nil)
	b, err := r.Compile(context.Background(), "b", nil, "function execute(e) { return false }")
	require.NoError(t, err)
	r.Close()
	r.Close()
	_, err = b.Execute(context.Background(), interaction(t, new(testutil.MockNavigator), types.ActionPickup))
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestCapturingInput(t *testing.T) {
	r := newRunner(t, Config{})
	b, err := r.Compile(context.Background(), "in", nil, "function execute(e) { return false }", CapturingInput())
	require.NoError(t, err)
	assert.True(t, button.CapturesInput(b))
}

func TestCompileButton(t *testing.T) {
	r := newRunner(t, Config{})
	b, err := r.CompileButton(context.Background(), "in", nil, "function execute(e) { return false }", true)
	require.NoError(t, err)
	assert.True(t, button.CapturesInput(b))

	b, err = r.CompileButton(context.Background(), "bad", nil, "var x = 1", false)
	assert.ErrorIs(t, err, ErrNoExecute)
	assert.Nil(t, b, "a failed compile must not yield a typed nil button")
}
