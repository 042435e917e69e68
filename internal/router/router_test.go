package router

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/button"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/window"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/engine"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/infrastructure/scheduler"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/shared/types"
	"github.com/GriffinCanCode/AgentOS/windowing/tests/helpers/testutil"
)

type harness struct {
	eng     *engine.Engine
	router  *Router
	host    *testutil.MockHost
	sched   *scheduler.Manual[types.Identity]
	metrics *monitoring.Metrics
	logs    *observer.ObservedLogs
	user    types.Identity
	home    *window.Window
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	return newGuardedHarness(t, nil, opts...)
}

// newGuardedHarness builds a harness whose engine asks perms, when set.
func newGuardedHarness(t *testing.T, perms engine.PermissionChecker, opts ...Option) *harness {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	h := &harness{
		host:    testutil.NewMockHost(t),
		sched:   scheduler.NewManual[types.Identity](),
		metrics: monitoring.NewMetrics(),
		logs:    logs,
		user:    uuid.New(),
	}
	eng, err := engine.New(engine.Options{
		Host:        h.host,
		Permissions: perms,
		Scheduler:   h.sched,
		Logger:      zap.New(core),
		Metrics:     h.metrics,
	})
	require.NoError(t, err)
	h.eng = eng
	h.router = New(eng, append([]Option{WithMetrics(h.metrics)}, opts...)...)

	eng.RegisterCluster("shop")
	h.home = window.New("home", types.SizedLayout(9))
	require.NoError(t, h.home.Bind(4, button.NewLink("to_items", testutil.Item("chest", 1), types.Key{Window: "items"})))
	require.NoError(t, eng.RegisterWindow("shop", h.home))
	require.NoError(t, eng.RegisterWindow("shop", window.New("items", types.SizedLayout(27))))
	require.NoError(t, eng.SetMainMenu("shop", "home"))
	return h
}

// open enters the shop and renders it, returning the shown surface.
func (h *harness) open(t *testing.T) types.SurfaceHandle {
	t.Helper()
	return h.openAs(t, h.user)
}

func (h *harness) openAs(t *testing.T, identity types.Identity) types.SurfaceHandle {
	t.Helper()
	require.NoError(t, h.eng.OpenCluster(context.Background(), identity, "shop"))
	h.sched.RunAll()
	return h.surfaceOf(t, identity)
}

func (h *harness) surface(t *testing.T) types.SurfaceHandle {
	t.Helper()
	return h.surfaceOf(t, h.user)
}

func (h *harness) surfaceOf(t *testing.T, identity types.Identity) types.SurfaceHandle {
	t.Helper()
	opened := h.host.Opened(identity)
	require.NotEmpty(t, opened)
	return opened[len(opened)-1].Handle()
}

func (h *harness) click(surface types.SurfaceHandle, slot int) *types.ClickEvent {
	return &types.ClickEvent{Identity: h.user, Surface: surface, Region: types.RegionManaged, Slot: slot, Action: types.ActionPickup}
}

type counter struct {
	id     string
	cancel bool
	err    error
	panics bool
	calls  []*button.Interaction
	input  bool
}

func (c *counter) ID() string { return c.id }
func (c *counter) Execute(_ context.Context, in *button.Interaction) (bool, error) {
	c.calls = append(c.calls, in)
	if c.panics {
		panic("kaboom")
	}
	return c.cancel, c.err
}
func (c *counter) Render(_ context.Context, rc *button.RenderContext) error {
	rc.View.Set(rc.Slot, testutil.Item(c.id, 1))
	return nil
}
func (c *counter) CapturesInput() bool { return c.input }

func TestUnknownIdentityPassesThrough(t *testing.T) {
	h := newHarness(t)
	ev := h.click("surf_x", 0)
	assert.Equal(t, Passthrough, h.router.HandleClick(context.Background(), ev))
	assert.False(t, ev.Cancelled)
	_, tracked := h.eng.Lookup(h.user)
	assert.False(t, tracked, "routing never creates sessions")
}

func TestStaleSurfaceIgnored(t *testing.T) {
	h := newHarness(t)
	h.open(t)
	ev := h.click("surf_old", 4)
	assert.Equal(t, Ignored, h.router.HandleClick(context.Background(), ev))
	assert.False(t, ev.Cancelled)
	assert.Equal(t, "home", h.eng.Session(h.user).Current().Window)
}

func TestClickOutsidePassesThrough(t *testing.T) {
	h := newHarness(t)
	surface := h.open(t)
	ev := &types.ClickEvent{Identity: h.user, Surface: surface, Region: types.RegionOutside, Slot: -999, Action: types.ActionDrop}
	assert.Equal(t, Passthrough, h.router.HandleClick(context.Background(), ev))
}

func TestUnmanagedSlotIsCancelled(t *testing.T) {
	h := newHarness(t)
	surface := h.open(t)
	for _, slot := range []int{0, 3, 8} {
		ev := h.click(surface, slot)
		assert.Equal(t, Cancelled, h.router.HandleClick(context.Background(), ev))
		assert.True(t, ev.Cancelled)
	}
}

func TestBoundSlotInvokedOnce(t *testing.T) {
	for _, cancel := range []bool{true, false} {
		t.Run(fmt.Sprintf("cancel=%t", cancel), func(t *testing.T) {
			h := newHarness(t)
			b := &counter{id: "tester", cancel: cancel}
			require.NoError(t, h.home.Bind(2, b))
			surface := h.open(t)

			ev := h.click(surface, 2)
			h.router.HandleClick(context.Background(), ev)
			require.Len(t, b.calls, 1)
			assert.Equal(t, cancel, ev.Cancelled)
			assert.Equal(t, 2, b.calls[0].Slot)
			assert.Equal(t, types.Key{Cluster: "shop", Window: "home"}, b.calls[0].Window)
		})
	}
}

func TestShopScenario(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	surface := h.open(t)
	s := h.eng.Session(h.user)
	assert.Equal(t, "home", s.Current().Window)

	ev := h.click(surface, 4)
	assert.Equal(t, Cancelled, h.router.HandleClick(ctx, ev))
	assert.Equal(t, types.Key{Cluster: "shop", Window: "items"}, s.Current())
	assert.Equal(t, []types.Key{{Cluster: "shop", Window: "home"}}, s.History())

	require.NoError(t, h.eng.Back(ctx, h.user))
	assert.Equal(t, "home", s.Current().Window)
	assert.Empty(t, s.History())
}

func TestExactlyOneRenderBetweenInteractions(t *testing.T) {
	h := newHarness(t)
	var seen []int
	spy := button.NewAction("spy", nil, func(context.Context, *button.Interaction) (bool, error) {
		seen = append(seen, len(h.host.Opened(h.user)))
		return true, nil
	})
	require.NoError(t, h.home.Bind(1, spy))
	surface := h.open(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		h.router.HandleClick(ctx, h.click(surface, 1))
		assert.Equal(t, 1, h.sched.Len(), "a render is pending after each interaction")
	}
	h.sched.RunAll()

	// render #1 opened the window; each later click saw exactly one more.
	assert.Equal(t, []int{1, 2, 3}, seen)
	assert.Len(t, h.host.Opened(h.user), 4)
	for _, v := range h.host.Opened(h.user) {
		assert.Equal(t, surface, v.Handle(), "non-forced renders reuse the surface")
	}
}

func TestButtonFailureIsContained(t *testing.T) {
	tests := []struct {
		name string
		b    *counter
	}{
		{"error", &counter{id: "broken", err: errors.New("db down")}},
		{"panic", &counter{id: "broken", panics: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			require.NoError(t, h.home.Bind(6, tt.b))
			surface := h.open(t)

			ev := h.click(surface, 6)
			assert.Equal(t, Cancelled, h.router.HandleClick(context.Background(), ev))
			assert.True(t, ev.Cancelled)
			assert.Equal(t, 1.0, promtest.ToFloat64(h.metrics.ButtonFailures.WithLabelValues("broken")))

			entries := h.logs.FilterMessage("button execution failed").All()
			require.Len(t, entries, 1)
			fields := entries[0].ContextMap()
			assert.Equal(t, "broken", fields["button"])
			assert.Equal(t, int64(6), fields["slot"])
			assert.Equal(t, h.user.String(), fields["identity"])

			assert.Equal(t, 1, h.sched.Len(), "the render cycle still proceeds")
			ok := h.router.HandleClick(context.Background(), h.click(surface, 4))
			assert.Equal(t, Cancelled, ok)
			assert.Equal(t, "items", h.eng.Session(h.user).Current().Window, "other buttons keep working")
		})
	}
}

func TestGuardShortCircuits(t *testing.T) {
	guard := resilience.NewGuard(resilience.Settings{MaxFailures: 1, Cooldown: time.Hour})
	h := newHarness(t, WithGuard(guard))
	b := &counter{id: "flaky", err: errors.New("nope")}
	require.NoError(t, h.home.Bind(3, b))
	surface := h.open(t)
	ctx := context.Background()

	h.router.HandleClick(ctx, h.click(surface, 3))
	ev := h.click(surface, 3)
	h.router.HandleClick(ctx, ev)

	assert.True(t, ev.Cancelled)
	assert.Len(t, b.calls, 1, "open breaker skips execution")
	assert.Equal(t, 1.0, promtest.ToFloat64(h.metrics.ButtonsTripped))

	h.eng.ResetAll()
	assert.Empty(t, guard.Open(), "reset clears breakers")
}

func TestGuardIsScopedToSession(t *testing.T) {
	guard := resilience.NewGuard(resilience.Settings{MaxFailures: 2, Cooldown: time.Hour})
	h := newHarness(t, WithGuard(guard))
	b := &counter{id: "flaky", err: errors.New("nope")}
	require.NoError(t, h.home.Bind(3, b))
	ctx := context.Background()

	bad := h.open(t)
	for i := 0; i < 3; i++ {
		h.router.HandleClick(ctx, h.click(bad, 3))
	}
	require.Len(t, b.calls, 2, "the failing session's breaker is open")

	other := uuid.New()
	surface := h.openAs(t, other)
	b.err = nil
	ev := &types.ClickEvent{Identity: other, Surface: surface, Region: types.RegionManaged, Slot: 3, Action: types.ActionPickup}
	assert.Equal(t, Handled, h.router.HandleClick(ctx, ev))
	assert.False(t, ev.Cancelled)
	assert.Len(t, b.calls, 3, "another session still reaches the button")
	assert.Equal(t, other, b.calls[2].Session.Identity())

	assert.Len(t, guard.Open(), 1)
	assert.True(t, h.eng.RemoveSession(h.user))
	assert.Empty(t, guard.Open(), "removal forgets the session's breakers")
	assert.Equal(t, 1, guard.Len())
}

func TestDeniedNavigationDoesNotTripGuard(t *testing.T) {
	perms := new(testutil.MockPermissions)
	guard := resilience.NewGuard(resilience.Settings{MaxFailures: 1, Cooldown: time.Hour})
	h := newGuardedHarness(t, perms, WithGuard(guard))
	require.NoError(t, h.eng.RegisterWindow("shop", window.New("vault", types.SizedLayout(9), window.WithPermission("shop.vault"))))
	require.NoError(t, h.home.Bind(5, button.NewLink("to_vault", nil, types.Key{Window: "vault"})))
	perms.On("HasPermission", h.user, "shop.vault").Return(false)
	ctx := context.Background()

	surface := h.open(t)
	for i := 0; i < 3; i++ {
		ev := h.click(surface, 5)
		assert.Equal(t, Cancelled, h.router.HandleClick(ctx, ev))
		h.sched.RunAll()
	}

	assert.Empty(t, guard.Open())
	assert.Equal(t, 0.0, promtest.ToFloat64(h.metrics.ButtonsTripped))
	assert.Equal(t, 3, h.logs.FilterMessage("button denied").Len())
	assert.Zero(t, h.logs.FilterMessage("button execution failed").Len())
	s, _ := h.eng.Lookup(h.user)
	assert.Equal(t, "home", s.Current().Window)
}

func TestCollectToCursor(t *testing.T) {
	h := newHarness(t)
	a := &counter{id: "in_a", input: true, cancel: false}
	b := &counter{id: "in_b", input: true, cancel: true}
	plain := &counter{id: "plain"}
	require.NoError(t, h.home.Bind(0, a))
	require.NoError(t, h.home.Bind(1, b))
	require.NoError(t, h.home.Bind(2, plain))
	surface := h.open(t)

	ev := h.click(surface, 0)
	ev.Action = types.ActionCollectToCursor
	h.router.HandleClick(context.Background(), ev)

	assert.Len(t, a.calls, 1)
	assert.Len(t, b.calls, 1)
	assert.Empty(t, plain.calls)
	assert.True(t, ev.Cancelled, "cancel is the OR of every input slot")
}

func TestCollectToCursorWithoutInputsCancels(t *testing.T) {
	h := newHarness(t)
	surface := h.open(t)
	ev := h.click(surface, 0)
	ev.Action = types.ActionCollectToCursor
	h.router.HandleClick(context.Background(), ev)
	assert.True(t, ev.Cancelled)
}

func TestTransferFromPlayerInventory(t *testing.T) {
	h := newHarness(t)
	first := &counter{id: "first"}
	second := &counter{id: "ore"}
	require.NoError(t, h.home.Bind(0, first))
	require.NoError(t, h.home.Bind(5, second))
	surface := h.open(t)
	ctx := context.Background()

	// "ore" is rendered at slot 5, so a similar stack lands there.
	ev := &types.ClickEvent{Identity: h.user, Surface: surface, Region: types.RegionPlayer, Slot: 20,
		Action: types.ActionMoveToOther, Item: &types.Item{Key: "ore", Amount: 3}}
	h.router.HandleClick(ctx, ev)
	require.Len(t, second.calls, 1)
	assert.Equal(t, 5, second.calls[0].Slot)
	assert.Empty(t, first.calls)

	// dissimilar item goes to the first empty slot, which holds no button.
	ev = &types.ClickEvent{Identity: h.user, Surface: surface, Region: types.RegionPlayer, Slot: 21,
		Action: types.ActionMoveToOther, Item: &types.Item{Key: "wood", Amount: 3}}
	h.router.HandleClick(ctx, ev)
	assert.True(t, ev.Cancelled)
}

func TestPlayerInventoryClickNotCancelled(t *testing.T) {
	h := newHarness(t)
	surface := h.open(t)
	ev := &types.ClickEvent{Identity: h.user, Surface: surface, Region: types.RegionPlayer, Slot: 12, Action: types.ActionPickup, Cancelled: true}
	assert.Equal(t, Handled, h.router.HandleClick(context.Background(), ev))
	assert.False(t, ev.Cancelled)
}

func dragEvent(h *harness, surface types.SurfaceHandle, slots map[int]int) *types.DragEvent {
	ev := &types.DragEvent{Identity: h.user, Surface: surface, Slots: map[int]types.Item{}}
	for slot, amount := range slots {
		ev.Slots[slot] = types.Item{Key: "iron", Amount: amount}
	}
	return ev
}

func TestDragWithUnboundSlotInvokesNothing(t *testing.T) {
	h := newHarness(t)
	b := &counter{id: "in", input: true}
	require.NoError(t, h.home.Bind(0, b))
	surface := h.open(t)

	ev := dragEvent(h, surface, map[int]int{0: 2, 3: 2})
	assert.Equal(t, Cancelled, h.router.HandleDrag(context.Background(), ev))
	assert.True(t, ev.Cancelled)
	assert.Empty(t, b.calls)
}

func TestDragLeavingSurfaceCancels(t *testing.T) {
	h := newHarness(t)
	b := &counter{id: "in", input: true}
	require.NoError(t, h.home.Bind(0, b))
	surface := h.open(t)

	ev := dragEvent(h, surface, map[int]int{0: 2, 30: 2})
	h.router.HandleDrag(context.Background(), ev)
	assert.True(t, ev.Cancelled)
	assert.Empty(t, b.calls)
}

func TestDragMergesPerButton(t *testing.T) {
	h := newHarness(t)
	wide := &counter{id: "wide", input: true}
	single := &counter{id: "single", input: true}
	require.NoError(t, h.home.Bind(1, wide))
	require.NoError(t, h.home.Bind(2, wide))
	require.NoError(t, h.home.Bind(6, single))
	surface := h.open(t)

	ev := dragEvent(h, surface, map[int]int{2: 3, 1: 4, 6: 5})
	h.router.HandleDrag(context.Background(), ev)

	require.Len(t, wide.calls, 1)
	assert.Equal(t, 1, wide.calls[0].Slot, "invoked at its lowest slot")
	assert.Equal(t, types.ActionPlaceSome, wide.calls[0].Event.Action)
	assert.Equal(t, 7, wide.calls[0].Event.Cursor.Amount)
	require.Len(t, single.calls, 1)
	assert.Equal(t, 5, single.calls[0].Event.Cursor.Amount)
	assert.False(t, ev.Cancelled)
}

func TestDragListenerVeto(t *testing.T) {
	h := newHarness(t)
	b := &counter{id: "in", input: true}
	require.NoError(t, h.home.Bind(0, b))
	surface := h.open(t)
	var notified int
	h.router.OnDrag(func(_ context.Context, n *DragNotice) {
		notified++
		n.Cancelled = true
	})

	ev := dragEvent(h, surface, map[int]int{0: 1})
	h.router.HandleDrag(context.Background(), ev)
	assert.Equal(t, 1, notified)
	assert.True(t, ev.Cancelled)
	assert.Empty(t, b.calls)
}

func TestChatCapture(t *testing.T) {
	h := newHarness(t)
	var got []string
	rearm := false
	rename := window.New("rename", types.SizedLayout(9), window.WithChatHandler(func(_ context.Context, in *window.ChatInput) bool {
		got = append(got, in.Message)
		assert.Equal(t, 9, in.CaptureID)
		assert.False(t, in.Session.ChatCaptureActive(), "capture is disarmed before the handler runs")
		if rearm {
			in.Session.StartChatCapture(in.CaptureID)
		}
		return true
	}))
	require.NoError(t, rename.Bind(0, button.NewChat("ask", testutil.Item("name_tag", 1), 9, "Enter a name")))
	require.NoError(t, h.eng.RegisterWindow("shop", rename))
	ctx := context.Background()

	require.NoError(t, h.eng.ChangeWindow(ctx, h.user, "shop", "rename"))
	h.sched.RunAll()
	surface := h.surface(t)

	h.router.HandleClick(ctx, h.click(surface, 0))
	s := h.eng.Session(h.user)
	require.True(t, s.ChatCaptureActive())
	assert.Equal(t, []string{"Enter a name"}, h.host.Messages(h.user))
	h.sched.RunAll()
	opens := len(h.host.Opened(h.user))

	// clicks on the hidden surface are stale
	assert.Equal(t, Ignored, h.router.HandleClick(ctx, h.click(surface, 0)))

	rearm = true
	ev := &types.ChatEvent{Identity: h.user, Message: "Steve"}
	assert.Equal(t, Cancelled, h.router.HandleChat(ctx, ev))
	assert.True(t, ev.Cancelled)
	assert.True(t, s.ChatCaptureActive(), "handler re-armed the capture")
	h.sched.RunAll()
	assert.Len(t, h.host.Opened(h.user), opens, "window stays hidden while re-armed")

	rearm = false
	ev = &types.ChatEvent{Identity: h.user, Message: "Alex"}
	h.router.HandleChat(ctx, ev)
	assert.False(t, s.ChatCaptureActive())
	assert.False(t, s.Hidden())
	h.sched.RunAll()
	assert.Len(t, h.host.Opened(h.user), opens+1, "window reopens")
	assert.Equal(t, []string{"Steve", "Alex"}, got)

	ev = &types.ChatEvent{Identity: h.user, Message: "hello everyone"}
	assert.Equal(t, Passthrough, h.router.HandleChat(ctx, ev))
	assert.False(t, ev.Cancelled)
}
