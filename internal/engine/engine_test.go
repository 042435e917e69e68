package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/button"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/cache"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/cluster"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/window"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/infrastructure/scheduler"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/shared/types"
	"github.com/GriffinCanCode/AgentOS/windowing/tests/helpers/testutil"
)

type fixture struct {
	e     *Engine
	host  *testutil.MockHost
	sched *scheduler.Manual[types.Identity]
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	f := &fixture{host: testutil.NewMockHost(t), sched: scheduler.NewManual[types.Identity]()}
	opts.Host = f.host
	opts.Scheduler = f.sched
	e, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(e.Close)
	f.e = e
	return f
}

// shop registers cluster "shop" with main menu "home" and a second window
// "items"; slot 4 of home links to items.
func (f *fixture) shop(t *testing.T, itemsOpts ...window.Option) {
	t.Helper()
	f.e.RegisterCluster("shop")
	home := window.New("home", types.SizedLayout(9))
	require.NoError(t, home.Bind(4, button.NewLink("to_items", testutil.Item("chest", 1), types.Key{Window: "items"})))
	require.NoError(t, f.e.RegisterWindow("shop", home))
	require.NoError(t, f.e.RegisterWindow("shop", window.New("items", types.SizedLayout(27), itemsOpts...)))
	require.NoError(t, f.e.SetMainMenu("shop", "home"))
}

func key(w string) types.Key { return types.Key{Cluster: "shop", Window: w} }

func TestNewRequiresHost(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestNewRejectsFailingCacheFactory(t *testing.T) {
	boom := errors.New("no database")
	_, err := New(Options{
		Host:         testutil.NewMockHost(t),
		Scheduler:    scheduler.NewManual[types.Identity](),
		CacheFactory: func() (any, error) { return nil, boom },
	})
	var initErr *cache.InitError
	require.ErrorAs(t, err, &initErr)
	assert.ErrorIs(t, err, boom)
}

func TestLaterCacheFailureFallsBack(t *testing.T) {
	calls := 0
	f := newFixture(t, Options{CacheFactory: func() (any, error) {
		calls++
		if calls > 1 {
			return nil, errors.New("exhausted")
		}
		return "ok", nil
	}})
	s := f.e.Session(uuid.New())
	require.NotNil(t, s.Cache())
	assert.Nil(t, s.Cache().Value())
}

func TestRegisterClusterIsIdempotent(t *testing.T) {
	f := newFixture(t, Options{})
	f.shop(t)
	c := f.e.RegisterCluster("shop")

	_, ok := c.Window("home")
	assert.True(t, ok)
	assert.Equal(t, "home", c.MainMenu())
}

func TestRegistrationErrors(t *testing.T) {
	f := newFixture(t, Options{})
	f.shop(t)
	var cfgErr *ConfigError

	err := f.e.RegisterWindow("ghost", window.New("w", types.SizedLayout(9)))
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "register_window", cfgErr.Op)
	assert.ErrorIs(t, err, cluster.ErrNotFound)

	assert.ErrorIs(t, f.e.RegisterWindow("shop", window.New("home", types.SizedLayout(9))), cluster.ErrDuplicate)
	assert.ErrorIs(t, f.e.SetMainMenu("shop", "nope"), cluster.ErrNotFound)
	assert.ErrorIs(t, f.e.SetMainMenu("nope", "home"), cluster.ErrNotFound)

	require.NoError(t, f.e.RegisterButton(types.ClusterScope("shop"), button.NewClose("close", nil)))
	assert.ErrorIs(t, f.e.RegisterButton(types.ClusterScope("shop"), button.NewClose("close", nil)), cluster.ErrDuplicate)
	require.NoError(t, f.e.RegisterButton(types.WindowScope(key("home")), button.NewBack("back", nil)))
	assert.ErrorIs(t, f.e.RegisterButton(types.WindowScope(key("home")), button.NewBack("back", nil)), cluster.ErrDuplicate)
	assert.ErrorIs(t, f.e.RegisterButton(types.WindowScope(key("nope")), button.NewBack("x", nil)), cluster.ErrNotFound)
	assert.ErrorIs(t, f.e.RegisterButton(types.ClusterScope("nope"), button.NewBack("x", nil)), cluster.ErrNotFound)
}

func TestOpenClusterNoops(t *testing.T) {
	f := newFixture(t, Options{})
	f.e.RegisterCluster("empty")
	id := uuid.New()
	ctx := context.Background()

	require.NoError(t, f.e.OpenCluster(ctx, id, "missing"))
	require.NoError(t, f.e.OpenCluster(ctx, id, "empty"))
	assert.Empty(t, f.e.Session(id).Current().Window)
	assert.Zero(t, f.sched.Len())
}

func TestShopScenarioNavigation(t *testing.T) {
	f := newFixture(t, Options{})
	f.shop(t)
	u := uuid.New()
	ctx := context.Background()

	require.NoError(t, f.e.OpenCluster(ctx, u, "shop"))
	s := f.e.Session(u)
	assert.Equal(t, key("home"), s.Current())
	assert.Empty(t, s.History())

	require.NoError(t, f.e.ChangeWindow(ctx, u, "shop", "items"))
	assert.Equal(t, key("items"), s.Current())
	assert.Equal(t, []types.Key{key("home")}, s.History())

	require.NoError(t, f.e.Back(ctx, u))
	assert.Equal(t, key("home"), s.Current())
	assert.Empty(t, s.History())

	require.NoError(t, f.e.Back(ctx, u), "back on an empty stack is a no-op")
	assert.Equal(t, key("home"), s.Current())
}

func TestBackIsLIFO(t *testing.T) {
	f := newFixture(t, Options{})
	f.shop(t)
	f.e.RegisterCluster("bank")
	require.NoError(t, f.e.RegisterWindow("bank", window.New("vault", types.SizedLayout(9))))
	u := uuid.New()
	ctx := context.Background()

	require.NoError(t, f.e.OpenCluster(ctx, u, "shop"))
	require.NoError(t, f.e.ChangeWindow(ctx, u, "shop", "items"))
	require.NoError(t, f.e.ChangeWindow(ctx, u, "bank", "vault"))

	s := f.e.Session(u)
	for _, want := range []types.Key{key("items"), key("home")} {
		require.NoError(t, f.e.Back(ctx, u))
		assert.Equal(t, want, s.Current())
	}
	assert.Empty(t, s.History())
}

func TestChangeWindowUnknownLeavesState(t *testing.T) {
	f := newFixture(t, Options{})
	f.shop(t)
	u := uuid.New()
	ctx := context.Background()
	require.NoError(t, f.e.OpenCluster(ctx, u, "shop"))

	err := f.e.ChangeWindow(ctx, u, "shop", "ghost")
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.ErrorIs(t, err, cluster.ErrNotFound)
	assert.Equal(t, key("home"), f.e.Session(u).Current())
	assert.Empty(t, f.e.Session(u).History())
}

func TestForbiddenWindow(t *testing.T) {
	perms := new(testutil.MockPermissions)
	u := uuid.New()
	perms.On("HasPermission", u, "shop.items").Return(false)
	f := newFixture(t, Options{Permissions: perms})
	f.shop(t, window.WithPermission("shop.items"))
	ctx := context.Background()
	require.NoError(t, f.e.OpenCluster(ctx, u, "shop"))

	err := f.e.ChangeWindow(ctx, u, "shop", "items")
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, key("home"), f.e.Session(u).Current())
	perms.AssertExpectations(t)
}

func TestRenderIsDeferredAndCoalesced(t *testing.T) {
	f := newFixture(t, Options{})
	f.shop(t)
	u := uuid.New()
	ctx := context.Background()

	require.NoError(t, f.e.OpenCluster(ctx, u, "shop"))
	require.NoError(t, f.e.Update(ctx, u, false))
	require.NoError(t, f.e.Update(ctx, u, false))
	assert.Empty(t, f.host.Opened(u), "nothing renders before the task runs")
	assert.Equal(t, 1, f.sched.Len())

	assert.Equal(t, 1, f.sched.RunAll())
	opened := f.host.Opened(u)
	require.Len(t, opened, 1)
	assert.Equal(t, "$inventories.shop.home$", opened[0].Title())
	assert.Equal(t, "chest", opened[0].Get(4).Key)

	w, _ := f.e.Clusters().Window(key("home"))
	assert.Equal(t, window.Rendered, w.State(u))
}

func TestForceOrsIntoPendingRequest(t *testing.T) {
	f := newFixture(t, Options{})
	f.shop(t)
	u := uuid.New()
	ctx := context.Background()

	require.NoError(t, f.e.OpenCluster(ctx, u, "shop"))
	f.sched.RunAll()
	first := f.host.Opened(u)[0]

	require.NoError(t, f.e.Update(ctx, u, false))
	w, _ := f.e.Clusters().Window(key("home"))
	assert.Equal(t, window.Stale, w.State(u))
	require.NoError(t, f.e.Update(ctx, u, true))
	require.NoError(t, f.e.Update(ctx, u, false))
	f.sched.RunAll()

	opened := f.host.Opened(u)
	require.Len(t, opened, 2)
	assert.NotEqual(t, first.Handle(), opened[1].Handle())

	require.NoError(t, f.e.Update(ctx, u, false))
	f.sched.RunAll()
	assert.Equal(t, opened[1].Handle(), f.host.Opened(u)[2].Handle())
}

func TestCloseWindowCancelsPendingRender(t *testing.T) {
	f := newFixture(t, Options{})
	f.shop(t)
	u := uuid.New()
	ctx := context.Background()

	require.NoError(t, f.e.OpenCluster(ctx, u, "shop"))
	require.NoError(t, f.e.CloseWindow(ctx, u))

	assert.Zero(t, f.sched.Len())
	assert.Empty(t, f.host.Opened(u))
	assert.Empty(t, f.e.Session(u).Current().Window)
	f.host.AssertCalled(t, "CloseSurface", u)
}

func TestRunChatHidesAndSkipsRender(t *testing.T) {
	f := newFixture(t, Options{})
	f.shop(t)
	u := uuid.New()
	ctx := context.Background()
	require.NoError(t, f.e.OpenCluster(ctx, u, "shop"))
	f.sched.RunAll()

	require.NoError(t, f.e.RunChat(ctx, u, 7, "Type an amount"))
	s := f.e.Session(u)
	id, active := s.ChatCaptureID()
	assert.True(t, active)
	assert.Equal(t, 7, id)
	assert.True(t, s.Hidden())
	assert.Equal(t, key("home"), s.Current(), "the window stays current")
	assert.Equal(t, []string{"Type an amount"}, f.host.Messages(u))

	require.NoError(t, f.e.Update(ctx, u, false))
	f.sched.RunAll()
	assert.Len(t, f.host.Opened(u), 1, "no render while capturing")
}

func TestRunChatWithoutWindow(t *testing.T) {
	f := newFixture(t, Options{})
	err := f.e.RunChat(context.Background(), uuid.New(), 1, "hi")
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestNavigationCancelsChatCapture(t *testing.T) {
	f := newFixture(t, Options{})
	f.shop(t)
	u := uuid.New()
	ctx := context.Background()
	require.NoError(t, f.e.OpenCluster(ctx, u, "shop"))
	require.NoError(t, f.e.RunChat(ctx, u, 1, ""))

	require.NoError(t, f.e.ChangeWindow(ctx, u, "shop", "items"))
	s := f.e.Session(u)
	assert.False(t, s.ChatCaptureActive())
	assert.False(t, s.Hidden())
	f.host.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything)
}

func TestRemoveSession(t *testing.T) {
	f := newFixture(t, Options{})
	f.shop(t)
	u := uuid.New()
	ctx := context.Background()
	require.NoError(t, f.e.OpenCluster(ctx, u, "shop"))
	f.sched.RunAll()
	require.NoError(t, f.e.Update(ctx, u, false))

	assert.True(t, f.e.RemoveSession(u))
	assert.False(t, f.e.RemoveSession(u))
	assert.Zero(t, f.sched.Len())
	assert.Zero(t, f.e.Stats().Views)
	_, ok := f.e.Lookup(u)
	assert.False(t, ok)
}

func TestRemoveHooksRunOncePerSession(t *testing.T) {
	f := newFixture(t, Options{})
	f.shop(t)
	u := uuid.New()
	var removed []types.Identity
	f.e.OnRemove(func(id types.Identity) { removed = append(removed, id) })

	require.NoError(t, f.e.OpenCluster(context.Background(), u, "shop"))
	assert.True(t, f.e.RemoveSession(u))
	assert.False(t, f.e.RemoveSession(u))
	assert.False(t, f.e.RemoveSession(uuid.New()))
	assert.Equal(t, []types.Identity{u}, removed)
}

func TestStaleTaskFindsNothing(t *testing.T) {
	// A task that slipped past cancellation must not render for a removed
	// session.
	host := testutil.NewMockHost(t)
	var captured scheduler.Task
	sched := &capturing{Manual: scheduler.NewManual[types.Identity](), grab: func(task scheduler.Task) { captured = task }}
	e, err := New(Options{Host: host, Scheduler: sched})
	require.NoError(t, err)
	f := &fixture{e: e, host: host}
	f.shop(t)
	u := uuid.New()

	require.NoError(t, e.OpenCluster(context.Background(), u, "shop"))
	require.NotNil(t, captured)
	e.RemoveSession(u)
	captured()
	assert.Empty(t, host.Opened(u))
}

type capturing struct {
	*scheduler.Manual[types.Identity]
	grab func(scheduler.Task)
}

func (c *capturing) Schedule(key types.Identity, task scheduler.Task) bool {
	c.grab(task)
	return c.Manual.Schedule(key, task)
}

func TestResetAll(t *testing.T) {
	f := newFixture(t, Options{CacheFactory: func() (any, error) { return map[string]int{}, nil }})
	f.shop(t)
	ctx := context.Background()
	resets := 0
	f.e.OnReset(func() { resets++ })

	ids := []types.Identity{uuid.New(), uuid.New(), uuid.New()}
	for _, id := range ids {
		require.NoError(t, f.e.OpenCluster(ctx, id, "shop"))
	}
	f.sched.RunAll()
	old := f.e.Session(ids[0])
	old.Cache().Set("coins", 10)
	require.NoError(t, f.e.Update(ctx, ids[0], false))
	require.Equal(t, 3, f.e.Stats().Views)

	f.e.ResetAll()

	st := f.e.Stats()
	assert.Zero(t, st.Sessions)
	assert.Zero(t, st.Views)
	assert.Zero(t, f.sched.Len())
	assert.Equal(t, 1, resets)
	assert.True(t, old.Closed())
	_, ok := f.e.Clusters().Window(key("home"))
	assert.True(t, ok, "registrations survive a reset")

	fresh := f.e.Session(ids[0])
	assert.NotSame(t, old, fresh)
	_, ok = fresh.Cache().Get("coins")
	assert.False(t, ok)
	assert.Empty(t, fresh.Current().Window)
}

func TestStats(t *testing.T) {
	f := newFixture(t, Options{})
	f.shop(t)
	u := uuid.New()
	require.NoError(t, f.e.OpenCluster(context.Background(), u, "shop"))

	st := f.e.Stats()
	assert.Equal(t, 2, st.Clusters) // shop + default
	assert.Equal(t, 2, st.Windows)
	assert.Equal(t, 1, st.Sessions)
	assert.Equal(t, 1, st.PendingRenders)
	assert.Len(t, f.e.Sessions(), 1)
}
