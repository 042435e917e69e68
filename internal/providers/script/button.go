package script

import (
	"context"
	"fmt"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/button"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/session"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/shared/types"
)

// Runner compiles scripts and executes them on pooled runtimes.
type Runner struct {
	config Config
	pool   *pool
	log    *zap.Logger
}

// NewRunner creates a runner.
func NewRunner(config Config, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	config = config.withDefaults()
	log = log.Named("script")
	return &Runner{config: config, pool: newPool(config, log), log: log}
}

// Close stops handing out runtimes.
func (r *Runner) Close() { r.pool.close() }

// Button is a scripted button.
type Button struct {
	id        string
	icon      *types.Item
	prog      *goja.Program
	runner    *Runner
	input     bool
	hasRender bool
}

// Option configures a scripted button.
type Option func(*Button)

// CapturingInput marks the button as accepting placed items.
func CapturingInput() Option {
	return func(b *Button) { b.input = true }
}

// CompileButton is Compile for loaders that only carry an input flag.
func (r *Runner) CompileButton(ctx context.Context, id string, icon *types.Item, source string, input bool) (button.Button, error) {
	var opts []Option
	if input {
		opts = append(opts, CapturingInput())
	}
	b, err := r.Compile(ctx, id, icon, source, opts...)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Compile parses source and checks that it defines execute.
func (r *Runner) Compile(ctx context.Context, id string, icon *types.Item, source string, opts ...Option) (*Button, error) {
	prog, err := goja.Compile(id, source, false)
	if err != nil {
		return nil, fmt.Errorf("compile script %s: %w", id, err)
	}
	b := &Button{id: id, icon: icon, prog: prog, runner: r}
	for _, opt := range opts {
		opt(b)
	}

	err = r.pool.with(ctx, func(rt *runtime) error {
		ok, err := rt.defines(prog, "execute")
		if err != nil {
			return err
		}
		if !ok {
			return ErrNoExecute
		}
		b.hasRender, err = rt.defines(prog, "render")
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("script %s: %w", id, err)
	}
	return b, nil
}

func (b *Button) ID() string { return b.id }

// CapturesInput implements button.InputCapturer.
func (b *Button) CapturesInput() bool { return b.input }

func (b *Button) Execute(ctx context.Context, in *button.Interaction) (bool, error) {
	var navErr error
	event := b.event(in.Session, in.Window, in.Slot)
	if in.Event != nil {
		event["action"] = string(in.Event.Action)
		event["item"] = fromItem(in.Event.Item)
		event["cursor"] = fromItem(in.Event.Cursor)
	}
	nav := func(err error) bool {
		if err != nil && navErr == nil {
			navErr = err
		}
		return err == nil
	}
	event["open"] = func(window string) bool {
		return nav(in.Nav.ChangeWindow(in.Session, types.Key{Cluster: in.Window.Cluster, Window: window}))
	}
	event["openCluster"] = func(cluster string) bool { return nav(in.Nav.OpenCluster(in.Session, cluster)) }
	event["back"] = func() bool { return nav(in.Nav.Back(in.Session)) }
	event["close"] = func() bool { return nav(in.Nav.Close(in.Session)) }
	event["chat"] = func(id int, prompt string) bool { return nav(in.Nav.RunChat(in.Session, id, prompt)) }
	event["update"] = func(force bool) { in.Nav.Update(in.Session, force) }
	event["hasPermission"] = func(key string) bool { return in.Nav.HasPermission(in.Session.Identity(), key) }

	cancel := true
	err := b.runner.pool.with(ctx, func(rt *runtime) error {
		val, err := rt.call(ctx, b.prog, "execute", event)
		if err != nil {
			return err
		}
		if val != nil && !goja.IsUndefined(val) && !goja.IsNull(val) {
			cancel = val.ToBoolean()
		}
		return nil
	})
	if err != nil {
		return true, err
	}
	return cancel, navErr
}

func (b *Button) Render(ctx context.Context, rc *button.RenderContext) error {
	if !b.hasRender {
		rc.View.Set(rc.Slot, b.icon)
		return nil
	}
	return b.runner.pool.with(ctx, func(rt *runtime) error {
		val, err := rt.call(ctx, b.prog, "render", b.event(rc.Session, rc.Window, rc.Slot))
		if err != nil {
			return err
		}
		if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
			rc.View.Set(rc.Slot, b.icon)
			return nil
		}
		item, err := toItem(val.Export())
		if err != nil {
			return fmt.Errorf("render %s: %w", b.id, err)
		}
		rc.View.Set(rc.Slot, item)
		return nil
	})
}

// event builds the object shared by execute and render.
func (b *Button) event(s *session.Session, window types.Key, slot int) map[string]any {
	c := s.Cache()
	return map[string]any{
		"button":   b.id,
		"identity": s.Identity().String(),
		"cluster":  window.Cluster,
		"window":   window.Window,
		"slot":     slot,
		"get": func(key string) any {
			v, _ := c.Get(key)
			return v
		},
		"set": func(key string, value any) { c.Set(key, value) },
	}
}

func fromItem(item *types.Item) any {
	if item.IsEmpty() {
		return nil
	}
	return map[string]any{"key": item.Key, "amount": item.Amount, "name": item.Name}
}

func toItem(v any) (*types.Item, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected an item object, got %T", v)
	}
	item := &types.Item{Amount: 1}
	item.Key, _ = m["key"].(string)
	item.Name, _ = m["name"].(string)
	switch n := m["amount"].(type) {
	case int64:
		item.Amount = int(n)
	case float64:
		item.Amount = int(n)
	}
	if item.Key == "" {
		return nil, fmt.Errorf("item object without key")
	}
	return item, nil
}
