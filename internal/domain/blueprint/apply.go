package blueprint

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/button"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/cluster"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/window"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/shared/types"
)

// Registrar is the registration surface of the engine.
type Registrar interface {
	RegisterCluster(id string) *cluster.Cluster
	RegisterWindow(clusterID string, w *window.Window) error
	RegisterButton(scope types.Scope, b button.Button) error
	SetMainMenu(clusterID, windowID string) error
}

// ScriptCompiler builds a scripted button from source.
type ScriptCompiler func(ctx context.Context, id string, icon *types.Item, source string, input bool) (button.Button, error)

// Builder turns blueprints into registered clusters.
type Builder struct {
	reg     Registrar
	scripts ScriptCompiler
}

// NewBuilder creates a builder. scripts may be nil, in which case script
// buttons are rejected.
func NewBuilder(reg Registrar, scripts ScriptCompiler) *Builder {
	return &Builder{reg: reg, scripts: scripts}
}

// Apply registers the cluster, its buttons and windows, then the main menu.
// Registration stops at the first error; what was registered stays.
func (b *Builder) Apply(ctx context.Context, bp *Blueprint) error {
	b.reg.RegisterCluster(bp.Cluster)

	for _, spec := range bp.Buttons {
		btn, err := b.button(ctx, bp, spec)
		if err != nil {
			return err
		}
		if err := b.reg.RegisterButton(types.ClusterScope(bp.Cluster), btn); err != nil {
			return err
		}
	}

	for _, ws := range bp.Windows {
		w, err := b.window(ctx, bp, ws)
		if err != nil {
			return fmt.Errorf("window %q: %w", ws.ID, err)
		}
		if err := b.reg.RegisterWindow(bp.Cluster, w); err != nil {
			return err
		}
	}

	if bp.MainMenu != "" {
		return b.reg.SetMainMenu(bp.Cluster, bp.MainMenu)
	}
	return nil
}

func (b *Builder) window(ctx context.Context, bp *Blueprint, ws WindowSpec) (*window.Window, error) {
	var opts []window.Option
	if ws.Title != "" {
		opts = append(opts, window.WithTitle(ws.Title))
	}
	if ws.Permission != "" {
		opts = append(opts, window.WithPermission(ws.Permission))
	}
	w := window.New(ws.ID, ws.Layout(), opts...)

	for _, spec := range ws.Buttons {
		btn, err := b.button(ctx, bp, spec)
		if err != nil {
			return nil, err
		}
		slots := spec.BoundSlots()
		if len(slots) == 0 {
			if err := w.AddButton(btn); err != nil {
				return nil, err
			}
			continue
		}
		for _, slot := range slots {
			if err := w.Bind(slot, btn); err != nil {
				return nil, err
			}
		}
	}
	return w, nil
}

func (b *Builder) button(ctx context.Context, bp *Blueprint, spec ButtonSpec) (button.Button, error) {
	icon := spec.Icon.Item()
	switch spec.Type {
	case TypeLink:
		return button.NewLink(spec.ID, icon, ParseTarget(spec.Target)), nil
	case TypeBack:
		return button.NewBack(spec.ID, icon), nil
	case TypeClose:
		return button.NewClose(spec.ID, icon), nil
	case TypeToggle:
		return button.NewToggle(spec.ID, icon, spec.Off.Item()), nil
	case TypeInput:
		return button.NewInput(spec.ID, accepts(spec.Accept)), nil
	case TypeChat:
		return button.NewChat(spec.ID, icon, spec.Capture, spec.Prompt), nil
	case TypeScript:
		return b.script(ctx, bp, spec, icon)
	default:
		return button.NewStatic(spec.ID, icon), nil
	}
}

func (b *Builder) script(ctx context.Context, bp *Blueprint, spec ButtonSpec, icon *types.Item) (button.Button, error) {
	if b.scripts == nil {
		return nil, fmt.Errorf("button %q: scripting is disabled", spec.ID)
	}
	source := spec.Script
	if spec.ScriptFile != "" {
		path := spec.ScriptFile
		if !filepath.IsAbs(path) && bp.Source != "" {
			path = filepath.Join(filepath.Dir(bp.Source), path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("button %q: %w", spec.ID, err)
		}
		source = string(data)
	}
	return b.scripts(ctx, spec.ID, icon, source, spec.Input)
}

// accepts restricts an input button to the listed item keys; an empty list
// accepts anything.
func accepts(keys []string) func(*types.Item) bool {
	if len(keys) == 0 {
		return nil
	}
	return func(item *types.Item) bool {
		return slices.Contains(keys, item.Key)
	}
}
