package blueprint

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"

	"github.com/GriffinCanCode/AgentOS/windowing/internal/providers/configstore"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/shared/types"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/shared/utils"
)

// Button types.
const (
	TypeStatic = "static"
	TypeLink   = "link"
	TypeBack   = "back"
	TypeClose  = "close"
	TypeToggle = "toggle"
	TypeInput  = "input"
	TypeChat   = "chat"
	TypeScript = "script"
)

// Blueprint is the root of a blueprint file.
type Blueprint struct {
	Cluster  string       `json:"cluster" yaml:"cluster" toml:"cluster"`
	MainMenu string       `json:"main_menu,omitempty" yaml:"main_menu" toml:"main_menu"`
	Buttons  []ButtonSpec `json:"buttons,omitempty" yaml:"buttons" toml:"buttons"`
	Windows  []WindowSpec `json:"windows" yaml:"windows" toml:"windows"`

	// Source is the file the blueprint was read from.
	Source string `json:"-" yaml:"-" toml:"-"`
}

// WindowSpec declares a window.
type WindowSpec struct {
	ID         string       `json:"id" yaml:"id" toml:"id"`
	Size       int          `json:"size,omitempty" yaml:"size" toml:"size"`
	Kind       string       `json:"kind,omitempty" yaml:"kind" toml:"kind"`
	Title      string       `json:"title,omitempty" yaml:"title" toml:"title"`
	Permission string       `json:"permission,omitempty" yaml:"permission" toml:"permission"`
	Buttons    []ButtonSpec `json:"buttons,omitempty" yaml:"buttons" toml:"buttons"`
}

// Layout returns the surface layout of the window.
func (w WindowSpec) Layout() types.Layout {
	if w.Kind != "" {
		return types.KindLayout(types.SurfaceKind(w.Kind))
	}
	return types.SizedLayout(w.Size)
}

// ItemSpec declares an icon.
type ItemSpec struct {
	Key    string `json:"key" yaml:"key" toml:"key"`
	Amount int    `json:"amount,omitempty" yaml:"amount" toml:"amount"`
	Name   string `json:"name,omitempty" yaml:"name" toml:"name"`
}

// Item converts the spec, defaulting the amount to one.
func (i *ItemSpec) Item() *types.Item {
	if i == nil || i.Key == "" {
		return nil
	}
	amount := i.Amount
	if amount <= 0 {
		amount = 1
	}
	return &types.Item{Key: i.Key, Amount: amount, Name: i.Name}
}

// ButtonSpec declares a button. Slot and Slots bind it in a window; a window
// button without slots is only placeable by render hooks.
type ButtonSpec struct {
	ID     string    `json:"id" yaml:"id" toml:"id"`
	Type   string    `json:"type" yaml:"type" toml:"type"`
	Slot   *int      `json:"slot,omitempty" yaml:"slot" toml:"slot"`
	Slots  []int     `json:"slots,omitempty" yaml:"slots" toml:"slots"`
	Icon   *ItemSpec `json:"icon,omitempty" yaml:"icon" toml:"icon"`
	Off    *ItemSpec `json:"off,omitempty" yaml:"off" toml:"off"`
	Target string    `json:"target,omitempty" yaml:"target" toml:"target"`
	Accept []string  `json:"accept,omitempty" yaml:"accept" toml:"accept"`
	// Capture and Prompt configure chat buttons.
	Capture int    `json:"capture,omitempty" yaml:"capture" toml:"capture"`
	Prompt  string `json:"prompt,omitempty" yaml:"prompt" toml:"prompt"`
	// Script is inline source; ScriptFile is resolved relative to the
	// blueprint.
	Script     string `json:"script,omitempty" yaml:"script" toml:"script"`
	ScriptFile string `json:"script_file,omitempty" yaml:"script_file" toml:"script_file"`
	Input      bool   `json:"input,omitempty" yaml:"input" toml:"input"`
}

// BoundSlots returns every slot the button is bound to.
func (b ButtonSpec) BoundSlots() []int {
	slots := append([]int(nil), b.Slots...)
	if b.Slot != nil {
		slots = append([]int{*b.Slot}, slots...)
	}
	return slots
}

// ParseTarget parses "window" or "cluster:window".
func ParseTarget(target string) types.Key {
	if cluster, window, ok := strings.Cut(target, ":"); ok {
		return types.Key{Cluster: cluster, Window: window}
	}
	return types.Key{Window: target}
}

// Parse decodes a blueprint.
func Parse(data []byte, format configstore.Format) (*Blueprint, error) {
	var bp Blueprint
	var err error
	switch format {
	case configstore.FormatJSON:
		err = sonic.Unmarshal(data, &bp)
	case configstore.FormatYAML:
		err = yaml.Unmarshal(data, &bp)
	case configstore.FormatTOML:
		err = toml.Unmarshal(data, &bp)
	default:
		return nil, fmt.Errorf("unsupported blueprint format: %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", format, err)
	}
	if err := bp.Validate(); err != nil {
		return nil, err
	}
	return &bp, nil
}

// ParseFile reads and decodes the blueprint at path.
func ParseFile(path string) (*Blueprint, error) {
	format, err := configstore.FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	bp, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	bp.Source = path
	return bp, nil
}

// Validate checks the structure without building anything.
func (bp *Blueprint) Validate() error {
	var errs []error
	if bp.Cluster == "" {
		errs = append(errs, errors.New("cluster is required"))
	} else if err := utils.ValidateID(bp.Cluster, "cluster", true); err != nil {
		errs = append(errs, err)
	}

	windows := make(map[string]bool, len(bp.Windows))
	for i, w := range bp.Windows {
		if w.ID == "" {
			errs = append(errs, fmt.Errorf("windows[%d]: id is required", i))
			continue
		}
		if windows[w.ID] {
			errs = append(errs, fmt.Errorf("window %q declared twice", w.ID))
		}
		windows[w.ID] = true
		if err := utils.ValidateID(w.ID, "window id", true); err != nil {
			errs = append(errs, err)
		}
		if err := utils.ValidateTitle(w.Title); err != nil {
			errs = append(errs, fmt.Errorf("window %q: %w", w.ID, err))
		}
		if err := w.Layout().Validate(); err != nil {
			errs = append(errs, fmt.Errorf("window %q: %w", w.ID, err))
		}
		for _, b := range w.Buttons {
			if err := b.validate(); err != nil {
				errs = append(errs, fmt.Errorf("window %q: %w", w.ID, err))
			}
		}
	}
	for _, b := range bp.Buttons {
		if err := b.validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if bp.MainMenu != "" && !windows[bp.MainMenu] {
		errs = append(errs, fmt.Errorf("main_menu %q is not a declared window", bp.MainMenu))
	}
	return errors.Join(errs...)
}

func (b ButtonSpec) validate() error {
	if b.ID == "" {
		return errors.New("button without id")
	}
	if err := utils.ValidateID(b.ID, "button id", true); err != nil {
		return err
	}
	switch b.Type {
	case "", TypeStatic, TypeBack, TypeClose, TypeToggle, TypeInput:
	case TypeLink:
		if b.Target == "" {
			return fmt.Errorf("button %q: link needs a target", b.ID)
		}
	case TypeChat:
		if b.Capture == 0 {
			return fmt.Errorf("button %q: chat needs a capture id", b.ID)
		}
	case TypeScript:
		if b.Script == "" && b.ScriptFile == "" {
			return fmt.Errorf("button %q: script needs source", b.ID)
		}
	default:
		return fmt.Errorf("button %q: unknown type %q", b.ID, b.Type)
	}
	return nil
}
