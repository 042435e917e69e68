package blueprint

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/button"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/engine"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/infrastructure/scheduler"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/providers/configstore"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/shared/types"
	"github.com/GriffinCanCode/AgentOS/windowing/tests/helpers/testutil"
)

const shopYAML = `
cluster: shop
main_menu: home
buttons:
  - {id: exit, type: close, icon: {key: barrier}}
windows:
  - id: home
    size: 9
    title: "$inventories.shop.home$"
    buttons:
      - {id: to_items, type: link, slot: 4, target: items, icon: {key: chest}}
      - {id: frame, type: static, slots: [0, 8], icon: {key: glass_pane}}
  - id: items
    kind: chest
    permission: shop.items
    buttons:
      - {id: back, type: back, slot: 18, icon: {key: arrow}}
      - {id: deposit, type: input, slot: 13, accept: [iron, gold]}
      - {id: rename, type: chat, slot: 22, capture: 3, prompt: "Name?", icon: {key: name_tag}}
      - {id: sound, type: toggle, slot: 26, icon: {key: lime_dye}, off: {key: gray_dye}}
      - {id: to_bank, type: link, target: "bank:vault"}
`

const shopJSON = `{
  "cluster": "shop",
  "main_menu": "home",
  "windows": [
    {"id": "home", "size": 9, "buttons": [
      {"id": "to_items", "type": "link", "slot": 4, "target": "items", "icon": {"key": "chest"}}
    ]},
    {"id": "items", "size": 27}
  ]
}`

const shopTOML = `
cluster = "shop"
main_menu = "home"

[[windows]]
id = "home"
size = 9

[[windows.buttons]]
id = "to_items"
type = "link"
slot = 4
target = "items"
icon = { key = "chest" }

[[windows]]
id = "items"
size = 27
`

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	eng, err := engine.New(engine.Options{
		Host:      testutil.NewMockHost(t),
		Scheduler: scheduler.NewManual[types.Identity](),
	})
	require.NoError(t, err)
	t.Cleanup(eng.Close)
	return eng
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		format configstore.Format
		data   string
	}{
		{configstore.FormatYAML, shopYAML},
		{configstore.FormatJSON, shopJSON},
		{configstore.FormatTOML, shopTOML},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			bp, err := Parse([]byte(tt.data), tt.format)
			require.NoError(t, err)
			assert.Equal(t, "shop", bp.Cluster)
			assert.Equal(t, "home", bp.MainMenu)
			require.Len(t, bp.Windows, 2)
			home := bp.Windows[0]
			require.NotEmpty(t, home.Buttons)
			link := home.Buttons[0]
			assert.Equal(t, TypeLink, link.Type)
			assert.Equal(t, []int{4}, link.BoundSlots())
			assert.Equal(t, &types.Item{Key: "chest", Amount: 1}, link.Icon.Item())
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"no cluster", `windows: [{id: a, size: 9}]`, "cluster is required"},
		{"duplicate window", "cluster: c\nwindows: [{id: a, size: 9}, {id: a, size: 9}]", `window "a" declared twice`},
		{"bad size", "cluster: c\nwindows: [{id: a, size: 10}]", "invalid surface size"},
		{"bad kind", "cluster: c\nwindows: [{id: a, kind: barrel}]", "unknown surface kind"},
		{"main menu undeclared", "cluster: c\nmain_menu: z\nwindows: [{id: a, size: 9}]", `main_menu "z"`},
		{"link without target", "cluster: c\nwindows: [{id: a, size: 9, buttons: [{id: l, type: link}]}]", "needs a target"},
		{"chat without capture", "cluster: c\nbuttons: [{id: q, type: chat}]", "capture id"},
		{"unknown type", "cluster: c\nbuttons: [{id: q, type: laser}]", "unknown type"},
		{"button without id", "cluster: c\nbuttons: [{type: back}]", "without id"},
		{"cluster id with colon", "cluster: a:b", "cluster contains invalid characters"},
		{"window id with space", "cluster: c\nwindows: [{id: main menu, size: 9}]", "window id contains invalid characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), configstore.FormatYAML)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestParseTarget(t *testing.T) {
	assert.Equal(t, types.Key{Window: "items"}, ParseTarget("items"))
	assert.Equal(t, types.Key{Cluster: "bank", Window: "vault"}, ParseTarget("bank:vault"))
}

func TestApply(t *testing.T) {
	eng := newEngine(t)
	bp, err := Parse([]byte(shopYAML), configstore.FormatYAML)
	require.NoError(t, err)
	require.NoError(t, NewBuilder(eng, nil).Apply(context.Background(), bp))

	c, ok := eng.Clusters().Get("shop")
	require.True(t, ok)
	assert.Equal(t, "home", c.MainMenu())
	_, ok = c.Button("exit")
	assert.True(t, ok, "cluster-wide buttons are registered globally")

	home, ok := eng.Clusters().Window(types.Key{Cluster: "shop", Window: "home"})
	require.True(t, ok)
	assert.Equal(t, map[int]string{0: "frame", 4: "to_items", 8: "frame"}, home.Bindings())
	assert.Equal(t, "$inventories.shop.home$", home.TitleTemplate())

	items, ok := eng.Clusters().Window(types.Key{Cluster: "shop", Window: "items"})
	require.True(t, ok)
	assert.Equal(t, 27, items.Layout().Slots())
	assert.Equal(t, "shop.items", items.Permission())
	link, ok := items.Button("to_bank")
	require.True(t, ok, "unbound window buttons stay placeable")
	assert.Equal(t, types.Key{Cluster: "bank", Window: "vault"}, link.(*button.Link).Target())

	deposit, ok := items.Button("deposit")
	require.True(t, ok)
	assert.True(t, button.CapturesInput(deposit))

	// applying the same cluster twice collides on windows
	assert.Error(t, NewBuilder(eng, nil).Apply(context.Background(), bp))
}

func TestScriptButtons(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hello.js"), []byte("function execute(e) { return true }"), 0o644))
	path := filepath.Join(dir, "scripted.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
cluster: fun
windows:
  - id: main
    size: 9
    buttons:
      - {id: inline, type: script, slot: 0, script: "function execute(e) { return false }", input: true}
      - {id: file, type: script, slot: 1, script_file: hello.js}
`), 0o644))
	bp, err := ParseFile(path)
	require.NoError(t, err)

	assert.ErrorContains(t, NewBuilder(newEngine(t), nil).Apply(context.Background(), bp), "scripting is disabled")

	sources := map[string]string{}
	compiler := func(_ context.Context, id string, icon *types.Item, source string, input bool) (button.Button, error) {
		sources[id] = source
		if id == "inline" {
			assert.True(t, input)
		}
		return button.NewStatic(id, icon), nil
	}
	require.NoError(t, NewBuilder(newEngine(t), compiler).Apply(context.Background(), bp))
	assert.Equal(t, "function execute(e) { return true }", sources["file"])
	assert.Equal(t, "function execute(e) { return false }", sources["inline"])

	failing := func(context.Context, string, *types.Item, string, bool) (button.Button, error) {
		return nil, errors.New("syntax error")
	}
	assert.ErrorContains(t, NewBuilder(newEngine(t), failing).Apply(context.Background(), bp), "syntax error")
}

func TestSeeder(t *testing.T) {
	dir := t.TempDir()
	write := func(rel, content string) {
		path := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	write("shop.yml", shopYAML)
	write("nested/bank.json", `{"cluster": "bank", "main_menu": "vault", "windows": [{"id": "vault", "size": 54}]}`)
	write("nested/deeper/mine.toml", "cluster = \"mine\"\n[[windows]]\nid = \"shaft\"\nkind = \"hopper\"\n")
	write("broken.yaml", "cluster: [")
	write("notes.txt", "not a blueprint")

	eng := newEngine(t)
	res, err := NewSeeder(NewBuilder(eng, nil), dir, nil).Seed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"nested/bank.json", "nested/deeper/mine.toml", "shop.yml"}, res.Loaded)
	require.Contains(t, res.Failed, "broken.yaml")
	assert.Len(t, res.Failed, 1)

	for _, id := range []string{"shop", "bank", "mine"} {
		_, ok := eng.Clusters().Get(id)
		assert.True(t, ok, id)
	}
}

func TestSeederMissingDirectory(t *testing.T) {
	res, err := NewSeeder(NewBuilder(newEngine(t), nil), filepath.Join(t.TempDir(), "none"), nil).Seed(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Loaded)
}
