package settings

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() *Group {
	root := New()
	plot := root.Ensure("plot3d")
	plot.Set("plot3dType", 0)
	plot.Set("timeHorizon", 60)
	plot.Set("samplingFrequency", 100.5)
	plot.Set("colorMap", 2)

	src := plot.Ensure("spectrogramDataSource0")
	src.Set("uavObject", "Accels")
	src.Set("uavField", "x")
	src.Set("colormap", uint32(0xffff0000))
	return root
}

func TestGroup_Accessors(t *testing.T) {
	g := New()
	g.Set("int", 42)
	g.Set("float", 2.5)
	g.Set("numeric", "17")
	g.Set("hex", "0xff00ff00")
	g.Set("bool", "true")

	i, ok := g.Int("int")
	require.True(t, ok)
	assert.Equal(t, 42, i)

	i, ok = g.Int("float")
	require.True(t, ok)
	assert.Equal(t, 2, i)

	i, ok = g.Int("numeric")
	require.True(t, ok)
	assert.Equal(t, 17, i)

	f, ok := g.Float("int")
	require.True(t, ok)
	assert.Equal(t, 42.0, f)

	u, ok := g.Uint32("hex")
	require.True(t, ok)
	assert.Equal(t, uint32(0xff00ff00), u)

	b, ok := g.Bool("bool")
	require.True(t, ok)
	assert.True(t, b)

	s, ok := g.String("float")
	require.True(t, ok)
	assert.Equal(t, "2.5", s)

	_, ok = g.Int("missing")
	assert.False(t, ok)
	assert.False(t, g.Has("missing"))
}

func TestGroup_NilSafeLookup(t *testing.T) {
	var g *Group
	_, ok := g.Group("anything")
	assert.False(t, ok)
	_, ok = g.Float("anything")
	assert.False(t, ok)
}

func TestGroup_Ensure(t *testing.T) {
	g := New()
	a := g.Ensure("a")
	a.Set("k", 1)

	again := g.Ensure("a")
	assert.Same(t, a, again)
	assert.Equal(t, []string{"a"}, g.Groups())

	g.RemoveGroup("a")
	_, ok := g.Group("a")
	assert.False(t, ok)
}

func TestCodec_RoundTrip(t *testing.T) {
	for _, format := range []Format{FormatYAML, FormatTOML} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, format, sampleDocument()))

			decoded, err := Decode(&buf, format)
			require.NoError(t, err)

			plot, ok := decoded.Group("plot3d")
			require.True(t, ok)

			horizon, ok := plot.Int("timeHorizon")
			require.True(t, ok)
			assert.Equal(t, 60, horizon)

			freq, ok := plot.Float("samplingFrequency")
			require.True(t, ok)
			assert.Equal(t, 100.5, freq)

			src, ok := plot.Group("spectrogramDataSource0")
			require.True(t, ok)

			name, _ := src.String("uavObject")
			assert.Equal(t, "Accels", name)

			color, ok := src.Uint32("colormap")
			require.True(t, ok)
			assert.Equal(t, uint32(0xffff0000), color)
		})
	}
}

func TestCodec_EmptyInput(t *testing.T) {
	g, err := Decode(bytes.NewReader(nil), FormatYAML)
	require.NoError(t, err)
	assert.Empty(t, g.Keys())
	assert.Empty(t, g.Groups())
}

func TestLoadSave(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"scope.yaml", "scope.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, Save(path, sampleDocument()))

			loaded, err := Load(path)
			require.NoError(t, err)

			plot, ok := loaded.Group("plot3d")
			require.True(t, ok)
			cm, ok := plot.Int("colorMap")
			require.True(t, ok)
			assert.Equal(t, 2, cm)
		})
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "temporary files must not be left behind")
}

func TestFormatFromPath(t *testing.T) {
	testCases := []struct {
		path    string
		format  Format
		wantErr bool
	}{
		{"a.yaml", FormatYAML, false},
		{"a.YML", FormatYAML, false},
		{"a.toml", FormatTOML, false},
		{"a.xml", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			format, err := FormatFromPath(tc.path)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.format, format)
		})
	}
}
