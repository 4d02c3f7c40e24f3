package pandda

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"panddamaps/pkg/ccp4"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func markLegacy(t *testing.T, root string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(root, "pandda.done"), nil, 0644))
}

// TestRunLegacyRoot covers the legacy path end to end: a stored event map
// with NaNs in a non-triclinic spacegroup comes out readable, in P 1, and
// finite.
func TestRunLegacyRoot(t *testing.T) {
	root := t.TempDir()
	markLegacy(t, root)

	dir := makeDatasetDir(t, root, "D1")
	path := filepath.Join(dir, "D1-event_1_1-BDC_0.4_map.native.ccp4")
	m := writeTestMap(t, path, 4, 4, 4, func(u, v, w int) float32 { return float32(u) })
	m.Header.ISpg = 19
	m.Data[5] = float32(math.NaN())
	require.NoError(t, m.Write(path))

	d := NewDispatcher(nil, zap.NewNop())
	sum, err := d.Run(root)
	require.NoError(t, err)
	assert.Equal(t, Summary{Processed: 1, Failed: 0}, sum)

	got, err := ccp4.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "P 1", got.SpaceGroup())
	for i, v := range got.Data {
		require.False(t, math.IsNaN(float64(v)), "voxel %d still NaN", i)
	}
}

// TestRunCurrentRoot covers the reconstruction path end to end for one
// table row against 10x10x10 inputs.
func TestRunCurrentRoot(t *testing.T) {
	root := t.TempDir()
	layout := DefaultLayout()

	dir := makeDatasetDir(t, root, "D1")
	writeTestMap(t, filepath.Join(dir, layout.MeanMapName("D1")), 10, 10, 10, func(u, v, w int) float32 {
		return float32(u+v) * 0.25
	})
	writeTestMap(t, filepath.Join(dir, layout.ObservedMapName), 10, 10, 10, func(u, v, w int) float32 {
		return float32(w) - 0.5
	})

	tableDir := filepath.Join(root, "analyses")
	require.NoError(t, os.MkdirAll(tableDir, 0755))
	table := "dtag,event_idx,1-BDC\nD1,1,0.3\n"
	require.NoError(t, os.WriteFile(filepath.Join(tableDir, "pandda_inspect_events.csv"), []byte(table), 0644))

	d := NewDispatcher(nil, zap.NewNop())
	sum, err := d.Run(root)
	require.NoError(t, err)
	assert.Equal(t, Summary{Processed: 1, Failed: 0}, sum)

	outPath := filepath.Join(dir, "D1-event_1_1-BDC_0.3_map.native.ccp4")
	out, err := ccp4.Read(outPath)
	require.NoError(t, err)

	bdc := 0.3
	for w := 0; w < 10; w++ {
		for v := 0; v < 10; v++ {
			for u := 0; u < 10; u++ {
				x := float64(float32(w) - 0.5)
				g := float64(float32(u+v) * 0.25)
				want := float32((x - (1-bdc)*g) / bdc)
				require.Equal(t, want, out.At(u, v, w), "voxel (%d,%d,%d)", u, v, w)
			}
		}
	}
}

// TestRunLegacyExclusion checks an excluded event map is neither
// processed nor modified.
func TestRunLegacyExclusion(t *testing.T) {
	root := t.TempDir()
	markLegacy(t, root)

	dir := makeDatasetDir(t, root, "D1")
	var paths []string
	for i, name := range []string{
		"D1-event_1_1-BDC_0.3_map.native.ccp4",
		"D1-event_2_1-BDC_0.4_map.native.ccp4",
		"D1-event_3_1-BDC_0.5_map.native.ccp4",
	} {
		path := filepath.Join(dir, name)
		m := writeTestMap(t, path, 3, 3, 3, func(u, v, w int) float32 { return float32(i) })
		m.Header.ISpg = 19
		require.NoError(t, m.Write(path))
		paths = append(paths, path)
	}

	excludedBefore, err := os.ReadFile(paths[1])
	require.NoError(t, err)

	d := NewDispatcher(NewExclusionSet([]string{paths[1]}), zap.NewNop())
	sum, err := d.Run(root)
	require.NoError(t, err)
	assert.Equal(t, Summary{Processed: 2, Failed: 0}, sum)

	excludedAfter, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	assert.Equal(t, excludedBefore, excludedAfter, "excluded file must stay byte-identical")

	for _, path := range []string{paths[0], paths[2]} {
		got, err := ccp4.Read(path)
		require.NoError(t, err)
		assert.Equal(t, "P 1", got.SpaceGroup())
	}
}

// TestRunLegacyCorruptFileSkipped checks a corrupt map is logged and
// skipped while the rest of the batch completes.
func TestRunLegacyCorruptFileSkipped(t *testing.T) {
	root := t.TempDir()
	markLegacy(t, root)

	dir := makeDatasetDir(t, root, "D1")
	good := filepath.Join(dir, "D1-event_1_1-BDC_0.3_map.native.ccp4")
	writeTestMap(t, good, 3, 3, 3, func(u, v, w int) float32 { return 1 })

	bad := filepath.Join(dir, "D1-event_2_1-BDC_0.4_map.native.ccp4")
	require.NoError(t, os.WriteFile(bad, []byte("garbage"), 0644))

	d := NewDispatcher(nil, zap.NewNop())
	sum, err := d.Run(root)
	require.NoError(t, err)
	assert.Equal(t, Summary{Processed: 1, Failed: 1}, sum)

	_, err = ccp4.Read(good)
	assert.NoError(t, err)
}

// TestRunCurrentRowFailuresDoNotAbort checks one bad table row (missing
// dataset) does not stop reconstruction of the others.
func TestRunCurrentRowFailuresDoNotAbort(t *testing.T) {
	root := t.TempDir()
	layout := DefaultLayout()

	dir := makeDatasetDir(t, root, "D1")
	writeTestMap(t, filepath.Join(dir, layout.MeanMapName("D1")), 4, 4, 4, func(u, v, w int) float32 { return 1 })
	writeTestMap(t, filepath.Join(dir, layout.ObservedMapName), 4, 4, 4, func(u, v, w int) float32 { return 2 })

	tableDir := filepath.Join(root, "analyses")
	require.NoError(t, os.MkdirAll(tableDir, 0755))
	table := "dtag,event_idx,1-BDC\nMISSING,1,0.5\nD1,1,0.5\n"
	require.NoError(t, os.WriteFile(filepath.Join(tableDir, "pandda_inspect_events.csv"), []byte(table), 0644))

	d := NewDispatcher(nil, zap.NewNop())
	sum, err := d.Run(root)
	require.NoError(t, err)
	assert.Equal(t, Summary{Processed: 1, Failed: 1}, sum)

	_, err = os.Stat(filepath.Join(dir, layout.EventMapName("D1", 1, 0.5)))
	assert.NoError(t, err)
}

// TestRunCurrentMissingTableFatal checks the reconstruction path aborts
// without a results table.
func TestRunCurrentMissingTableFatal(t *testing.T) {
	root := t.TempDir()

	d := NewDispatcher(nil, zap.NewNop())
	_, err := d.Run(root)
	assert.Error(t, err)
}

func TestRunMissingRootFatal(t *testing.T) {
	d := NewDispatcher(nil, zap.NewNop())
	_, err := d.Run(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
