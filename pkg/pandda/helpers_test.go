package pandda

import (
	"os"
	"path/filepath"
	"testing"

	"panddamaps/pkg/ccp4"

	"github.com/stretchr/testify/require"
)

func testCell() ccp4.Cell {
	return ccp4.Cell{A: 40, B: 50, C: 60, Alpha: 90, Beta: 90, Gamma: 90}
}

// writeTestMap writes a canonical map with the given voxel values to path,
// creating parent directories as needed.
func writeTestMap(t *testing.T, path string, nu, nv, nw int, values func(u, v, w int) float32) *ccp4.Map {
	t.Helper()

	m := ccp4.NewMap(nu, nv, nw, testCell())
	for w := 0; w < nw; w++ {
		for v := 0; v < nv; v++ {
			for u := 0; u < nu; u++ {
				m.Set(u, v, w, values(u, v, w))
			}
		}
	}
	m.UpdateStats(ccp4.ModeFloat32, true)

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, m.Write(path))
	return m
}

// makeDatasetDir creates one dataset directory under the root's
// processed-datasets area and returns its path.
func makeDatasetDir(t *testing.T, root, dtag string) string {
	t.Helper()

	dir := DefaultLayout().DatasetDir(root, dtag)
	require.NoError(t, os.MkdirAll(dir, 0755))
	return dir
}
