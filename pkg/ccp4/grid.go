package ccp4

import (
	"math"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// spaceGroupNames covers the spacegroups that appear in practice in
// PanDDA output. Anything else is reported by number.
var spaceGroupNames = map[int32]string{
	1:  "P 1",
	4:  "P 1 21 1",
	5:  "C 1 2 1",
	19: "P 21 21 21",
	96: "P 43 21 2",
}

// NewMap allocates a zero-filled P 1 map covering the full unit cell with
// canonical axis order, ready for element-wise assignment and Write.
func NewMap(nu, nv, nw int, cell Cell) *Map {
	return &Map{
		Header: Header{
			NC: int32(nu), NR: int32(nv), NS: int32(nw),
			Mode: ModeFloat32,
			NX:   int32(nu), NY: int32(nv), NZ: int32(nw),
			Cell: cell,
			MapC: 1, MapR: 2, MapS: 3,
			ISpg: 1,
		},
		Data: make([]float32, nu*nv*nw),
	}
}

// Dims returns the current extent of the voxel array.
func (m *Map) Dims() (nu, nv, nw int) {
	return int(m.Header.NC), int(m.Header.NR), int(m.Header.NS)
}

// At returns the voxel at (u, v, w). Meaningful as X/Y/Z indices once the
// map is in canonical axis order (after Setup or NewMap).
func (m *Map) At(u, v, w int) float32 {
	nu, nv, _ := m.Dims()
	return m.Data[u+nu*(v+nv*w)]
}

// Set assigns the voxel at (u, v, w).
func (m *Map) Set(u, v, w int, val float32) {
	nu, nv, _ := m.Dims()
	m.Data[u+nu*(v+nv*w)] = val
}

// SpaceGroup returns the symbol for the map's spacegroup number.
func (m *Map) SpaceGroup() string {
	if name, ok := spaceGroupNames[m.Header.ISpg]; ok {
		return name
	}
	return "SG " + strconv.Itoa(int(m.Header.ISpg))
}

// SetSpaceGroupP1 forces the map into the trivial spacegroup, so that
// symmetry-reduced coordinates equal raw coordinates for every consumer.
func (m *Map) SetSpaceGroupP1() {
	m.Header.ISpg = 1
	m.Header.NSymBt = 0
}

// Setup expands the stored block to the full unit-cell grid in canonical
// X/Y/Z axis order. Voxels the stored block never covered take fill;
// passing NaN keeps them distinguishable from measured zero density.
// Running Setup on an already-canonical full-cell map leaves the voxel
// values unchanged.
func (m *Map) Setup(fill float32) {
	h := &m.Header
	nx, ny, nz := int(h.NX), int(h.NY), int(h.NZ)

	out := make([]float32, nx*ny*nz)
	for i := range out {
		out[i] = fill
	}

	// Axis index (0=X, 1=Y, 2=Z) for each of column, row, section.
	axisOf := [3]int{int(h.MapC) - 1, int(h.MapR) - 1, int(h.MapS) - 1}
	start := [3]int{int(h.NCStart), int(h.NRStart), int(h.NSStart)}
	full := [3]int{nx, ny, nz}

	nc, nr, ns := int(h.NC), int(h.NR), int(h.NS)
	i := 0
	for s := 0; s < ns; s++ {
		for r := 0; r < nr; r++ {
			for c := 0; c < nc; c++ {
				crs := [3]int{c, r, s}
				var xyz [3]int
				for k := 0; k < 3; k++ {
					ax := axisOf[k]
					p := (start[k] + crs[k]) % full[ax]
					if p < 0 {
						p += full[ax]
					}
					xyz[ax] = p
				}
				out[xyz[0]+nx*(xyz[1]+ny*xyz[2])] = m.Data[i]
				i++
			}
		}
	}

	m.Data = out
	h.NC, h.NR, h.NS = int32(nx), int32(ny), int32(nz)
	h.NCStart, h.NRStart, h.NSStart = 0, 0, 0
	h.MapC, h.MapR, h.MapS = 1, 2, 3
}

// ReplaceNonFinite overwrites every NaN or infinite voxel with the given
// value and reports how many voxels were replaced.
func (m *Map) ReplaceNonFinite(with float32) int {
	replaced := 0
	for i, v := range m.Data {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			m.Data[i] = with
			replaced++
		}
	}
	return replaced
}

// UpdateStats recomputes the header summary statistics from the current
// voxel array and records the given storage mode. With extended set, the
// RMS deviation from the mean is recomputed as well. Non-finite voxels
// must be replaced before calling; they would poison every statistic.
func (m *Map) UpdateStats(mode int, extended bool) {
	vals := make([]float64, len(m.Data))
	for i, v := range m.Data {
		vals[i] = float64(v)
	}

	h := &m.Header
	h.Mode = int32(mode)
	if len(vals) == 0 {
		h.DMin, h.DMax, h.DMean, h.RMS = 0, 0, 0, 0
		return
	}
	h.DMin = float32(floats.Min(vals))
	h.DMax = float32(floats.Max(vals))
	mean := stat.Mean(vals, nil)
	h.DMean = float32(mean)
	if extended {
		h.RMS = float32(math.Sqrt(stat.PopVariance(vals, nil)))
	}
}
