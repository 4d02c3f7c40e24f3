// Package ccp4 reads and writes CCP4/MRC electron-density map files.
// It exposes the voxel grid as a directly mutable array together with the
// unit cell and spacegroup metadata, and can re-derive the grid layout and
// header statistics after mutation. Only mode 2 (32-bit float) maps are
// supported, which is the mode every PanDDA map is written in.
package ccp4

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// ErrFormat reports a file that is not a readable mode-2 CCP4 map.
// Callers that batch over many files should treat it as a per-file
// failure rather than aborting the run.
var ErrFormat = errors.New("ccp4: invalid map file")

const (
	headerSize = 1024
	labelSize  = 80
	numLabels  = 10

	// ModeFloat32 is the only voxel storage mode this package handles.
	ModeFloat32 = 2
)

// magic is the map/machine-stamp pair at words 53-54 of the header.
var magic = [4]byte{'M', 'A', 'P', ' '}

// Cell holds the real-space unit cell: edge lengths in angstroms and
// angles in degrees.
type Cell struct {
	A, B, C            float32
	Alpha, Beta, Gamma float32
}

// Header mirrors the CCP4 map header fields this tool reads or rewrites.
// Field names follow the format documentation (NC/NR/NS are the stored
// column/row/section extents, NX/NY/NZ the full-cell sampling counts).
type Header struct {
	NC, NR, NS                int32
	Mode                      int32
	NCStart, NRStart, NSStart int32
	NX, NY, NZ                int32
	Cell                      Cell
	MapC, MapR, MapS          int32
	DMin, DMax, DMean         float32
	ISpg                      int32
	NSymBt                    int32
	Origin                    [3]float32
	RMS                       float32
	Labels                    []string
}

// Map is one volumetric map: header metadata plus the voxel payload.
// Data is stored in file order, column index fastest:
// Data[c + NC*(r + NR*s)]. After Setup the axes are canonical (X fastest)
// and the extent covers the full unit cell.
type Map struct {
	Header Header
	Data   []float32
}

// Read loads a map from path. Header corruption, an unsupported voxel
// mode, or a truncated payload all fail with an error wrapping ErrFormat,
// so the file can be reported and skipped without aborting a batch.
func Read(path string) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open map file: %w", err)
	}
	defer f.Close()

	buf := make([]byte, headerSize)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, fmt.Errorf("%w: %s: header truncated: %v", ErrFormat, path, err)
	}

	if [4]byte(buf[208:212]) != magic {
		return nil, fmt.Errorf("%w: %s: missing MAP magic word", ErrFormat, path)
	}
	// Machine stamp: 0x44 first byte means little-endian, 0x11 big-endian.
	// Some writers leave the stamp zeroed; those files are little-endian
	// in practice.
	switch buf[212] {
	case 0x44, 0x00:
	case 0x11:
		return nil, fmt.Errorf("%w: %s: big-endian maps are not supported", ErrFormat, path)
	default:
		return nil, fmt.Errorf("%w: %s: unrecognized machine stamp 0x%02x", ErrFormat, path, buf[212])
	}

	le := binary.LittleEndian
	word := func(i int) int32 { return int32(le.Uint32(buf[i*4:])) }
	fword := func(i int) float32 { return math.Float32frombits(le.Uint32(buf[i*4:])) }

	h := Header{
		NC:      word(0),
		NR:      word(1),
		NS:      word(2),
		Mode:    word(3),
		NCStart: word(4),
		NRStart: word(5),
		NSStart: word(6),
		NX:      word(7),
		NY:      word(8),
		NZ:      word(9),
		Cell: Cell{
			A: fword(10), B: fword(11), C: fword(12),
			Alpha: fword(13), Beta: fword(14), Gamma: fword(15),
		},
		MapC:   word(16),
		MapR:   word(17),
		MapS:   word(18),
		DMin:   fword(19),
		DMax:   fword(20),
		DMean:  fword(21),
		ISpg:   word(22),
		NSymBt: word(23),
		Origin: [3]float32{fword(49), fword(50), fword(51)},
		RMS:    fword(54),
	}

	nLabels := int(word(55))
	if nLabels < 0 || nLabels > numLabels {
		nLabels = 0
	}
	for i := 0; i < nLabels; i++ {
		start := 224 + i*labelSize
		h.Labels = append(h.Labels, trimLabel(buf[start:start+labelSize]))
	}

	if h.Mode != ModeFloat32 {
		return nil, fmt.Errorf("%w: %s: unsupported voxel mode %d (only mode 2 float maps are handled)", ErrFormat, path, h.Mode)
	}
	if h.NC <= 0 || h.NR <= 0 || h.NS <= 0 || h.NX <= 0 || h.NY <= 0 || h.NZ <= 0 {
		return nil, fmt.Errorf("%w: %s: non-positive grid dimensions", ErrFormat, path)
	}
	if !validAxes(h.MapC, h.MapR, h.MapS) {
		return nil, fmt.Errorf("%w: %s: invalid axis order %d %d %d", ErrFormat, path, h.MapC, h.MapR, h.MapS)
	}

	// Symmetry operator records sit between the header and the voxels.
	// They are parsed past, not retained: every map this tool writes is
	// P 1 and carries none.
	if h.NSymBt > 0 {
		if _, err := io.CopyN(io.Discard, f, int64(h.NSymBt)); err != nil {
			return nil, fmt.Errorf("%w: %s: symmetry block truncated: %v", ErrFormat, path, err)
		}
	}

	n := int(h.NC) * int(h.NR) * int(h.NS)
	raw := make([]byte, 4*n)
	if _, err := io.ReadFull(f, raw); err != nil {
		return nil, fmt.Errorf("%w: %s: voxel payload truncated: %v", ErrFormat, path, err)
	}
	data := make([]float32, n)
	for i := range data {
		data[i] = math.Float32frombits(le.Uint32(raw[i*4:]))
	}

	return &Map{Header: h, Data: data}, nil
}

// Write serializes the map to path, overwriting any existing file.
// Output is always little-endian with a native machine stamp and no
// symmetry operator block.
func (m *Map) Write(path string) error {
	n := int(m.Header.NC) * int(m.Header.NR) * int(m.Header.NS)
	if len(m.Data) != n {
		return fmt.Errorf("grid shape mismatch: header declares %d voxels, array holds %d", n, len(m.Data))
	}

	buf := make([]byte, headerSize)
	le := binary.LittleEndian
	setWord := func(i int, v int32) { le.PutUint32(buf[i*4:], uint32(v)) }
	setFword := func(i int, v float32) { le.PutUint32(buf[i*4:], math.Float32bits(v)) }

	h := m.Header
	setWord(0, h.NC)
	setWord(1, h.NR)
	setWord(2, h.NS)
	setWord(3, h.Mode)
	setWord(4, h.NCStart)
	setWord(5, h.NRStart)
	setWord(6, h.NSStart)
	setWord(7, h.NX)
	setWord(8, h.NY)
	setWord(9, h.NZ)
	setFword(10, h.Cell.A)
	setFword(11, h.Cell.B)
	setFword(12, h.Cell.C)
	setFword(13, h.Cell.Alpha)
	setFword(14, h.Cell.Beta)
	setFword(15, h.Cell.Gamma)
	setWord(16, h.MapC)
	setWord(17, h.MapR)
	setWord(18, h.MapS)
	setFword(19, h.DMin)
	setFword(20, h.DMax)
	setFword(21, h.DMean)
	setWord(22, h.ISpg)
	setWord(23, 0) // no symmetry records written
	setFword(49, h.Origin[0])
	setFword(50, h.Origin[1])
	setFword(51, h.Origin[2])
	copy(buf[208:212], magic[:])
	buf[212] = 0x44
	buf[213] = 0x41
	setFword(54, h.RMS)

	labels := h.Labels
	if len(labels) > numLabels {
		labels = labels[:numLabels]
	}
	setWord(55, int32(len(labels)))
	for i, label := range labels {
		start := 224 + i*labelSize
		field := buf[start : start+labelSize]
		for j := range field {
			field[j] = ' '
		}
		if len(label) > labelSize {
			label = label[:labelSize]
		}
		copy(field, label)
	}

	payload := make([]byte, 4*n)
	for i, v := range m.Data {
		le.PutUint32(payload[i*4:], math.Float32bits(v))
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create map file: %w", err)
	}
	if _, err := f.Write(buf); err != nil {
		f.Close()
		return fmt.Errorf("failed to write map header: %w", err)
	}
	if _, err := f.Write(payload); err != nil {
		f.Close()
		return fmt.Errorf("failed to write map voxels: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close map file: %w", err)
	}
	return nil
}

func validAxes(c, r, s int32) bool {
	seen := [4]bool{}
	for _, a := range []int32{c, r, s} {
		if a < 1 || a > 3 || seen[a] {
			return false
		}
		seen[a] = true
	}
	return true
}

func trimLabel(b []byte) string {
	end := len(b)
	for end > 0 && (b[end-1] == ' ' || b[end-1] == 0) {
		end--
	}
	return string(b[:end])
}
