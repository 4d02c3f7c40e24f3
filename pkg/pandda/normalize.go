package pandda

import (
	"fmt"
	"math"

	"panddamaps/pkg/ccp4"
)

// NormalizeEventMap rewrites one stored event map in place so every
// downstream consumer reads it the same way: spacegroup forced to P 1,
// grid expanded to the full unit cell, non-finite voxels zeroed, header
// statistics recomputed. The operation is idempotent; re-running it on an
// already-normalized file changes nothing.
//
// An unreadable file is reported through the returned error (wrapping
// ccp4.ErrFormat when the file itself is corrupt) and left unmodified.
func NormalizeEventMap(path string) error {
	m, err := ccp4.Read(path)
	if err != nil {
		return err
	}

	m.SetSpaceGroupP1()

	// Expand with a NaN fill so voxels the stored asymmetric unit never
	// covered stay distinguishable from measured zero density until the
	// sweep below.
	m.Setup(float32(math.NaN()))
	m.ReplaceNonFinite(0)

	m.UpdateStats(ccp4.ModeFloat32, true)

	if err := m.Write(path); err != nil {
		return fmt.Errorf("failed to rewrite normalized event map: %w", err)
	}
	return nil
}
