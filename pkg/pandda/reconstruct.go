package pandda

import (
	"errors"
	"fmt"
	"path/filepath"

	"panddamaps/internal/models"
	"panddamaps/pkg/ccp4"
)

// ErrInvalidBDC rejects a background density correction factor outside
// (0, 1] before the reconstruction division runs.
var ErrInvalidBDC = errors.New("bdc must be in (0, 1]")

// ErrDimensionMismatch reports mean and observed maps whose grids do not
// agree; reconstruction never truncates one grid to fit the other.
var ErrDimensionMismatch = errors.New("mean and observed maps have different grid dimensions")

// ReconstructEventMap rebuilds the event map for one detected event from
// the dataset's ground-state average map and observed map:
//
//	event = (observed - (1-bdc)*mean) / bdc
//
// applied element-wise. The output map takes the observed map's
// dimensions and unit cell in spacegroup P 1 and is written into the
// dataset directory under the standard event-map name, overwriting any
// existing file for the same dataset and event index. The output path is
// returned.
func ReconstructEventMap(root string, rec models.EventRecord, layout Layout) (string, error) {
	if rec.BDC <= 0 || rec.BDC > 1 {
		return "", fmt.Errorf("%w: got %g for dataset %s event %d", ErrInvalidBDC, rec.BDC, rec.Dtag, rec.EventIdx)
	}

	datasetDir := layout.DatasetDir(root, rec.Dtag)

	meanPath := filepath.Join(datasetDir, layout.MeanMapName(rec.Dtag))
	mean, err := ccp4.Read(meanPath)
	if err != nil {
		return "", fmt.Errorf("failed to load ground-state mean map: %w", err)
	}

	observedPath := filepath.Join(datasetDir, layout.ObservedMapName)
	observed, err := ccp4.Read(observedPath)
	if err != nil {
		return "", fmt.Errorf("failed to load observed map: %w", err)
	}

	// Both inputs are full, finite maps; expanding with a zero fill
	// brings them onto the same canonical full-cell grid.
	mean.Setup(0)
	observed.Setup(0)

	nu, nv, nw := observed.Dims()
	mu, mv, mw := mean.Dims()
	if mu != nu || mv != nv || mw != nw {
		return "", fmt.Errorf("%w: mean (%d,%d,%d) vs observed (%d,%d,%d) for dataset %s",
			ErrDimensionMismatch, mu, mv, mw, nu, nv, nw, rec.Dtag)
	}

	out := ccp4.NewMap(nu, nv, nw, observed.Header.Cell)
	bdc := rec.BDC
	for i := range out.Data {
		x := float64(observed.Data[i])
		g := float64(mean.Data[i])
		out.Data[i] = float32((x - (1-bdc)*g) / bdc)
	}
	out.UpdateStats(ccp4.ModeFloat32, true)

	outPath := filepath.Join(datasetDir, layout.EventMapName(rec.Dtag, rec.EventIdx, bdc))
	if err := out.Write(outPath); err != nil {
		return "", fmt.Errorf("failed to write reconstructed event map: %w", err)
	}
	return outPath, nil
}
