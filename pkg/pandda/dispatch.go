package pandda

import (
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"panddamaps/internal/models"
	"panddamaps/pkg/ccp4"
)

// Summary reports how a batch run went. Failed counts per-item failures
// that were logged and skipped; callers decide whether they affect the
// process exit status.
type Summary struct {
	Processed int
	Failed    int
}

// Dispatcher selects and drives one of the two processing pipelines for
// an analysis root: header normalization of stored event maps for legacy
// roots, event-map reconstruction for current ones. Per-item failures are
// logged and skipped so one bad input cannot abort the remaining
// thousands of datasets; batch-level precondition failures abort the run.
type Dispatcher struct {
	Layout     Layout
	Exclusions ExclusionSet
	Log        *zap.Logger
}

// NewDispatcher builds a dispatcher with the standard layout.
func NewDispatcher(exclusions ExclusionSet, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		Layout:     DefaultLayout(),
		Exclusions: exclusions,
		Log:        log,
	}
}

// Run classifies the root and processes its full batch.
func (d *Dispatcher) Run(root string) (Summary, error) {
	class, err := Classify(root, d.Layout)
	if err != nil {
		return Summary{}, err
	}
	d.Log.Info("classified analysis root",
		zap.String("root", root),
		zap.String("classification", string(class)))

	switch class {
	case models.ClassificationLegacy:
		return d.runNormalization(root)
	case models.ClassificationCurrent:
		return d.runReconstruction(root)
	default:
		// The classifier only ever returns the two values above; a
		// third means the program is broken, not the input.
		return Summary{}, fmt.Errorf("unrecognized root classification %q", class)
	}
}

func (d *Dispatcher) runNormalization(root string) (Summary, error) {
	files, err := EnumerateEventMaps(root, d.Layout, d.Exclusions)
	if err != nil {
		return Summary{}, err
	}
	d.Log.Info("found event map files", zap.Int("count", len(files)))

	var sum Summary
	for _, file := range files {
		if err := NormalizeEventMap(file); err != nil {
			sum.Failed++
			if errors.Is(err, ccp4.ErrFormat) {
				d.Log.Warn("event map could not be opened; the file is likely corrupted and unsuitable for further analysis; add it to excluded_files to skip it",
					zap.String("file", file),
					zap.Error(err))
			} else {
				d.Log.Warn("failed to normalize event map",
					zap.String("file", file),
					zap.Error(err))
			}
			continue
		}
		sum.Processed++
		d.Log.Info("normalized event map", zap.String("file", file))
	}
	d.logSummary(sum)
	return sum, nil
}

func (d *Dispatcher) runReconstruction(root string) (Summary, error) {
	tablePath := filepath.Join(root, d.Layout.InspectTable)
	records, err := LoadEventTable(tablePath)
	if err != nil {
		return Summary{}, err
	}
	d.Log.Info("loaded results table",
		zap.String("table", tablePath),
		zap.Int("events", len(records)))

	var sum Summary
	for _, rec := range records {
		outPath, err := ReconstructEventMap(root, rec, d.Layout)
		if err != nil {
			sum.Failed++
			d.Log.Warn("failed to reconstruct event map",
				zap.String("dtag", rec.Dtag),
				zap.Int("event_idx", rec.EventIdx),
				zap.Float64("bdc", rec.BDC),
				zap.Error(err))
			continue
		}
		sum.Processed++
		d.Log.Info("reconstructed event map",
			zap.String("dtag", rec.Dtag),
			zap.Int("event_idx", rec.EventIdx),
			zap.String("file", outPath))
	}
	d.logSummary(sum)
	return sum, nil
}

func (d *Dispatcher) logSummary(sum Summary) {
	d.Log.Info("batch complete",
		zap.Int("processed", sum.Processed),
		zap.Int("failed", sum.Failed))
}
