// Package pandda post-processes the output directories of a PanDDA
// analysis run: it either normalizes the headers of stored event maps or
// reconstructs event maps from their mean and observed source maps,
// depending on the layout generation of the root directory.
package pandda

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
)

// Layout names every file and directory convention of a PanDDA output
// tree. Components take it explicitly rather than reading package-level
// constants, so tests and nonstandard trees can rebind any name.
type Layout struct {
	// ProcessedDatasetsDir is the subdirectory of the root holding one
	// directory per dataset.
	ProcessedDatasetsDir string

	// DoneMarker is the sentinel file distinguishing a legacy root from
	// a current one.
	DoneMarker string

	// EventMapMarker is the substring identifying an event map file
	// inside a dataset directory.
	EventMapMarker string

	// MapExtension is the registered map file extension.
	MapExtension string

	// MeanMapSuffix completes "<dtag>" to the ground-state average map
	// filename.
	MeanMapSuffix string

	// ObservedMapName is the observed (xmap) filename within a dataset
	// directory.
	ObservedMapName string

	// InspectTable is the root-relative path of the results table.
	InspectTable string
}

// DefaultLayout returns the conventions of an unmodified PanDDA run.
func DefaultLayout() Layout {
	return Layout{
		ProcessedDatasetsDir: "processed_datasets",
		DoneMarker:           "pandda.done",
		EventMapMarker:       "event",
		MapExtension:         ".ccp4",
		MeanMapSuffix:        "-ground-state-average-map.native.ccp4",
		ObservedMapName:      "xmap.ccp4",
		InspectTable:         filepath.Join("analyses", "pandda_inspect_events.csv"),
	}
}

// DatasetDir returns the directory of one dataset under the root.
func (l Layout) DatasetDir(root, dtag string) string {
	return filepath.Join(root, l.ProcessedDatasetsDir, dtag)
}

// MeanMapName returns the ground-state average map filename for a dataset.
func (l Layout) MeanMapName(dtag string) string {
	return dtag + l.MeanMapSuffix
}

// EventMapName returns the output filename for a reconstructed event map.
// The BDC value is rounded to two decimal places and printed without
// trailing zeros, matching the names the original pipeline wrote.
func (l Layout) EventMapName(dtag string, eventIdx int, bdc float64) string {
	return fmt.Sprintf("%s-event_%d_1-BDC_%s_map.native%s", dtag, eventIdx, formatBDC(bdc), l.MapExtension)
}

// formatBDC renders a BDC value rounded to 2 decimal places with the
// minimal decimal representation ("0.3", not "0.30").
func formatBDC(bdc float64) string {
	return strconv.FormatFloat(math.Round(bdc*100)/100, 'f', -1, 64)
}
