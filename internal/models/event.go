package models

// Classification tags an analysis root with the processing pipeline it
// requires.
type Classification string

const (
	// ClassificationLegacy marks a finished analysis whose stored event
	// maps need their headers normalized in place.
	ClassificationLegacy Classification = "legacy"

	// ClassificationCurrent marks an analysis whose event maps are
	// reconstructed from the mean and observed maps.
	ClassificationCurrent Classification = "current"
)

// EventRecord is one row of the inspect-events results table: one
// detected event in one dataset.
type EventRecord struct {
	// Dtag is the dataset identifier, unique within the analysis root.
	Dtag string

	// EventIdx distinguishes multiple events within the same dataset.
	EventIdx int

	// BDC is the background density correction factor in (0, 1], the
	// fraction of the dataset's density attributable to the ground
	// state. The results table stores it under the column "1-BDC".
	BDC float64
}
