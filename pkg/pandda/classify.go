package pandda

import (
	"fmt"
	"os"
	"path/filepath"

	"panddamaps/internal/models"
)

// Classify tags an analysis root as legacy or current. A root carrying
// the done marker was written by the legacy pipeline and its stored event
// maps need header normalization; anything else is a current root whose
// event maps are reconstructed. The root itself must exist.
func Classify(root string, layout Layout) (models.Classification, error) {
	info, err := os.Stat(root)
	if err != nil {
		return "", fmt.Errorf("analysis root is not inspectable: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("analysis root %s is not a directory", root)
	}

	if _, err := os.Stat(filepath.Join(root, layout.DoneMarker)); err == nil {
		return models.ClassificationLegacy, nil
	}
	return models.ClassificationCurrent, nil
}
