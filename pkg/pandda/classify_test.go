package pandda

import (
	"os"
	"path/filepath"
	"testing"

	"panddamaps/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyLegacy(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "pandda.done"), nil, 0644))

	class, err := Classify(root, DefaultLayout())
	require.NoError(t, err)
	assert.Equal(t, models.ClassificationLegacy, class)
}

func TestClassifyCurrent(t *testing.T) {
	class, err := Classify(t.TempDir(), DefaultLayout())
	require.NoError(t, err)
	assert.Equal(t, models.ClassificationCurrent, class)
}

func TestClassifyMissingRoot(t *testing.T) {
	_, err := Classify(filepath.Join(t.TempDir(), "no-such-root"), DefaultLayout())
	assert.Error(t, err)
}

func TestClassifyRootIsFile(t *testing.T) {
	root := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(root, []byte("x"), 0644))

	_, err := Classify(root, DefaultLayout())
	assert.Error(t, err)
}
