package util

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// CreateTempFile returns a data file path named after the test inside
// t.TempDir. The file itself is left for the code under test to create.
func CreateTempFile(t *testing.T) (string, func()) {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	tempFile := filepath.Join(t.TempDir(), name+".dat")
	return tempFile, func() {
		os.Remove(tempFile)
	}
}
