package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ReadManifest loads manifest.json from dir
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ManifestFile, err)
	}
	return &manifest, nil
}

// IsStaleOrMissing reports whether the dataset in dir needs a new collection
// run: the manifest is missing or unreadable, was written by another
// generator version, or is older than maxAge.
func IsStaleOrMissing(dir string, maxAge time.Duration, now time.Time) bool {
	manifest, err := ReadManifest(dir)
	if err != nil {
		return true
	}
	if manifest.GeneratorVersion != GeneratorVersion {
		return true
	}

	updatedAt, err := time.Parse(time.RFC3339, manifest.UpdatedAt)
	if err != nil {
		return true
	}
	return now.Sub(updatedAt) > maxAge
}
