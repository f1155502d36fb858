package dataset

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// GeneratorVersion is bumped when the layout of the dataset files changes.
// Datasets written by another version are always considered stale.
const GeneratorVersion = "1"

// Manifest lists the files written by a run with their checksums
type Manifest struct {
	UpdatedAt        string          `json:"updated_at"`
	GeneratorVersion string          `json:"generator_version"`
	RunID            string          `json:"run_id,omitempty"`
	Files            []ManifestEntry `json:"files"`
}

// ManifestEntry is one file entry of the manifest
type ManifestEntry struct {
	Path     string `json:"path"`
	Checksum string `json:"checksum"`
	Count    int    `json:"count"`
}

// Writer persists dataset files into one output directory
type Writer struct {
	dir   string
	files []ManifestEntry
}

// NewWriter creates the output directory if needed
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// Dir returns the output directory
func (w *Writer) Dir() string {
	return w.dir
}

// Persist overwrites routes.json with the full accumulator. Repeated calls
// with the same snapshot produce the same file.
func (w *Writer) Persist(routes []Route) error {
	_, err := w.write(RoutesFile, nonNil(routes), len(routes))
	return err
}

// WriteStations writes stations.json
func (w *Writer) WriteStations(stations []Station) error {
	if stations == nil {
		stations = []Station{}
	}
	_, err := w.write(StationsFile, stations, len(stations))
	return err
}

// WriteShards writes one routes-<category>.json file per shard
func (w *Writer) WriteShards(shards []Shard) error {
	for _, s := range shards {
		if _, err := w.write(ShardFile(s.Category), nonNil(s.Routes), len(s.Routes)); err != nil {
			return err
		}
	}
	return nil
}

// WriteMetadata writes metadata.json
func (w *Writer) WriteMetadata(meta Metadata) error {
	_, err := w.write(MetadataFile, meta, 1)
	return err
}

// WriteManifest writes manifest.json listing every file written so far
func (w *Writer) WriteManifest(runID string, now time.Time) error {
	manifest := Manifest{
		UpdatedAt:        now.UTC().Format(time.RFC3339),
		GeneratorVersion: GeneratorVersion,
		RunID:            runID,
		Files:            w.files,
	}
	data, err := encode(manifest)
	if err != nil {
		return err
	}
	return writeAtomic(filepath.Join(w.dir, ManifestFile), data)
}

func (w *Writer) write(name string, v interface{}, count int) (string, error) {
	data, err := encode(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", name, err)
	}
	if err := writeAtomic(filepath.Join(w.dir, name), data); err != nil {
		return "", err
	}

	checksum := sha256Sum(data)
	entry := ManifestEntry{Path: name, Checksum: checksum, Count: count}
	for i := range w.files {
		if w.files[i].Path == name {
			w.files[i] = entry
			return checksum, nil
		}
	}
	w.files = append(w.files, entry)
	return checksum, nil
}

// encode renders pretty-printed UTF-8 JSON without HTML escaping
func encode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeAtomic writes to a temp file in the same directory and renames it
// over path, so a crash never leaves a truncated file behind
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

func sha256Sum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

func nonNil(routes []Route) []Route {
	if routes == nil {
		return []Route{}
	}
	return routes
}
