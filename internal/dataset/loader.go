package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/bluele/gcache"
)

// ErrUnknownCategory is returned for a category without a shard file
var ErrUnknownCategory = errors.New("unknown category")

// errNotWritten marks a file the collector has not produced yet. It is
// returned from the cache loader so the empty result is never cached.
var errNotWritten = errors.New("not written yet")

// Cache keys of derived views
const (
	mergedRoutesKey  = "_merged_routes"
	generalRoutesKey = "_general_routes"
)

// GeneralCategory is the merged view of the itx and mugunghwa shards
const GeneralCategory = "general"

// GeneralCategories are the shards merged into the general view
var GeneralCategories = []string{CategoryITX, CategoryMugunghwa}

// Loader reads a dataset directory. Each file is loaded on first successful
// access and cached for the lifetime of the Loader; create a new Loader to
// pick up a new run. Missing files are re-read on every access until they
// appear. Returned slices are shared and must not be modified.
type Loader struct {
	dir   string
	cache gcache.Cache
}

// NewLoader creates a loader for dir
func NewLoader(dir string) *Loader {
	l := &Loader{dir: dir}
	l.cache = gcache.New(len(CategoryKeys) + 4).
		Simple().
		LoaderFunc(l.load).
		Build()
	return l
}

// Stations returns all stations, or nil when stations.json is missing
func (l *Loader) Stations() []Station {
	v, err := l.get(StationsFile)
	if err != nil {
		return nil
	}
	return v.([]Station)
}

// Station looks up a station by id
func (l *Loader) Station(stationID string) (Station, bool) {
	for _, s := range l.Stations() {
		if s.StationID == stationID {
			return s, true
		}
	}
	return Station{}, false
}

// StationIDs returns the distinct station ids in file order
func (l *Loader) StationIDs() []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, s := range l.Stations() {
		if _, ok := seen[s.StationID]; ok {
			continue
		}
		seen[s.StationID] = struct{}{}
		ids = append(ids, s.StationID)
	}
	return ids
}

// Metadata returns metadata.json, or false when it is missing
func (l *Loader) Metadata() (Metadata, bool) {
	v, err := l.get(MetadataFile)
	if err != nil {
		return Metadata{}, false
	}
	meta := v.(*Metadata)
	if meta == nil {
		return Metadata{}, false
	}
	return *meta, true
}

// Routes returns the shard of one category
func (l *Loader) Routes(category string) ([]Route, error) {
	if !isCategory(category) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}
	v, err := l.get(ShardFile(category))
	if errors.Is(err, errNotWritten) {
		return []Route{}, nil
	}
	if err != nil {
		return nil, err
	}
	return v.([]Route), nil
}

// RouteIn looks up (dep, arr) in one category shard only
func (l *Loader) RouteIn(category, depStationID, arrStationID string) (Route, bool) {
	routes, err := l.Routes(category)
	if err != nil {
		return Route{}, false
	}
	return findRoute(routes, depStationID, arrStationID)
}

// AllRoutes merges every category shard, deduplicating schedules by trainNo
func (l *Loader) AllRoutes() []Route {
	return l.merged(mergedRoutesKey, CategoryKeys...)
}

// GeneralRoutes merges the itx and mugunghwa shards
func (l *Loader) GeneralRoutes() []Route {
	return l.merged(generalRoutesKey, GeneralCategories...)
}

// RouteInView looks up (dep, arr) in a category shard, or in the general
// view when category is GeneralCategory
func (l *Loader) RouteInView(category, depStationID, arrStationID string) (Route, bool) {
	if category == GeneralCategory {
		return findRoute(l.GeneralRoutes(), depStationID, arrStationID)
	}
	return l.RouteIn(category, depStationID, arrStationID)
}

// merged returns a cached merge of shards. While a shard is missing the
// merge is computed on every call and not cached.
func (l *Loader) merged(key string, categories ...string) []Route {
	v, err := l.get(key)
	if errors.Is(err, errNotWritten) {
		routes, _, _ := l.mergeShards(categories...)
		return routes
	}
	if err != nil {
		return nil
	}
	return v.([]Route)
}

// Route looks up (dep, arr) across all categories
func (l *Loader) Route(depStationID, arrStationID string) (Route, bool) {
	return findRoute(l.AllRoutes(), depStationID, arrStationID)
}

// RoutesFrom returns every route departing from a station
func (l *Loader) RoutesFrom(stationID string) []Route {
	var out []Route
	for _, r := range l.AllRoutes() {
		if r.DepStationID == stationID {
			out = append(out, r)
		}
	}
	return out
}

func (l *Loader) get(key string) (interface{}, error) {
	v, err := l.cache.Get(key)
	if err != nil {
		if !errors.Is(err, errNotWritten) {
			log.Printf("Dataset: error loading %s: %v", key, err)
		}
		return nil, err
	}
	return v, nil
}

func (l *Loader) load(key interface{}) (interface{}, error) {
	name := key.(string)

	switch name {
	case mergedRoutesKey:
		return l.loadMerged(CategoryKeys...)
	case generalRoutesKey:
		return l.loadMerged(GeneralCategories...)
	case StationsFile:
		var stations []Station
		err := readJSON(filepath.Join(l.dir, name), &stations)
		return stations, err
	case MetadataFile:
		var meta *Metadata
		err := readJSON(filepath.Join(l.dir, name), &meta)
		return meta, err
	default:
		routes := []Route{}
		err := readJSON(filepath.Join(l.dir, name), &routes)
		return routes, err
	}
}

func (l *Loader) loadMerged(categories ...string) (interface{}, error) {
	routes, complete, err := l.mergeShards(categories...)
	if err != nil {
		return nil, err
	}
	if !complete {
		return nil, errNotWritten
	}
	return routes, nil
}

// mergeShards merges the shards of categories. complete is false when a
// shard file does not exist yet.
func (l *Loader) mergeShards(categories ...string) (routes []Route, complete bool, err error) {
	complete = true
	lists := make([][]Route, 0, len(categories))
	for _, c := range categories {
		v, err := l.get(ShardFile(c))
		if errors.Is(err, errNotWritten) {
			complete = false
			continue
		}
		if err != nil {
			return nil, false, err
		}
		lists = append(lists, v.([]Route))
	}
	return MergeRoutes(lists...), complete, nil
}

// readJSON decodes path into v. A missing file yields errNotWritten.
func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return errNotWritten
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

func findRoute(routes []Route, depStationID, arrStationID string) (Route, bool) {
	for _, r := range routes {
		if r.DepStationID == depStationID && r.ArrStationID == arrStationID {
			return r, true
		}
	}
	return Route{}, false
}

func isCategory(category string) bool {
	for _, c := range CategoryKeys {
		if c == category {
			return true
		}
	}
	return false
}
