package dataset

// Store accumulates routes keyed by (dep, arr) in first-seen order. It is
// used by the single collector control flow and is not safe for concurrent use.
type Store struct {
	routes []*Route
	index  map[string]int
	trains map[string]map[string]struct{} // route key -> trainNos present
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		index:  make(map[string]int),
		trains: make(map[string]map[string]struct{}),
	}
}

// AddOrMerge inserts a route, or appends the schedules whose trainNo is not
// yet present on the existing route. First-seen schedule fields win.
// It reports whether the store changed. Routes that end up with no
// schedules are never stored.
func (s *Store) AddOrMerge(route Route) bool {
	key := route.Key()

	i, ok := s.index[key]
	if !ok {
		fresh := route
		fresh.Schedules = nil
		seen := make(map[string]struct{}, len(route.Schedules))
		for _, sc := range route.Schedules {
			if _, dup := seen[sc.TrainNo]; dup {
				continue
			}
			seen[sc.TrainNo] = struct{}{}
			fresh.Schedules = append(fresh.Schedules, sc)
		}
		if len(fresh.Schedules) == 0 {
			return false
		}
		s.index[key] = len(s.routes)
		s.routes = append(s.routes, &fresh)
		s.trains[key] = seen
		return true
	}

	existing := s.routes[i]
	seen := s.trains[key]
	changed := false
	for _, sc := range route.Schedules {
		if _, dup := seen[sc.TrainNo]; dup {
			continue
		}
		seen[sc.TrainNo] = struct{}{}
		existing.Schedules = append(existing.Schedules, sc)
		changed = true
	}
	return changed
}

// Get returns a copy of the route for (dep, arr)
func (s *Store) Get(depStationID, arrStationID string) (Route, bool) {
	i, ok := s.index[RouteKey(depStationID, arrStationID)]
	if !ok {
		return Route{}, false
	}
	return s.routes[i].Clone(), true
}

// Len returns the number of routes
func (s *Store) Len() int {
	return len(s.routes)
}

// ScheduleCount returns the number of schedules across all routes
func (s *Store) ScheduleCount() int {
	n := 0
	for _, r := range s.routes {
		n += len(r.Schedules)
	}
	return n
}

// Snapshot returns deep copies of all routes in insertion order
func (s *Store) Snapshot() []Route {
	out := make([]Route, 0, len(s.routes))
	for _, r := range s.routes {
		out = append(out, r.Clone())
	}
	return out
}

// MergeRoutes combines route lists (e.g. category shards) into one view
// using the same dedup rule as AddOrMerge. Inputs are not modified.
func MergeRoutes(lists ...[]Route) []Route {
	store := NewStore()
	for _, routes := range lists {
		for _, r := range routes {
			store.AddOrMerge(r)
		}
	}
	return store.Snapshot()
}
