package hanaihang

// Kind distinguishes malls from stores in search results.
type Kind string

// Result kinds.
const (
	KindMall  Kind = "mall"
	KindStore Kind = "store"
)

// Scope selects which kinds a search covers.
type Scope string

// Search scopes.
const (
	ScopeAll    Scope = "all"
	ScopeMalls  Scope = "malls"
	ScopeStores Scope = "stores"
)

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Lat float64
	Lng float64
}

// Hours is a daily opening window in "HH:MM" local time. Close before Open
// means the window runs past midnight.
type Hours struct {
	Open  string
	Close string
}

// Mall is a shopping mall in the catalog.
type Mall struct {
	ID         string
	Name       string
	Coords     *Point
	Address    string
	District   string
	Province   string
	BrandGroup string
	Hours      *Hours
}

// Store is a store inside a mall. MallName and MallCoords are copied onto
// the stored document so store results carry them without a join.
type Store struct {
	ID         string
	MallID     string
	MallName   string
	MallCoords *Point
	Name       string
	Coords     *Point
	FloorLabel string
	FloorID    string
	Unit       string
	Category   string
	Status     string
	BrandSlug  string
}

// Result is a single search hit. OpenNow is nil when the result has no
// parseable opening hours; DistanceKm is nil without an origin.
type Result struct {
	ID         string
	Path       string
	Kind       Kind
	Name       string
	MallID     string
	MallName   string
	FloorLabel string
	Category   string
	Status     string
	Hours      *Hours
	OpenNow    *bool
	Coords     *Point
	DistanceKm *float64
}

// ItemResult is the outcome of one document in an import.
type ItemResult struct {
	Path string
	OK   bool
	Err  error
}

// ReindexReport summarizes a reindex run.
type ReindexReport struct {
	Scanned   int
	Written   int
	Unchanged int
	Failed    int
}

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status string            // "ok", "degraded", "error"
	Checks map[string]string // component → "ok"/"error"
}
