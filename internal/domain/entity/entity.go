// Package entity models the malls and stores the search subsystem reads.
// Entities are read-only projections of catalog documents.
package entity

import (
	"fmt"
	"regexp"

	"github.com/Earthondev/hanaihang/internal/domain/geo"
)

// Kind distinguishes malls from stores.
type Kind string

// Entity kinds.
const (
	KindMall  Kind = "mall"
	KindStore Kind = "store"
)

// Collection names in the catalog.
const (
	MallsCollection  = "malls"
	StoresCollection = "stores"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// IsValid checks if the kind is one of the supported values.
func (k Kind) IsValid() bool { return k == KindMall || k == KindStore }

// Entity is a mall or a store as read from the catalog.
//
// ComparisonName and SearchTokens are derived from DisplayName alone by the
// normalizer; values read from storage may be stale and are only a fallback.
type Entity struct {
	ID   string
	Path string
	Kind Kind

	DisplayName    string
	ComparisonName string
	SearchTokens   []string
	Coords         *geo.Point

	// Store-only denormalized fields. MallID is a back-reference used for
	// lookup only.
	MallID     string
	MallName   string
	MallCoords *geo.Point
	FloorLabel string
	Category   string
	Status     string

	// Mall-only fields.
	Hours    *Hours
	Address  string
	District string
	Province string

	// Descriptive fields carried through indexing. They are never searched.
	BrandGroup string
	BrandSlug  string
	FloorID    string
	Unit       string
}

// MergeKey identifies the document within a merged result set. Stores live in
// per-mall sub-collections, so their ID alone is not unique.
func (e *Entity) MergeKey() string {
	if e.Path != "" {
		return e.Path
	}
	return e.ID
}

// Location returns the best known coordinates: the entity's own, falling back
// to the owning mall's for stores. Invalid points count as unknown.
func (e *Entity) Location() (geo.Point, bool) {
	if e.Coords != nil && e.Coords.Valid() {
		return *e.Coords, true
	}
	if e.Kind == KindStore && e.MallCoords != nil && e.MallCoords.Valid() {
		return *e.MallCoords, true
	}
	return geo.Point{}, false
}

// MallPath returns the document path of a mall.
func MallPath(mallID string) string {
	return MallsCollection + "/" + mallID
}

// StorePath returns the document path of a store under its mall.
func StorePath(mallID, storeID string) string {
	return MallsCollection + "/" + mallID + "/" + StoresCollection + "/" + storeID
}

// ValidateID checks a document ID: ^[a-zA-Z0-9_-]+$, 1-256 chars.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("id is required")
	}
	if len(id) > 256 {
		return fmt.Errorf("id too long (max 256)")
	}
	if !idRegex.MatchString(id) {
		return fmt.Errorf("id %q must be alphanumeric with underscores and hyphens", id)
	}
	return nil
}
