package result

import (
	"strings"

	"github.com/Earthondev/hanaihang/internal/domain/entity"
	"github.com/Earthondev/hanaihang/internal/domain/geo"
	"github.com/Earthondev/hanaihang/internal/domain/textnorm"
)

// Result is a single unified search hit: a projection of a mall or store.
type Result struct {
	ID         string        `json:"id"`
	Path       string        `json:"path,omitempty"`
	Kind       entity.Kind   `json:"kind"`
	Name       string        `json:"name"`
	MallID     string        `json:"mallId,omitempty"`
	MallName   string        `json:"mallName,omitempty"`
	FloorLabel string        `json:"floorLabel,omitempty"`
	Category   string        `json:"category,omitempty"`
	Status     string        `json:"status,omitempty"`
	Hours      *entity.Hours `json:"hours,omitempty"`
	OpenNow    *bool         `json:"openNow,omitempty"`
	Coords     *geo.Point    `json:"coords,omitempty"`
	MallCoords *geo.Point    `json:"mallCoords,omitempty"`
	DistanceKm *float64      `json:"distanceKm,omitempty"`
}

// FromEntity projects an entity into a result without distance.
func FromEntity(e *entity.Entity) Result {
	return Result{
		ID:         e.ID,
		Path:       e.Path,
		Kind:       e.Kind,
		Name:       e.DisplayName,
		MallID:     e.MallID,
		MallName:   e.MallName,
		FloorLabel: e.FloorLabel,
		Category:   e.Category,
		Status:     e.Status,
		Hours:      e.Hours,
		Coords:     e.Coords,
		MallCoords: e.MallCoords,
	}
}

// Location returns the coordinates used for ranking: the result's own,
// falling back to the owning mall's for stores.
func (r *Result) Location() (geo.Point, bool) {
	e := entity.Entity{Kind: r.Kind, Coords: r.Coords, MallCoords: r.MallCoords}
	return e.Location()
}

// DedupKey identifies the logical entry a result represents. Two documents
// with different IDs collapse when kind, normalized name, mall affiliation
// and floor all agree.
func (r *Result) DedupKey() string {
	affiliation := r.MallID
	if affiliation == "" {
		affiliation = textnorm.Normalize(r.MallName).ComparisonKey
	}
	return string(r.Kind) + ":" +
		textnorm.Normalize(r.Name).ComparisonKey + ":" +
		affiliation + ":" +
		strings.ToLower(strings.TrimSpace(r.FloorLabel))
}
