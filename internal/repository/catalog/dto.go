package catalog

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Earthondev/hanaihang/internal/db"
	"github.com/Earthondev/hanaihang/internal/domain/entity"
	"github.com/Earthondev/hanaihang/internal/domain/geo"
	"github.com/Earthondev/hanaihang/internal/domain/textnorm"
)

// Stored field names queried by the search planner.
const (
	FieldComparisonName = "comparisonName"
	FieldSearchTokens   = "searchTokens"
)

// docDTO is the stored document shape. Every field is optional: documents
// written by older tools may lack derived fields or use legacy names.
type docDTO struct {
	DisplayName    *string       `json:"displayName,omitempty"`
	Name           *string       `json:"name,omitempty"`
	ComparisonName *string       `json:"comparisonName,omitempty"`
	SearchTokens   []string      `json:"searchTokens,omitempty"`
	Coords         *pointDTO     `json:"coords,omitempty"`
	Location       *pointDTO     `json:"location,omitempty"`
	MallID         *string       `json:"mallId,omitempty"`
	MallName       *string       `json:"mallName,omitempty"`
	MallCoords     *pointDTO     `json:"mallCoords,omitempty"`
	FloorLabel     *string       `json:"floorLabel,omitempty"`
	FloorID        *string       `json:"floorId,omitempty"`
	Category       *string       `json:"category,omitempty"`
	Status         *string       `json:"status,omitempty"`
	Unit           *string       `json:"unit,omitempty"`
	BrandSlug      *string       `json:"brandSlug,omitempty"`
	BrandGroup     *string       `json:"brandGroup,omitempty"`
	Address        *string       `json:"address,omitempty"`
	District       *string       `json:"district,omitempty"`
	Province       *string       `json:"province,omitempty"`
	Hours          *entity.Hours `json:"hours,omitempty"`
}

type pointDTO struct {
	Lat *float64 `json:"lat,omitempty"`
	Lng *float64 `json:"lng,omitempty"`
}

func (p *pointDTO) point() *geo.Point {
	if p == nil || p.Lat == nil || p.Lng == nil {
		return nil
	}
	return &geo.Point{Lat: *p.Lat, Lng: *p.Lng}
}

func toPointDTO(p *geo.Point) *pointDTO {
	if p == nil {
		return nil
	}
	lat, lng := p.Lat, p.Lng
	return &pointDTO{Lat: &lat, Lng: &lng}
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func ptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// firstPoint returns the first complete point.
func firstPoint(ps ...*pointDTO) *geo.Point {
	for _, p := range ps {
		if pt := p.point(); pt != nil {
			return pt
		}
	}
	return nil
}

// parseDocument maps a stored document to an entity, applying fallbacks:
// displayName from name, coords from location, floorLabel from floorId, and
// a store's mallId from its path. With deriveMissing, absent comparisonName
// and searchTokens are computed from the display name.
func parseDocument(kind entity.Kind, doc db.Document, deriveMissing bool) (entity.Entity, error) {
	var d docDTO
	if err := json.Unmarshal(doc.Data, &d); err != nil {
		return entity.Entity{}, fmt.Errorf("decode %s: %w", doc.Path, err)
	}

	e := entity.Entity{
		ID:          doc.ID,
		Path:        doc.Path,
		Kind:        kind,
		DisplayName: str(d.DisplayName),
		Coords:      firstPoint(d.Coords, d.Location),
		Status:      str(d.Status),
		Category:    str(d.Category),
		Hours:       d.Hours,
		Address:     str(d.Address),
		District:    str(d.District),
		Province:    str(d.Province),
		BrandGroup:  str(d.BrandGroup),
		BrandSlug:   str(d.BrandSlug),
		FloorID:     str(d.FloorID),
		Unit:        str(d.Unit),
	}
	if e.DisplayName == "" {
		e.DisplayName = str(d.Name)
	}

	if kind == entity.KindStore {
		e.MallID = str(d.MallID)
		if e.MallID == "" {
			e.MallID = mallIDFromPath(doc.Path)
		}
		e.MallName = str(d.MallName)
		e.MallCoords = d.MallCoords.point()
		e.FloorLabel = str(d.FloorLabel)
		if e.FloorLabel == "" {
			e.FloorLabel = e.FloorID
		}
	}

	e.ComparisonName = str(d.ComparisonName)
	e.SearchTokens = d.SearchTokens
	if deriveMissing {
		if d.ComparisonName == nil {
			e.ComparisonName = textnorm.Normalize(e.DisplayName).ComparisonKey
		}
		if d.SearchTokens == nil {
			e.SearchTokens = textnorm.Keywords(e.DisplayName)
		}
	}

	return e, nil
}

// buildDocument maps an entity to its stored JSON body.
func buildDocument(e *entity.Entity) ([]byte, error) {
	d := docDTO{
		DisplayName:    ptr(e.DisplayName),
		Name:           ptr(e.DisplayName),
		ComparisonName: ptr(e.ComparisonName),
		SearchTokens:   e.SearchTokens,
		Coords:         toPointDTO(e.Coords),
		Category:       ptr(e.Category),
		Status:         ptr(e.Status),
		Hours:          e.Hours,
		Address:        ptr(e.Address),
		District:       ptr(e.District),
		Province:       ptr(e.Province),
		BrandGroup:     ptr(e.BrandGroup),
		BrandSlug:      ptr(e.BrandSlug),
		FloorID:        ptr(e.FloorID),
		Unit:           ptr(e.Unit),
	}
	if e.Kind == entity.KindStore {
		d.MallID = ptr(e.MallID)
		d.MallName = ptr(e.MallName)
		d.MallCoords = toPointDTO(e.MallCoords)
		d.FloorLabel = ptr(e.FloorLabel)
	}

	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", e.Path, err)
	}
	return data, nil
}

// mallIDFromPath extracts "A" from "malls/A/stores/s1".
func mallIDFromPath(path string) string {
	segs := strings.Split(path, "/")
	if len(segs) != 4 || segs[0] != entity.MallsCollection || segs[2] != entity.StoresCollection {
		return ""
	}
	return segs[1]
}
