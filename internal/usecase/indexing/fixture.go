package indexing

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Earthondev/hanaihang/internal/domain"
	dombatch "github.com/Earthondev/hanaihang/internal/domain/batch"
	"github.com/Earthondev/hanaihang/internal/domain/entity"
	"github.com/Earthondev/hanaihang/internal/domain/geo"
	"github.com/Earthondev/hanaihang/internal/logger"
	"github.com/Earthondev/hanaihang/internal/usecase/search"
)

// Fixture is a catalog seed file. JSON files are accepted as YAML.
type Fixture struct {
	Malls []MallFixture `yaml:"malls"`
}

// MallFixture is one mall with its stores nested below it.
type MallFixture struct {
	ID          string         `yaml:"id"`
	DisplayName string         `yaml:"displayName"`
	Coords      *geo.Point     `yaml:"coords"`
	Address     string         `yaml:"address"`
	District    string         `yaml:"district"`
	Province    string         `yaml:"province"`
	BrandGroup  string         `yaml:"brandGroup"`
	Hours       *entity.Hours  `yaml:"hours"`
	Stores      []StoreFixture `yaml:"stores"`
}

// StoreFixture is a store inside a mall.
type StoreFixture struct {
	ID          string     `yaml:"id"`
	DisplayName string     `yaml:"displayName"`
	Coords      *geo.Point `yaml:"coords"`
	FloorLabel  string     `yaml:"floorLabel"`
	FloorID     string     `yaml:"floorId"`
	Unit        string     `yaml:"unit"`
	Category    string     `yaml:"category"`
	Status      string     `yaml:"status"`
	BrandSlug   string     `yaml:"brandSlug"`
}

// DecodeFixture parses a YAML or JSON fixture.
func DecodeFixture(r io.Reader) (Fixture, error) {
	var f Fixture
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return f, nil
		}
		return f, fmt.Errorf("decode fixture: %s: %w", err.Error(), domain.ErrInvalidDocument)
	}
	return f, nil
}

// Entities flattens the fixture into malls followed by their stores. Stores
// inherit the mall's id, name and coordinates.
func (f Fixture) Entities() []entity.Entity {
	var out []entity.Entity
	for _, m := range f.Malls {
		out = append(out, entity.Entity{
			ID:          m.ID,
			Kind:        entity.KindMall,
			DisplayName: m.DisplayName,
			Coords:      m.Coords,
			Address:     m.Address,
			District:    m.District,
			Province:    m.Province,
			BrandGroup:  m.BrandGroup,
			Hours:       m.Hours,
		})
		for _, st := range m.Stores {
			out = append(out, entity.Entity{
				ID:          st.ID,
				Kind:        entity.KindStore,
				DisplayName: st.DisplayName,
				Coords:      st.Coords,
				MallID:      m.ID,
				MallName:    m.DisplayName,
				MallCoords:  m.Coords,
				FloorLabel:  st.FloorLabel,
				FloorID:     st.FloorID,
				Unit:        st.Unit,
				Category:    st.Category,
				Status:      st.Status,
				BrandSlug:   st.BrandSlug,
			})
		}
	}
	return out
}

// Import loads a fixture and upserts every mall and store in it. Invalid
// entries are reported per item and do not stop the import.
func (s *Service) Import(ctx context.Context, r io.Reader) ([]dombatch.Result, error) {
	f, err := DecodeFixture(r)
	if err != nil {
		return nil, err
	}

	items := f.Entities()
	results := make([]dombatch.Result, len(items))
	written := 0
	for i := range items {
		e := &items[i]
		if err := s.put(ctx, e); err != nil {
			logger.FromContext(ctx).Warn("import item failed",
				zap.String("kind", string(e.Kind)), zap.String("id", e.ID), zap.Error(err))
			results[i] = dombatch.NewError(itemRef(e), err)
			continue
		}
		results[i] = dombatch.NewWritten(e.Path)
		written++
	}

	if written > 0 {
		s.cache.Invalidate(ctx, search.CachePrefix)
	}
	return results, nil
}

// itemRef names an item that may not have a valid path yet.
func itemRef(e *entity.Entity) string {
	if e.Path != "" {
		return e.Path
	}
	if e.Kind == entity.KindStore {
		return entity.StorePath(e.MallID, e.ID)
	}
	return entity.MallPath(e.ID)
}
