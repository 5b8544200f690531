package model

import (
	"unicode/utf8"

	"github.com/Faultbox/xktconv/pkg/math"
	"go.uber.org/zap"
)

// Entity is a named object made of meshes.
type Entity struct {
	ID     string
	Index  int
	Meshes []int // Indices into Model.Meshes, in creation order

	// Derived by Finalize.
	AABB              math.AABB
	HasReusedGeometry bool
	Tile              int
}

// EntityParams describes an entity to create.
type EntityParams struct {
	ID      string
	MeshIDs []string
}

// CreateEntity adds an entity owning the given meshes. Unknown meshes and
// meshes already owned by another entity are skipped with a warning, or
// rejected in strict mode. It fails with ErrNotFound when no mesh resolves.
// Ids must be valid UTF-8 so they survive the JSON id section unchanged.
func (m *Model) CreateEntity(p EntityParams) (*Entity, error) {
	if err := m.checkBuilding("CreateEntity", p.ID); err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, errorf(ErrMissingField, "entity id")
	}
	if !utf8.ValidString(p.ID) {
		return nil, errorf(ErrInvalidArgument, "entity %q: id is not valid UTF-8", p.ID)
	}
	if len(p.MeshIDs) == 0 {
		return nil, errorf(ErrMissingField, "entity %q: mesh ids", p.ID)
	}
	if _, exists := m.entityIDs[p.ID]; exists {
		return nil, errorf(ErrInvalidState, "entity %q already exists", p.ID)
	}

	meshes := make([]int, 0, len(p.MeshIDs))
	for _, id := range p.MeshIDs {
		ms, ok := m.Mesh(id)
		if !ok {
			if m.opts.Strict {
				return nil, errorf(ErrNotFound, "entity %q: mesh %q", p.ID, id)
			}
			m.log().Warn("entity references unknown mesh, skipping",
				zap.String("entity", p.ID),
				zap.String("mesh", id))
			continue
		}
		if ms.Entity >= 0 || containsInt(meshes, ms.Index) {
			if m.opts.Strict {
				return nil, errorf(ErrInvalidState, "entity %q: mesh %q already belongs to an entity", p.ID, id)
			}
			m.log().Warn("mesh already belongs to an entity, skipping",
				zap.String("entity", p.ID),
				zap.String("mesh", id))
			continue
		}
		meshes = append(meshes, ms.Index)
	}
	if len(meshes) == 0 {
		return nil, errorf(ErrNotFound, "entity %q: none of %d meshes resolved", p.ID, len(p.MeshIDs))
	}

	e := &Entity{
		ID:     p.ID,
		Index:  len(m.entities),
		Meshes: meshes,
		AABB:   math.EmptyAABB(),
		Tile:   -1,
	}
	for _, mi := range meshes {
		m.meshes[mi].Entity = e.Index
	}

	m.entityIDs[e.ID] = e.Index
	m.entities = append(m.entities, e)
	return e, nil
}

func containsInt(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
