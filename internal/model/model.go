// Package model holds the in-memory document that converters populate with
// geometries, meshes and entities before it is finalized into tiles and packed
// into an XKT container.
//
// Geometries, meshes, entities and tiles live in index-addressed arenas. A mesh
// refers to its geometry and owning entity by index, never by pointer.
//
// A Model is not safe for concurrent use.
package model

import (
	"github.com/Faultbox/xktconv/internal/logger"
	"github.com/Faultbox/xktconv/pkg/math"
	"go.uber.org/zap"
)

// State is the lifecycle state of a Model.
type State int

const (
	// Building accepts create calls.
	Building State = iota
	// Finalized holds derived tiles and quantized data; create calls are rejected.
	Finalized
)

// String returns the state name.
func (s State) String() string {
	if s == Finalized {
		return "Finalized"
	}
	return "Building"
}

// Options tune finalization and reference resolution.
type Options struct {
	// MaxKDTreeDepth bounds the tiler. The root is depth 1.
	MaxKDTreeDepth int
	// MinTileSize stops splitting nodes whose diagonal is smaller. Zero disables it.
	MinTileSize float64
	// EdgeThreshold is the dihedral angle in degrees above which an edge is
	// drawn. Zero or negative falls back to the default.
	EdgeThreshold float64
	// Strict turns skipped references into errors.
	Strict bool
}

// DefaultOptions returns the converter defaults.
func DefaultOptions() Options {
	return Options{
		MaxKDTreeDepth: 5,
		MinTileSize:    500,
		EdgeThreshold:  10,
	}
}

// Model is the document being converted.
type Model struct {
	opts  Options
	state State

	geometries  []*Geometry
	meshes      []*Mesh
	entities    []*Entity
	tiles       []*Tile
	metaObjects []*MetaObject

	geometryIDs   map[string]int
	meshIDs       map[string]int
	entityIDs     map[string]int
	metaObjectIDs map[string]int

	sharedAABB         math.AABB
	sharedDecodeMatrix math.Mat4
}

// New creates an empty model. Zero MaxKDTreeDepth and EdgeThreshold fall
// back to the defaults.
func New(opts Options) *Model {
	defaults := DefaultOptions()
	if opts.MaxKDTreeDepth <= 0 {
		opts.MaxKDTreeDepth = defaults.MaxKDTreeDepth
	}
	if opts.EdgeThreshold <= 0 {
		opts.EdgeThreshold = defaults.EdgeThreshold
	}
	return &Model{
		opts:               opts,
		geometryIDs:        make(map[string]int),
		meshIDs:            make(map[string]int),
		entityIDs:          make(map[string]int),
		metaObjectIDs:      make(map[string]int),
		sharedAABB:         math.EmptyAABB(),
		sharedDecodeMatrix: math.Identity(),
	}
}

func (m *Model) log() *zap.Logger {
	return logger.Named("model")
}

// Options returns the options the model was created with.
func (m *Model) Options() Options { return m.opts }

// Strict reports whether unresolved references are errors.
func (m *Model) Strict() bool { return m.opts.Strict }

// State returns the lifecycle state.
func (m *Model) State() State { return m.state }

// Finalized reports whether Finalize has completed.
func (m *Model) Finalized() bool { return m.state == Finalized }

// Geometries returns the geometry arena. After Finalize unused geometries are gone.
func (m *Model) Geometries() []*Geometry { return m.geometries }

// Meshes returns the mesh arena. After Finalize meshes are ordered by entity.
func (m *Model) Meshes() []*Mesh { return m.meshes }

// Entities returns the entity arena. After Finalize entities are ordered by tile.
func (m *Model) Entities() []*Entity { return m.entities }

// Tiles returns the tiles built by Finalize.
func (m *Model) Tiles() []*Tile { return m.tiles }

// MetaObjects returns the metadata objects in creation order.
func (m *Model) MetaObjects() []*MetaObject { return m.metaObjects }

// Geometry looks up a geometry by id.
func (m *Model) Geometry(id string) (*Geometry, bool) {
	i, ok := m.geometryIDs[id]
	if !ok {
		return nil, false
	}
	return m.geometries[i], true
}

// Mesh looks up a mesh by id.
func (m *Model) Mesh(id string) (*Mesh, bool) {
	i, ok := m.meshIDs[id]
	if !ok {
		return nil, false
	}
	return m.meshes[i], true
}

// Entity looks up an entity by id.
func (m *Model) Entity(id string) (*Entity, bool) {
	i, ok := m.entityIDs[id]
	if !ok {
		return nil, false
	}
	return m.entities[i], true
}

// SharedAABB returns the bounds of all reused geometry in local space.
func (m *Model) SharedAABB() math.AABB { return m.sharedAABB }

// SharedDecodeMatrix returns the decode matrix of reused geometry. It is the
// identity when nothing is reused.
func (m *Model) SharedDecodeMatrix() math.Mat4 { return m.sharedDecodeMatrix }

// AABB returns the bounds of every entity. Empty before Finalize.
func (m *Model) AABB() math.AABB {
	box := math.EmptyAABB()
	for _, t := range m.tiles {
		box.Expand(t.AABB)
	}
	return box
}

// Stats summarizes model contents.
type Stats struct {
	Geometries       int
	ReusedGeometries int
	Meshes           int
	Entities         int
	Tiles            int
	MetaObjects      int
	Vertices         int
	Triangles        int
	Lines            int
	Points           int
	EdgeSegments     int
	Bounds           math.AABB // World bounds, empty before Finalize
}

// Stats counts the model contents.
func (m *Model) Stats() Stats {
	s := Stats{
		Geometries:  len(m.geometries),
		Meshes:      len(m.meshes),
		Entities:    len(m.entities),
		Tiles:       len(m.tiles),
		MetaObjects: len(m.metaObjects),
		Bounds:      m.AABB(),
	}
	for _, g := range m.geometries {
		if g.RefCount > 1 {
			s.ReusedGeometries++
		}
		s.Vertices += g.NumVertices()
		s.EdgeSegments += len(g.EdgeIndices) / 2
		switch g.Kind {
		case Triangles:
			s.Triangles += len(g.Indices) / 3
		case Lines:
			s.Lines += len(g.Indices) / 2
		case Points:
			s.Points += g.NumVertices()
		}
	}
	return s
}

// checkBuilding rejects mutation once the model is finalized.
func (m *Model) checkBuilding(op, id string) error {
	if m.state == Finalized {
		m.log().Error("model is finalized, ignoring "+op, zap.String("id", id))
		return errorf(ErrInvalidState, "%s %q: model is finalized", op, id)
	}
	return nil
}
