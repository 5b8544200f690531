package model

import (
	"github.com/Faultbox/xktconv/pkg/math"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Mesh is one use of a geometry by one entity.
type Mesh struct {
	ID       string
	Index    int
	Geometry int // Index into Model.Geometries
	Entity   int // Index into Model.Entities, -1 until CreateEntity claims the mesh
	Matrix   math.Mat4
	Color    [3]uint8
	Opacity  uint8
}

// MeshParams describes a mesh to create.
type MeshParams struct {
	ID         string
	GeometryID string

	// Optional transform. Matrix takes precedence over Position, Scale and
	// Rotation (Euler degrees, XYZ).
	Matrix   []float64
	Position []float64
	Scale    []float64
	Rotation []float64

	Color   []float64 // Optional RGB in [0, 1]; defaults to the geometry color
	Opacity *float64  // Optional opacity in [0, 1]; defaults to the geometry opacity
}

// RGBA returns the packed material bytes.
func (ms *Mesh) RGBA() [4]uint8 {
	return [4]uint8{ms.Color[0], ms.Color[1], ms.Color[2], ms.Opacity}
}

// CreateMesh adds a mesh using an existing geometry and counts the reference.
// An unknown geometry id is logged and reported as ErrNotFound; no mesh is created.
func (m *Model) CreateMesh(p MeshParams) (*Mesh, error) {
	if err := m.checkBuilding("CreateMesh", p.ID); err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, errorf(ErrMissingField, "mesh id")
	}
	if p.GeometryID == "" {
		return nil, errorf(ErrMissingField, "mesh %q: geometry id", p.ID)
	}
	if _, exists := m.meshIDs[p.ID]; exists {
		return nil, errorf(ErrInvalidState, "mesh %q already exists", p.ID)
	}

	g, ok := m.Geometry(p.GeometryID)
	if !ok {
		m.log().Warn("mesh references unknown geometry, skipping",
			zap.String("mesh", p.ID),
			zap.String("geometry", p.GeometryID))
		return nil, errorf(ErrNotFound, "mesh %q: geometry %q", p.ID, p.GeometryID)
	}

	matrix, err := modelingMatrix(p.Matrix, p.Position, p.Scale, p.Rotation)
	if err != nil {
		return nil, errors.Wrapf(err, "mesh %q", p.ID)
	}

	ms := &Mesh{
		ID:       p.ID,
		Index:    len(m.meshes),
		Geometry: g.Index,
		Entity:   -1,
		Matrix:   matrix,
		Color:    g.Color,
		Opacity:  g.Opacity,
	}
	if p.Color != nil {
		c, _, err := colorBytes(p.Color, nil)
		if err != nil {
			return nil, errors.Wrapf(err, "mesh %q", p.ID)
		}
		ms.Color = c
	}
	if p.Opacity != nil {
		ms.Opacity = unitToByte(*p.Opacity)
	}

	g.RefCount++
	m.meshIDs[ms.ID] = ms.Index
	m.meshes = append(m.meshes, ms)
	return ms, nil
}
