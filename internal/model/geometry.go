package model

import (
	"github.com/Faultbox/xktconv/pkg/math"
	"github.com/Faultbox/xktconv/pkg/xkt"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// PrimitiveKind is the primitive type of a geometry.
type PrimitiveKind uint8

const (
	Triangles PrimitiveKind = iota + 1
	Lines
	Points
)

// String returns the kind name.
func (k PrimitiveKind) String() string {
	switch k {
	case Triangles:
		return "triangles"
	case Lines:
		return "lines"
	case Points:
		return "points"
	default:
		return "unknown"
	}
}

// Geometry is a reusable shape.
type Geometry struct {
	ID    string
	Index int
	Kind  PrimitiveKind

	// Positions are local-space for reused geometry and world-space otherwise.
	// They are never modified after CreateGeometry.
	Positions   []float64
	Normals     []float64 // Triangles only
	Indices     []uint32
	EdgeIndices []uint32 // Triangles only

	Color   [3]uint8 // Default mesh color
	Opacity uint8    // Default mesh opacity

	// RefCount is the number of meshes using the geometry.
	RefCount int

	// Derived by Finalize.
	Solid              bool
	QuantizedPositions []uint16
	EncodedNormals     []int8 // Two per vertex, zero for lines and points

	// world holds Positions with the owning mesh matrix applied, for
	// geometry used by exactly one mesh.
	world        []float64
	worldNormals []float64

	// tile is the tile an exclusively-owned geometry is quantized in, -1 otherwise.
	tile int
}

// GeometryParams describes a geometry to create.
type GeometryParams struct {
	ID        string
	Kind      PrimitiveKind
	Positions []float64
	Normals   []float64 // Optional; generated for triangles when absent
	Indices   []uint32  // Optional for points

	Color   []float64 // Optional default RGB in [0, 1]
	Opacity *float64  // Optional default opacity in [0, 1]

	// Optional modeling transform, baked into the positions. Matrix takes
	// precedence over Position, Scale and Rotation (Euler degrees, XYZ).
	Matrix   []float64
	Position []float64
	Scale    []float64
	Rotation []float64
}

// Reused reports whether more than one mesh uses the geometry.
func (g *Geometry) Reused() bool { return g.RefCount > 1 }

// NumVertices returns the vertex count.
func (g *Geometry) NumVertices() int { return len(g.Positions) / 3 }

// PrimitiveType returns the container primitive tag. Valid after Finalize.
func (g *Geometry) PrimitiveType() xkt.PrimitiveType {
	switch g.Kind {
	case Lines:
		return xkt.PrimitiveLines
	case Points:
		return xkt.PrimitivePoints
	}
	if g.Solid {
		return xkt.PrimitiveSolid
	}
	return xkt.PrimitiveSurface
}

// WorldPositions returns the positions the geometry is quantized from: world
// space for exclusively-owned geometry, local space for reused geometry.
// Valid after Finalize.
func (g *Geometry) WorldPositions() []float64 {
	if g.world != nil {
		return g.world
	}
	return g.Positions
}

// CreateGeometry adds a geometry. Non-identity modeling transforms are baked
// into the positions and normals immediately.
func (m *Model) CreateGeometry(p GeometryParams) (*Geometry, error) {
	if err := m.checkBuilding("CreateGeometry", p.ID); err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, errorf(ErrMissingField, "geometry id")
	}
	if p.Kind == 0 {
		return nil, errorf(ErrMissingField, "geometry %q: primitive kind", p.ID)
	}
	if p.Kind > Points {
		return nil, errorf(ErrInvalidArgument, "geometry %q: primitive kind %d", p.ID, p.Kind)
	}
	if len(p.Positions) == 0 {
		return nil, errorf(ErrMissingField, "geometry %q: positions", p.ID)
	}
	if len(p.Indices) == 0 && p.Kind != Points {
		return nil, errorf(ErrMissingField, "geometry %q: indices", p.ID)
	}
	if _, exists := m.geometryIDs[p.ID]; exists {
		return nil, errorf(ErrInvalidState, "geometry %q already exists", p.ID)
	}
	if err := checkGeometryArrays(p); err != nil {
		return nil, err
	}

	matrix, err := modelingMatrix(p.Matrix, p.Position, p.Scale, p.Rotation)
	if err != nil {
		return nil, errors.Wrapf(err, "geometry %q", p.ID)
	}

	color, opacity, err := colorBytes(p.Color, p.Opacity)
	if err != nil {
		return nil, errors.Wrapf(err, "geometry %q", p.ID)
	}

	g := &Geometry{
		ID:        p.ID,
		Index:     len(m.geometries),
		Kind:      p.Kind,
		Positions: append([]float64(nil), p.Positions...),
		Indices:   append([]uint32(nil), p.Indices...),
		Color:     color,
		Opacity:   opacity,
		tile:      -1,
	}

	if p.Kind == Triangles {
		if len(p.Normals) > 0 {
			g.Normals = append([]float64(nil), p.Normals...)
		} else {
			g.Normals = generateNormals(g.Positions, g.Indices)
		}
	}

	if !matrix.IsIdentity() {
		matrix.TransformPositions(g.Positions)
		if g.Normals != nil {
			transformNormals(matrix.NormalMatrix(), g.Normals)
		}
	}

	if p.Kind == Triangles {
		g.EdgeIndices = buildEdgeIndices(g.Positions, g.Indices, m.opts.EdgeThreshold)
	}

	m.geometryIDs[g.ID] = g.Index
	m.geometries = append(m.geometries, g)

	m.log().Debug("created geometry",
		zap.String("id", g.ID),
		zap.Stringer("kind", g.Kind),
		zap.Int("vertices", g.NumVertices()),
		zap.Int("edges", len(g.EdgeIndices)/2),
		zap.Bool("baked", !matrix.IsIdentity()))

	return g, nil
}

// checkGeometryArrays rejects arrays whose lengths or indices do not fit the positions.
func checkGeometryArrays(p GeometryParams) error {
	if len(p.Positions)%3 != 0 {
		return errorf(ErrInvalidArgument, "geometry %q: %d position components is not a multiple of 3", p.ID, len(p.Positions))
	}
	if len(p.Normals) > 0 && len(p.Normals) != len(p.Positions) {
		return errorf(ErrInvalidArgument, "geometry %q: %d normal components for %d position components", p.ID, len(p.Normals), len(p.Positions))
	}
	switch p.Kind {
	case Triangles:
		if len(p.Indices)%3 != 0 {
			return errorf(ErrInvalidArgument, "geometry %q: %d triangle indices is not a multiple of 3", p.ID, len(p.Indices))
		}
	case Lines:
		if len(p.Indices)%2 != 0 {
			return errorf(ErrInvalidArgument, "geometry %q: %d line indices is not a multiple of 2", p.ID, len(p.Indices))
		}
	}
	numVertices := uint32(len(p.Positions) / 3)
	for i, idx := range p.Indices {
		if idx >= numVertices {
			return errorf(ErrInvalidArgument, "geometry %q: index %d at %d out of range for %d vertices", p.ID, idx, i, numVertices)
		}
	}
	return nil
}

// modelingMatrix builds a transform from an explicit 4x4 column-major matrix
// or from position, scale and Euler rotation in degrees.
func modelingMatrix(matrix, position, scale, rotation []float64) (math.Mat4, error) {
	if matrix != nil {
		if len(matrix) != 16 {
			return math.Mat4{}, errorf(ErrInvalidArgument, "matrix has %d elements, want 16", len(matrix))
		}
		var out math.Mat4
		copy(out[:], matrix)
		return out, nil
	}

	pos := math.Vec3{}
	scl := math.Vec3{X: 1, Y: 1, Z: 1}
	rot := math.QuatIdentity()
	if position != nil {
		v, err := vec3Param("position", position)
		if err != nil {
			return math.Mat4{}, err
		}
		pos = v
	}
	if scale != nil {
		v, err := vec3Param("scale", scale)
		if err != nil {
			return math.Mat4{}, err
		}
		scl = v
	}
	if rotation != nil {
		v, err := vec3Param("rotation", rotation)
		if err != nil {
			return math.Mat4{}, err
		}
		rot = math.QuatFromEuler(v)
	}
	return math.Compose(pos, rot, scl), nil
}

func vec3Param(name string, v []float64) (math.Vec3, error) {
	if len(v) != 3 {
		return math.Vec3{}, errorf(ErrInvalidArgument, "%s has %d elements, want 3", name, len(v))
	}
	return math.Vec3{X: v[0], Y: v[1], Z: v[2]}, nil
}

// colorBytes packs an optional [0, 1] RGB color and opacity, defaulting to opaque white.
func colorBytes(color []float64, opacity *float64) ([3]uint8, uint8, error) {
	out := [3]uint8{255, 255, 255}
	alpha := uint8(255)
	if color != nil {
		if len(color) < 3 {
			return out, alpha, errorf(ErrInvalidArgument, "color has %d elements, want 3", len(color))
		}
		for i := 0; i < 3; i++ {
			out[i] = unitToByte(color[i])
		}
	}
	if opacity != nil {
		alpha = unitToByte(*opacity)
	}
	return out, alpha, nil
}

func unitToByte(v float64) uint8 {
	switch {
	case v <= 0 || v != v:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5)
}
