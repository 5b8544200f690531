// Package xkt implements the XKT container: a versioned, little-endian file of
// independently zlib-compressed sections holding quantized, tiled geometry.
//
// Layout:
//
//	u32 version
//	u32 section count (17)
//	u32 compressed byte length of each section
//	compressed sections, concatenated
//
// Every "portion" array holds start indices into the corresponding flat array.
// The end of element i is the start of element i+1, or the array length for
// the last element.
package xkt

import (
	"errors"
	"fmt"
)

// Version is the container format version written and accepted by this package.
const Version = 7

// SectionCount is the number of sections in a version 7 container.
const SectionCount = 17

// Container errors.
var (
	ErrTruncated          = errors.New("truncated XKT data")
	ErrUnsupportedVersion = errors.New("unsupported XKT version")
	ErrSectionCount       = errors.New("unexpected XKT section count")
	ErrMalformedSection   = errors.New("malformed XKT section")
)

// Section identifies one of the container sections, in file order.
type Section int

const (
	SectionPositions Section = iota
	SectionNormals
	SectionIndices
	SectionEdgeIndices
	SectionMatrices
	SectionReusedGeometriesDecodeMatrix
	SectionEachGeometryPrimitiveType
	SectionEachGeometryPositionsPortion
	SectionEachGeometryIndicesPortion
	SectionEachGeometryEdgeIndicesPortion
	SectionEachMeshGeometriesPortion
	SectionEachMeshMatricesPortion
	SectionEachMeshMaterial
	SectionEachEntityID
	SectionEachEntityMeshesPortion
	SectionEachTileAABB
	SectionEachTileEntitiesPortion
)

var sectionNames = [SectionCount]string{
	"positions",
	"normals",
	"indices",
	"edgeIndices",
	"matrices",
	"reusedGeometriesDecodeMatrix",
	"eachGeometryPrimitiveType",
	"eachGeometryPositionsPortion",
	"eachGeometryIndicesPortion",
	"eachGeometryEdgeIndicesPortion",
	"eachMeshGeometriesPortion",
	"eachMeshMatricesPortion",
	"eachMeshMaterial",
	"eachEntityId",
	"eachEntityMeshesPortion",
	"eachTileAABB",
	"eachTileEntitiesPortion",
}

// String returns the section name.
func (s Section) String() string {
	if s < 0 || int(s) >= SectionCount {
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
	return sectionNames[s]
}

// PrimitiveType is the per-geometry primitive tag stored in the container.
type PrimitiveType uint8

const (
	PrimitiveSolid   PrimitiveType = 0 // Closed triangle mesh
	PrimitiveSurface PrimitiveType = 1 // Open triangle mesh
	PrimitiveLines   PrimitiveType = 2
	PrimitivePoints  PrimitiveType = 3
)

// String returns a human-readable primitive type name.
func (p PrimitiveType) String() string {
	switch p {
	case PrimitiveSolid:
		return "Solid"
	case PrimitiveSurface:
		return "Surface"
	case PrimitiveLines:
		return "Lines"
	case PrimitivePoints:
		return "Points"
	default:
		return fmt.Sprintf("Unknown(%d)", p)
	}
}

// IsTriangles reports whether the primitive is a triangle mesh.
func (p PrimitiveType) IsTriangles() bool {
	return p == PrimitiveSolid || p == PrimitiveSurface
}

// Data holds the decompressed contents of every section.
type Data struct {
	Positions   []uint16  // Quantized positions, 3 per vertex
	Normals     []int8    // Oct-encoded normals, 2 per vertex (zero for lines and points)
	Indices     []uint32  // Triangle or line indices
	EdgeIndices []uint32  // Edge line indices for triangle geometries
	Matrices    []float32 // 16 per mesh that uses a reused geometry

	ReusedGeometriesDecodeMatrix [16]float32

	EachGeometryPrimitiveType      []PrimitiveType
	EachGeometryPositionsPortion   []uint32 // Start into Positions; normals start is portion/3*2
	EachGeometryIndicesPortion     []uint32
	EachGeometryEdgeIndicesPortion []uint32

	EachMeshGeometriesPortion []uint32 // Geometry index of each mesh
	EachMeshMatricesPortion   []uint32 // Start into Matrices, meaningful for reused geometry only
	EachMeshMaterial          []uint8  // RGBA, 4 per mesh

	EachEntityID            []string
	EachEntityMeshesPortion []uint32

	EachTileAABB            []float64 // xmin, ymin, zmin, xmax, ymax, zmax per tile
	EachTileEntitiesPortion []uint32
}
