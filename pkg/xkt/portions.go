package xkt

import "github.com/Faultbox/xktconv/pkg/math"

// NumGeometries returns the number of geometries.
func (d *Data) NumGeometries() int { return len(d.EachGeometryPrimitiveType) }

// NumMeshes returns the number of meshes.
func (d *Data) NumMeshes() int { return len(d.EachMeshGeometriesPortion) }

// NumEntities returns the number of entities.
func (d *Data) NumEntities() int { return len(d.EachEntityID) }

// NumTiles returns the number of tiles.
func (d *Data) NumTiles() int { return len(d.EachTileEntitiesPortion) }

// portion returns the [start, end) range of element i.
func portion(starts []uint32, i, total int) (int, int) {
	start := int(starts[i])
	if i+1 < len(starts) {
		return start, int(starts[i+1])
	}
	return start, total
}

// GeometryPositions returns the quantized positions of geometry i.
func (d *Data) GeometryPositions(i int) []uint16 {
	start, end := portion(d.EachGeometryPositionsPortion, i, len(d.Positions))
	return d.Positions[start:end]
}

// GeometryNormals returns the oct-encoded normals of geometry i.
func (d *Data) GeometryNormals(i int) []int8 {
	start, end := portion(d.EachGeometryPositionsPortion, i, len(d.Positions))
	return d.Normals[start/3*2 : end/3*2]
}

// GeometryIndices returns the indices of geometry i.
func (d *Data) GeometryIndices(i int) []uint32 {
	start, end := portion(d.EachGeometryIndicesPortion, i, len(d.Indices))
	return d.Indices[start:end]
}

// GeometryEdgeIndices returns the edge indices of geometry i.
func (d *Data) GeometryEdgeIndices(i int) []uint32 {
	start, end := portion(d.EachGeometryEdgeIndicesPortion, i, len(d.EdgeIndices))
	return d.EdgeIndices[start:end]
}

// GeometryUseCounts returns how many meshes reference each geometry.
func (d *Data) GeometryUseCounts() []int {
	uses := make([]int, d.NumGeometries())
	for _, g := range d.EachMeshGeometriesPortion {
		if int(g) < len(uses) {
			uses[g]++
		}
	}
	return uses
}

// MeshMatrix returns the matrix of mesh i. The second result is false when the
// mesh uses an exclusively-owned geometry, which carries no matrix.
func (d *Data) MeshMatrix(i int, uses []int) ([16]float32, bool) {
	var m [16]float32
	if uses[d.EachMeshGeometriesPortion[i]] < 2 {
		return m, false
	}
	start := d.EachMeshMatricesPortion[i]
	copy(m[:], d.Matrices[start:start+16])
	return m, true
}

// MeshColor returns the RGBA material of mesh i.
func (d *Data) MeshColor(i int) [4]uint8 {
	return [4]uint8{
		d.EachMeshMaterial[4*i],
		d.EachMeshMaterial[4*i+1],
		d.EachMeshMaterial[4*i+2],
		d.EachMeshMaterial[4*i+3],
	}
}

// EntityMeshes returns the [start, end) mesh range of entity i.
func (d *Data) EntityMeshes(i int) (int, int) {
	return portion(d.EachEntityMeshesPortion, i, d.NumMeshes())
}

// TileEntities returns the [start, end) entity range of tile i.
func (d *Data) TileEntities(i int) (int, int) {
	return portion(d.EachTileEntitiesPortion, i, d.NumEntities())
}

// TileAABB returns the world-space bounds of tile i.
func (d *Data) TileAABB(i int) math.AABB {
	var a [6]float64
	copy(a[:], d.EachTileAABB[6*i:6*i+6])
	return math.AABBFromArray(a)
}

// TileDecodeMatrix derives the decode matrix of tile i from its bounds.
func (d *Data) TileDecodeMatrix(i int) math.Mat4 {
	return TileDecodeMatrix(d.TileAABB(i))
}

// ReusedDecodeMatrix returns the shared-geometry decode matrix in double precision.
func (d *Data) ReusedDecodeMatrix() math.Mat4 {
	return math.FromFloat32(d.ReusedGeometriesDecodeMatrix)
}
