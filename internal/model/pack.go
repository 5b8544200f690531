package model

import "github.com/Faultbox/xktconv/pkg/xkt"

// Pack lays the finalized model out as container sections. Geometries, meshes,
// entities and tiles keep their arena order.
func (m *Model) Pack() (*xkt.Data, error) {
	if m.state != Finalized {
		return nil, errorf(ErrInvalidState, "pack: model is not finalized")
	}

	d := &xkt.Data{
		ReusedGeometriesDecodeMatrix: m.sharedDecodeMatrix.Float32(),

		EachGeometryPrimitiveType:      make([]xkt.PrimitiveType, 0, len(m.geometries)),
		EachGeometryPositionsPortion:   make([]uint32, 0, len(m.geometries)),
		EachGeometryIndicesPortion:     make([]uint32, 0, len(m.geometries)),
		EachGeometryEdgeIndicesPortion: make([]uint32, 0, len(m.geometries)),

		EachMeshGeometriesPortion: make([]uint32, 0, len(m.meshes)),
		EachMeshMatricesPortion:   make([]uint32, 0, len(m.meshes)),
		EachMeshMaterial:          make([]uint8, 0, 4*len(m.meshes)),

		EachEntityID:            make([]string, 0, len(m.entities)),
		EachEntityMeshesPortion: make([]uint32, 0, len(m.entities)),

		EachTileAABB:            make([]float64, 0, 6*len(m.tiles)),
		EachTileEntitiesPortion: make([]uint32, 0, len(m.tiles)),
	}

	for _, g := range m.geometries {
		d.EachGeometryPrimitiveType = append(d.EachGeometryPrimitiveType, g.PrimitiveType())
		d.EachGeometryPositionsPortion = append(d.EachGeometryPositionsPortion, uint32(len(d.Positions)))
		d.EachGeometryIndicesPortion = append(d.EachGeometryIndicesPortion, uint32(len(d.Indices)))
		d.EachGeometryEdgeIndicesPortion = append(d.EachGeometryEdgeIndicesPortion, uint32(len(d.EdgeIndices)))

		d.Positions = append(d.Positions, g.QuantizedPositions...)
		d.Normals = append(d.Normals, g.EncodedNormals...)
		d.Indices = append(d.Indices, g.Indices...)
		d.EdgeIndices = append(d.EdgeIndices, g.EdgeIndices...)
	}

	for _, ms := range m.meshes {
		d.EachMeshGeometriesPortion = append(d.EachMeshGeometriesPortion, uint32(ms.Geometry))
		if m.geometries[ms.Geometry].Reused() {
			d.EachMeshMatricesPortion = append(d.EachMeshMatricesPortion, uint32(len(d.Matrices)))
			matrix := ms.Matrix.Float32()
			d.Matrices = append(d.Matrices, matrix[:]...)
		} else {
			d.EachMeshMatricesPortion = append(d.EachMeshMatricesPortion, 0)
		}
		rgba := ms.RGBA()
		d.EachMeshMaterial = append(d.EachMeshMaterial, rgba[:]...)
	}

	for _, e := range m.entities {
		d.EachEntityID = append(d.EachEntityID, e.ID)
		d.EachEntityMeshesPortion = append(d.EachEntityMeshesPortion, uint32(e.Meshes[0]))
	}

	for _, t := range m.tiles {
		box := t.AABB.Array()
		d.EachTileAABB = append(d.EachTileAABB, box[:]...)
		d.EachTileEntitiesPortion = append(d.EachTileEntitiesPortion, uint32(t.Entities[0]))
	}

	return d, nil
}

// Encode packs the finalized model and serializes it at the given zlib level.
func (m *Model) Encode(level int) ([]byte, error) {
	d, err := m.Pack()
	if err != nil {
		return nil, err
	}
	return xkt.EncodeLevel(d, level)
}
