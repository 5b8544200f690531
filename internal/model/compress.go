package model

import (
	"github.com/Faultbox/xktconv/pkg/math"
	"github.com/Faultbox/xktconv/pkg/xkt"
)

// quantize compresses positions. Exclusively-owned geometry is recentred on
// its tile and quantized over the tile's recentred bounds. Reused geometry is
// quantized in local space over one frame shared by every tile.
func (m *Model) quantize() {
	for _, t := range m.tiles {
		center := t.AABB.Center()
		rtc := t.AABB.Translate(center)
		t.DecodeMatrix = xkt.TileDecodeMatrix(t.AABB)

		for _, ei := range t.Entities {
			for _, mi := range m.entities[ei].Meshes {
				g := m.geometries[m.meshes[mi].Geometry]
				if g.Reused() {
					continue
				}
				g.QuantizedPositions = xkt.QuantizePositions(g.WorldPositions(), center, rtc)
				g.tile = t.Index
			}
		}
	}

	m.sharedAABB = math.EmptyAABB()
	for _, g := range m.geometries {
		if g.Reused() {
			m.sharedAABB.ExpandPositions(g.Positions)
		}
	}
	if m.sharedAABB.IsEmpty() {
		m.sharedDecodeMatrix = math.Identity()
		return
	}
	m.sharedDecodeMatrix = xkt.DecodeMatrix(m.sharedAABB)
	for _, g := range m.geometries {
		if g.Reused() {
			g.QuantizedPositions = xkt.QuantizePositions(g.Positions, math.Vec3{}, m.sharedAABB)
		}
	}
}

// DecodeMatrix returns the matrix that maps a geometry's quantized positions
// back to the space of WorldPositions. Valid after Finalize.
func (m *Model) DecodeMatrix(g *Geometry) math.Mat4 {
	if g.Reused() {
		return m.sharedDecodeMatrix
	}
	if g.tile >= 0 && g.tile < len(m.tiles) {
		return m.tiles[g.tile].DecodeMatrix
	}
	return math.Identity()
}
