package model

import (
	"github.com/Faultbox/xktconv/pkg/math"
	"go.uber.org/zap"
)

// Finalize derives everything the container needs: it drops unused meshes and
// geometries, flags reuse, bakes exclusively-owned geometry into world space,
// computes entity bounds, tiles the entities and quantizes positions.
//
// A second call logs a warning and returns nil. Once Finalize succeeds the
// model rejects every create call.
func (m *Model) Finalize() error {
	if m.state == Finalized {
		m.log().Warn("model already finalized, ignoring Finalize")
		return nil
	}

	if err := m.dropUnused(); err != nil {
		return err
	}
	m.flagReuse()
	m.bakeExclusiveGeometry()
	m.encodeGeometry()
	m.computeEntityAABBs()

	groups := m.buildTiles()
	m.orderByTiles(groups)
	m.quantize()

	m.state = Finalized

	s := m.Stats()
	m.log().Info("finalized model",
		zap.Int("geometries", s.Geometries),
		zap.Int("reused", s.ReusedGeometries),
		zap.Int("meshes", s.Meshes),
		zap.Int("entities", s.Entities),
		zap.Int("tiles", s.Tiles))
	return nil
}

// dropUnused removes meshes no entity claimed and geometries no mesh uses,
// then recounts geometry references from the surviving meshes.
func (m *Model) dropUnused() error {
	var orphans []string
	meshOrder := make([]int, 0, len(m.meshes))
	for _, ms := range m.meshes {
		if ms.Entity < 0 {
			orphans = append(orphans, ms.ID)
			continue
		}
		meshOrder = append(meshOrder, ms.Index)
	}
	if len(orphans) > 0 {
		if m.opts.Strict {
			return errorf(ErrInvalidState, "%d meshes belong to no entity, first %q", len(orphans), orphans[0])
		}
		m.log().Warn("dropping meshes that belong to no entity",
			zap.Int("count", len(orphans)),
			zap.Strings("ids", firstN(orphans, 10)))
	}

	refs := make([]int, len(m.geometries))
	for _, mi := range meshOrder {
		refs[m.meshes[mi].Geometry]++
	}
	geometryOrder := make([]int, 0, len(m.geometries))
	for i, g := range m.geometries {
		g.RefCount = refs[i]
		if refs[i] == 0 {
			m.log().Debug("dropping unused geometry", zap.String("id", g.ID))
			continue
		}
		geometryOrder = append(geometryOrder, i)
	}

	entityOrder := make([]int, len(m.entities))
	for i := range entityOrder {
		entityOrder[i] = i
	}
	m.reorder(geometryOrder, meshOrder, entityOrder)
	return nil
}

// reorder rebuilds the arenas from lists of old indices, dropping anything not
// listed, and rewrites every cross reference and id lookup.
func (m *Model) reorder(geometryOrder, meshOrder, entityOrder []int) {
	geometryMap := remap(len(m.geometries), geometryOrder)
	meshMap := remap(len(m.meshes), meshOrder)
	entityMap := remap(len(m.entities), entityOrder)

	geometries := make([]*Geometry, len(geometryOrder))
	m.geometryIDs = make(map[string]int, len(geometryOrder))
	for ni, oi := range geometryOrder {
		g := m.geometries[oi]
		g.Index = ni
		geometries[ni] = g
		m.geometryIDs[g.ID] = ni
	}

	meshes := make([]*Mesh, len(meshOrder))
	m.meshIDs = make(map[string]int, len(meshOrder))
	for ni, oi := range meshOrder {
		ms := m.meshes[oi]
		ms.Index = ni
		ms.Geometry = geometryMap[ms.Geometry]
		if ms.Entity >= 0 {
			ms.Entity = entityMap[ms.Entity]
		}
		meshes[ni] = ms
		m.meshIDs[ms.ID] = ni
	}

	entities := make([]*Entity, len(entityOrder))
	m.entityIDs = make(map[string]int, len(entityOrder))
	for ni, oi := range entityOrder {
		e := m.entities[oi]
		e.Index = ni
		for j, mi := range e.Meshes {
			e.Meshes[j] = meshMap[mi]
		}
		entities[ni] = e
		m.entityIDs[e.ID] = ni
	}

	m.geometries, m.meshes, m.entities = geometries, meshes, entities
}

// remap inverts an order list: old index to new index, -1 when dropped.
func remap(n int, order []int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = -1
	}
	for ni, oi := range order {
		out[oi] = ni
	}
	return out
}

func (m *Model) flagReuse() {
	for _, e := range m.entities {
		e.HasReusedGeometry = false
		for _, mi := range e.Meshes {
			if m.geometries[m.meshes[mi].Geometry].Reused() {
				e.HasReusedGeometry = true
				break
			}
		}
	}
}

// bakeExclusiveGeometry applies the single owning mesh's matrix to geometry
// used once. Reused geometry stays in local space.
func (m *Model) bakeExclusiveGeometry() {
	for _, ms := range m.meshes {
		g := m.geometries[ms.Geometry]
		if g.Reused() || ms.Matrix.IsIdentity() {
			continue
		}
		g.world = append([]float64(nil), g.Positions...)
		ms.Matrix.TransformPositions(g.world)
		if g.Normals != nil {
			g.worldNormals = append([]float64(nil), g.Normals...)
			transformNormals(ms.Matrix.NormalMatrix(), g.worldNormals)
		}
	}
}

// encodeGeometry detects closed triangle meshes and oct-encodes normals.
// Lines and points get zero normals so every vertex has a normal slot.
func (m *Model) encodeGeometry() {
	for _, g := range m.geometries {
		if g.Kind != Triangles {
			g.EncodedNormals = make([]int8, g.NumVertices()*2)
			continue
		}
		g.Solid = isSolid(g.Positions, g.Indices)
		normals := g.Normals
		if g.worldNormals != nil {
			normals = g.worldNormals
		}
		g.EncodedNormals = octEncodeNormals(normals)
	}
}

// computeEntityAABBs bounds every entity in world space. Reused geometry is
// transformed per vertex by its mesh matrix.
func (m *Model) computeEntityAABBs() {
	for _, e := range m.entities {
		box := math.EmptyAABB()
		for _, mi := range e.Meshes {
			ms := m.meshes[mi]
			g := m.geometries[ms.Geometry]
			if !g.Reused() {
				box.ExpandPositions(g.WorldPositions())
				continue
			}
			for v := 0; v < g.NumVertices(); v++ {
				box.ExpandPoint(ms.Matrix.TransformPoint(vertex(g.Positions, uint32(v))))
			}
		}
		e.AABB = box
	}
}

// orderByTiles renumbers entities in tile order and meshes in entity order so
// each tile and entity owns a contiguous range, then creates the tiles.
func (m *Model) orderByTiles(groups [][]int) {
	entityOrder := make([]int, 0, len(m.entities))
	for _, group := range groups {
		entityOrder = append(entityOrder, group...)
	}
	meshOrder := make([]int, 0, len(m.meshes))
	for _, ei := range entityOrder {
		meshOrder = append(meshOrder, m.entities[ei].Meshes...)
	}
	geometryOrder := make([]int, len(m.geometries))
	for i := range geometryOrder {
		geometryOrder[i] = i
	}
	m.reorder(geometryOrder, meshOrder, entityOrder)

	m.tiles = make([]*Tile, len(groups))
	start := 0
	for k, group := range groups {
		t := &Tile{Index: k, AABB: math.EmptyAABB()}
		for ei := start; ei < start+len(group); ei++ {
			e := m.entities[ei]
			e.Tile = k
			t.Entities = append(t.Entities, ei)
			t.AABB.Expand(e.AABB)
		}
		m.tiles[k] = t
		start += len(group)
	}
}

func firstN(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
