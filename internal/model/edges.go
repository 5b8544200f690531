package model

import (
	gomath "math"

	"github.com/Faultbox/xktconv/pkg/math"
)

// edgeKey is an undirected edge between two welded vertices, low index first.
type edgeKey struct {
	a, b uint32
}

func makeEdgeKey(a, b uint32) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{a, b}
}

// edgeFaces records the triangles adjacent to an edge and the original
// vertex indices of its first occurrence.
type edgeFaces struct {
	faces  []int
	v0, v1 uint32
}

// weldVertices maps every vertex to the first vertex with an identical position.
func weldVertices(positions []float64) []uint32 {
	type key [3]float64
	first := make(map[key]uint32, len(positions)/3)
	welded := make([]uint32, len(positions)/3)
	for i := range welded {
		k := key{positions[3*i], positions[3*i+1], positions[3*i+2]}
		if w, ok := first[k]; ok {
			welded[i] = w
			continue
		}
		first[k] = uint32(i)
		welded[i] = uint32(i)
	}
	return welded
}

// adjacency builds the welded edge to face map of a triangle list, keeping
// edges in first-seen order.
func adjacency(welded []uint32, indices []uint32) ([]edgeKey, map[edgeKey]*edgeFaces) {
	edges := make(map[edgeKey]*edgeFaces)
	var order []edgeKey
	for f := 0; f+2 < len(indices); f += 3 {
		tri := [3]uint32{indices[f], indices[f+1], indices[f+2]}
		for j := 0; j < 3; j++ {
			v0, v1 := tri[j], tri[(j+1)%3]
			k := makeEdgeKey(welded[v0], welded[v1])
			if k.a == k.b {
				continue
			}
			ef, ok := edges[k]
			if !ok {
				ef = &edgeFaces{v0: v0, v1: v1}
				edges[k] = ef
				order = append(order, k)
			}
			ef.faces = append(ef.faces, f/3)
		}
	}
	return order, edges
}

// buildEdgeIndices returns line-segment indices for the feature edges of a
// triangle mesh: edges with a single adjacent face, more than two faces, or a
// dihedral angle above thresholdDegrees.
func buildEdgeIndices(positions []float64, indices []uint32, thresholdDegrees float64) []uint32 {
	welded := weldVertices(positions)
	order, edges := adjacency(welded, indices)

	faceNormals := make([]math.Vec3, len(indices)/3)
	for f := range faceNormals {
		a, b, c := indices[3*f], indices[3*f+1], indices[3*f+2]
		pa := vertex(positions, a)
		faceNormals[f] = vertex(positions, b).Sub(pa).Cross(vertex(positions, c).Sub(pa)).Normalize()
	}

	cosThreshold := gomath.Cos(thresholdDegrees * gomath.Pi / 180)
	var out []uint32
	for _, k := range order {
		ef := edges[k]
		emit := len(ef.faces) != 2
		if !emit {
			emit = faceNormals[ef.faces[0]].Dot(faceNormals[ef.faces[1]]) < cosThreshold
		}
		if emit {
			out = append(out, ef.v0, ef.v1)
		}
	}
	return out
}

// isSolid reports whether a triangle mesh is closed: every welded edge is
// shared by exactly two triangles.
func isSolid(positions []float64, indices []uint32) bool {
	if len(indices) < 3 {
		return false
	}
	order, edges := adjacency(weldVertices(positions), indices)
	if len(order) == 0 {
		return false
	}
	for _, k := range order {
		if len(edges[k].faces) != 2 {
			return false
		}
	}
	return true
}
