package xkt

import (
	"fmt"
	"unicode/utf8"
)

// Check verifies that every portion array is consistent with the flat arrays it indexes.
func (d *Data) Check() error {
	numGeometries := len(d.EachGeometryPrimitiveType)
	if len(d.EachGeometryPositionsPortion) != numGeometries ||
		len(d.EachGeometryIndicesPortion) != numGeometries ||
		len(d.EachGeometryEdgeIndicesPortion) != numGeometries {
		return malformed("per-geometry arrays disagree on geometry count")
	}
	if len(d.Positions)%3 != 0 {
		return malformed("%d position components is not a multiple of 3", len(d.Positions))
	}
	if len(d.Normals) != len(d.Positions)/3*2 {
		return malformed("%d normal components for %d vertices", len(d.Normals), len(d.Positions)/3)
	}
	if err := checkPortions("geometry positions", d.EachGeometryPositionsPortion, len(d.Positions)); err != nil {
		return err
	}
	for i, start := range d.EachGeometryPositionsPortion {
		if start%3 != 0 {
			return malformed("geometry %d positions start %d is not vertex aligned", i, start)
		}
	}
	if err := checkPortions("geometry indices", d.EachGeometryIndicesPortion, len(d.Indices)); err != nil {
		return err
	}
	if err := checkPortions("geometry edge indices", d.EachGeometryEdgeIndicesPortion, len(d.EdgeIndices)); err != nil {
		return err
	}
	for i, p := range d.EachGeometryPrimitiveType {
		if p > PrimitivePoints {
			return malformed("geometry %d has primitive type %d", i, p)
		}
	}

	numMeshes := len(d.EachMeshGeometriesPortion)
	if len(d.EachMeshMatricesPortion) != numMeshes || len(d.EachMeshMaterial) != 4*numMeshes {
		return malformed("per-mesh arrays disagree on mesh count")
	}
	uses := d.GeometryUseCounts()
	for i, g := range d.EachMeshGeometriesPortion {
		if int(g) >= numGeometries {
			return malformed("mesh %d references geometry %d of %d", i, g, numGeometries)
		}
		if uses[g] > 1 {
			start := d.EachMeshMatricesPortion[i]
			if start%16 != 0 || int(start)+16 > len(d.Matrices) {
				return malformed("mesh %d matrix start %d outside %d matrix floats", i, start, len(d.Matrices))
			}
		}
	}

	numEntities := len(d.EachEntityID)
	if len(d.EachEntityMeshesPortion) != numEntities {
		return malformed("%d entity ids for %d entity mesh portions", numEntities, len(d.EachEntityMeshesPortion))
	}
	for i, id := range d.EachEntityID {
		if !utf8.ValidString(id) {
			return malformed("entity %d id %q is not valid UTF-8", i, id)
		}
	}
	if err := checkPortions("entity meshes", d.EachEntityMeshesPortion, numMeshes); err != nil {
		return err
	}

	if len(d.EachTileAABB)%6 != 0 {
		return malformed("%d tile AABB values is not a multiple of 6", len(d.EachTileAABB))
	}
	if len(d.EachTileEntitiesPortion) != len(d.EachTileAABB)/6 {
		return malformed("%d tile AABBs for %d tile entity portions", len(d.EachTileAABB)/6, len(d.EachTileEntitiesPortion))
	}
	return checkPortions("tile entities", d.EachTileEntitiesPortion, numEntities)
}

// checkPortions requires starts to begin at zero when non-empty, never decrease, and stay within total.
func checkPortions(name string, starts []uint32, total int) error {
	if len(starts) == 0 {
		if total != 0 {
			return malformed("%s: %d elements but no portions", name, total)
		}
		return nil
	}
	if starts[0] != 0 {
		return malformed("%s: first portion starts at %d", name, starts[0])
	}
	for i := 1; i < len(starts); i++ {
		if starts[i] < starts[i-1] {
			return malformed("%s: portion %d starts before portion %d", name, i, i-1)
		}
	}
	if int(starts[len(starts)-1]) > total {
		return malformed("%s: last portion starts at %d beyond %d elements", name, starts[len(starts)-1], total)
	}
	return nil
}

func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformedSection, fmt.Sprintf(format, args...))
}
