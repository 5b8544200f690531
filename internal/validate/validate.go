// Package validate decodes an encoded container and compares it, field by
// field, with the finalized model it was produced from.
package validate

import (
	"fmt"

	"github.com/Faultbox/xktconv/internal/logger"
	"github.com/Faultbox/xktconv/internal/model"
	"github.com/Faultbox/xktconv/pkg/xkt"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// MismatchError describes one decoded value that differs from the model.
type MismatchError struct {
	Scope string // "model", "tile", "entity", "mesh" or "geometry"
	Index int    // Element index within Scope, -1 for model-wide fields
	Field string
	Want  interface{}
	Got   interface{}
}

func (e *MismatchError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s %s: want %v, got %v", e.Scope, e.Field, e.Want, e.Got)
	}
	return fmt.Sprintf("%s %d %s: want %v, got %v", e.Scope, e.Index, e.Field, e.Want, e.Got)
}

// Unwrap lets callers match any mismatch with errors.Is(err, model.ErrDecodeMismatch).
func (e *MismatchError) Unwrap() error { return model.ErrDecodeMismatch }

// checker accumulates mismatches.
type checker struct {
	err error
}

func (c *checker) mismatch(scope string, index int, field string, want, got interface{}) {
	c.err = multierr.Append(c.err, &MismatchError{Scope: scope, Index: index, Field: field, Want: want, Got: got})
}

func (c *checker) equal(scope string, index int, field string, want, got interface{}, ok bool) {
	if !ok {
		c.mismatch(scope, index, field, want, got)
	}
}

// Validate decodes buf and compares every tile, entity, mesh and geometry with
// m. Decode failures are returned as is. Every divergence becomes a
// *MismatchError; all of them are combined into the returned error.
func Validate(m *model.Model, buf []byte) error {
	if state := m.State(); state != model.Finalized {
		return errors.Wrapf(model.ErrInvalidState, "validate: model is %s", state)
	}

	d, err := xkt.Decode(buf)
	if err != nil {
		return errors.Wrap(err, "decoding container")
	}

	err = Compare(m, d)
	if n := len(multierr.Errors(err)); n > 0 {
		logger.Named("validate").Warn("container differs from model", zap.Int("mismatches", n))
	}
	return err
}

// Compare checks decoded container data against the model.
func Compare(m *model.Model, d *xkt.Data) error {
	c := &checker{}

	counts := []struct {
		field     string
		want, got int
	}{
		{"tile count", len(m.Tiles()), d.NumTiles()},
		{"entity count", len(m.Entities()), d.NumEntities()},
		{"mesh count", len(m.Meshes()), d.NumMeshes()},
		{"geometry count", len(m.Geometries()), d.NumGeometries()},
	}
	for _, n := range counts {
		c.equal("model", -1, n.field, n.want, n.got, n.want == n.got)
	}
	if c.err != nil {
		return c.err
	}

	shared := m.SharedDecodeMatrix().Float32()
	c.equal("model", -1, "reused geometries decode matrix", shared, d.ReusedGeometriesDecodeMatrix,
		shared == d.ReusedGeometriesDecodeMatrix)

	compareTiles(c, m, d)
	compareEntities(c, m, d)
	compareMeshes(c, m, d)
	compareGeometries(c, m, d)
	return c.err
}

func compareTiles(c *checker, m *model.Model, d *xkt.Data) {
	for i, t := range m.Tiles() {
		c.equal("tile", i, "aabb", t.AABB, d.TileAABB(i), t.AABB == d.TileAABB(i))
		c.equal("tile", i, "decode matrix", t.DecodeMatrix, d.TileDecodeMatrix(i), t.DecodeMatrix == d.TileDecodeMatrix(i))

		start, end := d.TileEntities(i)
		c.equal("tile", i, "entities", t.Entities, [2]int{start, end},
			len(t.Entities) == end-start && (len(t.Entities) == 0 || t.Entities[0] == start))
	}
}

func compareEntities(c *checker, m *model.Model, d *xkt.Data) {
	for i, e := range m.Entities() {
		c.equal("entity", i, "id", e.ID, d.EachEntityID[i], e.ID == d.EachEntityID[i])

		start, end := d.EntityMeshes(i)
		c.equal("entity", i, "meshes", e.Meshes, [2]int{start, end},
			len(e.Meshes) == end-start && (len(e.Meshes) == 0 || e.Meshes[0] == start))
	}
}

func compareMeshes(c *checker, m *model.Model, d *xkt.Data) {
	uses := d.GeometryUseCounts()
	for i, ms := range m.Meshes() {
		got := int(d.EachMeshGeometriesPortion[i])
		c.equal("mesh", i, "geometry", ms.Geometry, got, ms.Geometry == got)
		c.equal("mesh", i, "material", ms.RGBA(), d.MeshColor(i), ms.RGBA() == d.MeshColor(i))

		if ms.Geometry >= len(m.Geometries()) || !m.Geometries()[ms.Geometry].Reused() {
			continue
		}
		want := ms.Matrix.Float32()
		matrix, ok := d.MeshMatrix(i, uses)
		c.equal("mesh", i, "matrix", want, matrix, ok && matrix == want)
	}
}

func compareGeometries(c *checker, m *model.Model, d *xkt.Data) {
	uses := d.GeometryUseCounts()
	for i, g := range m.Geometries() {
		c.equal("geometry", i, "primitive type", g.PrimitiveType(), d.EachGeometryPrimitiveType[i],
			g.PrimitiveType() == d.EachGeometryPrimitiveType[i])
		c.equal("geometry", i, "reuse count", g.RefCount, uses[i], g.RefCount == uses[i])

		compareSlice(c, i, "positions", g.QuantizedPositions, d.GeometryPositions(i))
		compareSlice(c, i, "normals", g.EncodedNormals, d.GeometryNormals(i))
		compareSlice(c, i, "indices", g.Indices, d.GeometryIndices(i))
		compareSlice(c, i, "edge indices", g.EdgeIndices, d.GeometryEdgeIndices(i))
	}
}

// compareSlice reports a length difference or the first differing element of a geometry array.
func compareSlice[T comparable](c *checker, geometry int, field string, want, got []T) {
	if len(want) != len(got) {
		c.mismatch("geometry", geometry, field+" length", len(want), len(got))
		return
	}
	for k := range want {
		if want[k] != got[k] {
			c.mismatch("geometry", geometry, fmt.Sprintf("%s[%d]", field, k), want[k], got[k])
			return
		}
	}
}
