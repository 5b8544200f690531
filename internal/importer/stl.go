package importer

import (
	"github.com/Faultbox/xktconv/internal/logger"
	"github.com/Faultbox/xktconv/internal/model"
	"github.com/Faultbox/xktconv/pkg/formats"
	"github.com/Faultbox/xktconv/pkg/math"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// LoadSTL reads a binary or ASCII STL file into m as a single entity.
func LoadSTL(m *model.Model, path, id string) error {
	stl, err := formats.LoadSTL(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read stl %q", path)
	}
	return ImportSTL(m, stl, id)
}

// ImportSTL adds stl to m as one geometry, mesh and entity named id. Corners
// sharing both position and facet normal are welded into one vertex. Zero
// facet normals are recomputed from the winding.
func ImportSTL(m *model.Model, stl *formats.STL, id string) error {
	if id == "" {
		id = stl.Name
	}
	if id == "" {
		id = "stl"
	}
	if len(stl.Triangles) == 0 {
		return errors.Wrapf(model.ErrMissingField, "stl %q has no triangles", id)
	}

	type vertexKey struct {
		position, normal [3]float32
	}
	welded := make(map[vertexKey]uint32, len(stl.Triangles))
	positions := make([]float64, 0, 9*len(stl.Triangles))
	normals := make([]float64, 0, 9*len(stl.Triangles))
	indices := make([]uint32, 0, 3*len(stl.Triangles))

	for _, t := range stl.Triangles {
		n := facetNormal(t)
		for _, v := range t.Vertices {
			key := vertexKey{v, n}
			idx, ok := welded[key]
			if !ok {
				idx = uint32(len(positions) / 3)
				welded[key] = idx
				positions = append(positions, float64(v[0]), float64(v[1]), float64(v[2]))
				normals = append(normals, float64(n[0]), float64(n[1]), float64(n[2]))
			}
			indices = append(indices, idx)
		}
	}

	geometryID := id + ".geometry"
	meshID := id + "#0"
	if _, err := m.CreateGeometry(model.GeometryParams{
		ID:        geometryID,
		Kind:      model.Triangles,
		Positions: positions,
		Normals:   normals,
		Indices:   indices,
	}); err != nil {
		return err
	}
	if _, err := m.CreateMesh(model.MeshParams{ID: meshID, GeometryID: geometryID}); err != nil {
		return err
	}
	if _, err := m.CreateEntity(model.EntityParams{ID: id, MeshIDs: []string{meshID}}); err != nil {
		return err
	}
	if _, err := m.CreateMetaObject(model.MetaObjectParams{ID: id, Name: stl.Name}); err != nil {
		return err
	}

	lo, hi := stl.Bounds()
	logger.Named("stl").Info("imported stl",
		zap.String("id", id),
		zap.Bool("binary", stl.Binary),
		zap.Int("triangles", len(stl.Triangles)),
		zap.Int("vertices", len(positions)/3),
		zap.Float32s("min", lo[:]),
		zap.Float32s("max", hi[:]))
	return nil
}

// facetNormal returns the stored normal, or the winding normal when the
// stored one is zero.
func facetNormal(t formats.STLTriangle) [3]float32 {
	if t.Normal != [3]float32{} {
		return t.Normal
	}
	corner := func(i int) math.Vec3 {
		v := t.Vertices[i]
		return math.Vec3{X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2])}
	}
	a := corner(0)
	n := corner(1).Sub(a).Cross(corner(2).Sub(a)).Normalize()
	return [3]float32{float32(n.X), float32(n.Y), float32(n.Z)}
}
