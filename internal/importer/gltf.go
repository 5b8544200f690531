// Package importer populates a model.Model from interchange formats.
package importer

import (
	"fmt"

	"github.com/Faultbox/xktconv/internal/logger"
	"github.com/Faultbox/xktconv/internal/model"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"
)

// LoadGLTF reads a .gltf or .glb file into m.
func LoadGLTF(m *model.Model, path string) error {
	doc, err := gltf.Open(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read gltf %q", path)
	}
	return ImportGLTF(m, doc)
}

// ImportGLTF adds the default scene of doc to m. Every mesh primitive becomes
// one geometry shared by all nodes instancing that mesh, and every node with
// a mesh becomes one entity. Meta objects mirror the node hierarchy.
//
// Primitives that cannot be read are logged and skipped unless the model is
// strict.
func ImportGLTF(m *model.Model, doc *gltf.Document) error {
	imp := &gltfImporter{
		m:          m,
		doc:        doc,
		log:        logger.Named("gltf"),
		geometries: make(map[primitiveKey]string),
		ids:        make(map[string]bool),
	}

	for _, root := range imp.sceneRoots() {
		if err := imp.node(root, mgl32.Ident4(), ""); err != nil {
			return err
		}
	}

	imp.log.Info("imported gltf",
		zap.Int("nodes", imp.nodes),
		zap.Int("entities", imp.entities),
		zap.Int("geometries", len(imp.geometries)))
	return nil
}

type primitiveKey struct {
	mesh, primitive int
}

type gltfImporter struct {
	m   *model.Model
	doc *gltf.Document
	log *zap.Logger

	geometries map[primitiveKey]string // Geometry id, "" when the primitive was skipped
	ids        map[string]bool

	nodes    int
	entities int
}

// sceneRoots returns the root nodes of the default scene, or every node
// without a parent when the document has no scenes.
func (imp *gltfImporter) sceneRoots() []uint32 {
	if len(imp.doc.Scenes) > 0 {
		scene := 0
		if imp.doc.Scene != nil && int(*imp.doc.Scene) < len(imp.doc.Scenes) {
			scene = int(*imp.doc.Scene)
		}
		return imp.doc.Scenes[scene].Nodes
	}

	child := make([]bool, len(imp.doc.Nodes))
	for _, n := range imp.doc.Nodes {
		for _, c := range n.Children {
			if int(c) < len(child) {
				child[c] = true
			}
		}
	}
	var roots []uint32
	for i, isChild := range child {
		if !isChild {
			roots = append(roots, uint32(i))
		}
	}
	return roots
}

func (imp *gltfImporter) node(index uint32, parent mgl32.Mat4, parentID string) error {
	if int(index) >= len(imp.doc.Nodes) {
		return imp.fail(errors.Wrapf(model.ErrNotFound, "node %d", index))
	}
	node := imp.doc.Nodes[index]
	imp.nodes++

	world := parent.Mul4(localMatrix(node))
	id := imp.uniqueID(node.Name)

	if node.Mesh != nil {
		created, err := imp.entity(id, int(*node.Mesh), world)
		if err != nil {
			return err
		}
		if created {
			imp.entities++
		}
	}

	metaType := "default"
	if node.Mesh == nil {
		metaType = "group"
	}
	if _, err := imp.m.CreateMetaObject(model.MetaObjectParams{
		ID:       id,
		Name:     node.Name,
		Type:     metaType,
		ParentID: parentID,
	}); err != nil {
		return errors.Wrapf(err, "node %d", index)
	}

	for _, c := range node.Children {
		if err := imp.node(c, world, id); err != nil {
			return err
		}
	}
	return nil
}

// entity creates one mesh per usable primitive of the glTF mesh and an entity
// owning them. It reports false when no primitive could be used.
func (imp *gltfImporter) entity(id string, meshIndex int, world mgl32.Mat4) (bool, error) {
	if meshIndex >= len(imp.doc.Meshes) {
		return false, imp.fail(errors.Wrapf(model.ErrNotFound, "node %q: mesh %d", id, meshIndex))
	}

	matrix := make([]float64, 16)
	for i, v := range world {
		matrix[i] = float64(v)
	}

	var meshIDs []string
	for pi, prim := range imp.doc.Meshes[meshIndex].Primitives {
		geometryID, err := imp.geometry(primitiveKey{meshIndex, pi}, prim)
		if err != nil {
			return false, err
		}
		if geometryID == "" {
			continue
		}

		params := model.MeshParams{
			ID:         fmt.Sprintf("%s#%d", id, pi),
			GeometryID: geometryID,
			Matrix:     matrix,
		}
		params.Color, params.Opacity = imp.materialColor(prim.Material)

		if _, err := imp.m.CreateMesh(params); err != nil {
			if err := imp.fail(err); err != nil {
				return false, err
			}
			continue
		}
		meshIDs = append(meshIDs, params.ID)
	}

	if len(meshIDs) == 0 {
		imp.log.Warn("node has no usable primitives", zap.String("node", id))
		return false, nil
	}
	if _, err := imp.m.CreateEntity(model.EntityParams{ID: id, MeshIDs: meshIDs}); err != nil {
		return false, imp.fail(err)
	}
	return true, nil
}

// geometry returns the geometry id of a primitive, creating it on first use.
func (imp *gltfImporter) geometry(key primitiveKey, prim *gltf.Primitive) (string, error) {
	if id, ok := imp.geometries[key]; ok {
		return id, nil
	}

	id := fmt.Sprintf("mesh%d.primitive%d", key.mesh, key.primitive)
	params, err := imp.readPrimitive(prim)
	if err == nil {
		params.ID = id
		_, err = imp.m.CreateGeometry(params)
	}
	if err != nil {
		imp.geometries[key] = ""
		return "", imp.fail(errors.Wrapf(err, "mesh %d primitive %d", key.mesh, key.primitive))
	}

	imp.geometries[key] = id
	return id, nil
}

func (imp *gltfImporter) readPrimitive(prim *gltf.Primitive) (model.GeometryParams, error) {
	var params model.GeometryParams

	posAccessor, ok := prim.Attributes["POSITION"]
	if !ok || int(posAccessor) >= len(imp.doc.Accessors) {
		return params, errors.Wrap(model.ErrMissingField, "POSITION attribute")
	}
	positions, err := modeler.ReadPosition(imp.doc, imp.doc.Accessors[posAccessor], nil)
	if err != nil {
		return params, errors.Wrap(err, "failed to read positions")
	}
	params.Positions = flatten(positions)

	var indices []uint32
	if prim.Indices != nil {
		if int(*prim.Indices) >= len(imp.doc.Accessors) {
			return params, errors.Wrapf(model.ErrNotFound, "indices accessor %d", *prim.Indices)
		}
		indices, err = modeler.ReadIndices(imp.doc, imp.doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return params, errors.Wrap(err, "failed to read indices")
		}
	}

	switch prim.Mode {
	case gltf.PrimitiveTriangles, gltf.PrimitiveTriangleStrip, gltf.PrimitiveTriangleFan:
		params.Kind = model.Triangles
		params.Indices = triangleList(prim.Mode, indices, len(positions))
		if normalAccessor, ok := prim.Attributes["NORMAL"]; ok && int(normalAccessor) < len(imp.doc.Accessors) {
			normals, err := modeler.ReadNormal(imp.doc, imp.doc.Accessors[normalAccessor], nil)
			if err != nil {
				return params, errors.Wrap(err, "failed to read normals")
			}
			if len(normals) == len(positions) {
				params.Normals = flatten(normals)
			}
		}
	case gltf.PrimitiveLines, gltf.PrimitiveLineStrip, gltf.PrimitiveLineLoop:
		params.Kind = model.Lines
		params.Indices = lineList(prim.Mode, indices, len(positions))
	case gltf.PrimitivePoints:
		params.Kind = model.Points
		params.Indices = indices
	default:
		return params, errors.Wrapf(model.ErrInvalidArgument, "primitive mode %d", prim.Mode)
	}
	return params, nil
}

// materialColor returns the base color factor of a material, or nils so the
// mesh keeps the geometry default.
func (imp *gltfImporter) materialColor(material *uint32) ([]float64, *float64) {
	if material == nil || int(*material) >= len(imp.doc.Materials) {
		return nil, nil
	}
	pbr := imp.doc.Materials[*material].PBRMetallicRoughness
	if pbr == nil || pbr.BaseColorFactor == nil {
		return nil, nil
	}
	f := pbr.BaseColorFactor
	opacity := float64(f[3])
	return []float64{float64(f[0]), float64(f[1]), float64(f[2])}, &opacity
}

// uniqueID returns name, or a fresh uuid when name is empty or taken.
func (imp *gltfImporter) uniqueID(name string) string {
	id := name
	if id == "" || imp.ids[id] {
		id = uuid.NewString()
	}
	imp.ids[id] = true
	return id
}

// fail returns err in strict mode and logs it otherwise.
func (imp *gltfImporter) fail(err error) error {
	if imp.m.Strict() {
		return err
	}
	imp.log.Warn("skipping", zap.Error(err))
	return nil
}

// localMatrix returns the node matrix, or T*R*S when the matrix is unset.
func localMatrix(n *gltf.Node) mgl32.Mat4 {
	if n.Matrix != [16]float32{} && mgl32.Mat4(n.Matrix) != mgl32.Ident4() {
		return mgl32.Mat4(n.Matrix)
	}

	t := mgl32.Translate3D(n.Translation[0], n.Translation[1], n.Translation[2])
	r := mgl32.Ident4()
	if n.Rotation != [4]float32{} {
		r = mgl32.Quat{W: n.Rotation[3], V: mgl32.Vec3{n.Rotation[0], n.Rotation[1], n.Rotation[2]}}.Normalize().Mat4()
	}
	s := mgl32.Ident4()
	if n.Scale != [3]float32{} {
		s = mgl32.Scale3D(n.Scale[0], n.Scale[1], n.Scale[2])
	}
	return t.Mul4(r).Mul4(s)
}

func flatten(v [][3]float32) []float64 {
	out := make([]float64, 0, 3*len(v))
	for _, p := range v {
		out = append(out, float64(p[0]), float64(p[1]), float64(p[2]))
	}
	return out
}

func sequence(n int) []uint32 {
	out := make([]uint32, n)
	for i := range out {
		out[i] = uint32(i)
	}
	return out
}

// triangleList converts strips and fans into a plain triangle list.
func triangleList(mode gltf.PrimitiveMode, indices []uint32, numVertices int) []uint32 {
	if indices == nil {
		indices = sequence(numVertices)
	}
	switch mode {
	case gltf.PrimitiveTriangleStrip:
		var out []uint32
		for i := 0; i+2 < len(indices); i++ {
			if i%2 == 0 {
				out = append(out, indices[i], indices[i+1], indices[i+2])
			} else {
				out = append(out, indices[i+1], indices[i], indices[i+2])
			}
		}
		return out
	case gltf.PrimitiveTriangleFan:
		var out []uint32
		for i := 1; i+1 < len(indices); i++ {
			out = append(out, indices[0], indices[i], indices[i+1])
		}
		return out
	}
	return indices
}

// lineList converts strips and loops into a plain segment list.
func lineList(mode gltf.PrimitiveMode, indices []uint32, numVertices int) []uint32 {
	if indices == nil {
		indices = sequence(numVertices)
	}
	if mode == gltf.PrimitiveLines {
		return indices
	}
	var out []uint32
	for i := 0; i+1 < len(indices); i++ {
		out = append(out, indices[i], indices[i+1])
	}
	if mode == gltf.PrimitiveLineLoop && len(indices) > 2 {
		out = append(out, indices[len(indices)-1], indices[0])
	}
	return out
}
