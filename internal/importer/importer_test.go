package importer

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/Faultbox/xktconv/internal/model"
	"github.com/Faultbox/xktconv/pkg/formats"
	"github.com/google/uuid"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// cubeDocument builds a scene with a group holding two instances of one cube
// mesh, plus a line strip rail at the root.
func cubeDocument() *gltf.Document {
	doc := gltf.NewDocument()

	corners := [][3]float32{
		{-1, -1, -1}, {1, -1, -1}, {1, 1, -1}, {-1, 1, -1},
		{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1},
	}
	cubeIndices := []uint32{
		0, 2, 1, 0, 3, 2, // -z
		4, 5, 6, 4, 6, 7, // +z
		0, 1, 5, 0, 5, 4, // -y
		3, 7, 6, 3, 6, 2, // +y
		0, 4, 7, 0, 7, 3, // -x
		1, 2, 6, 1, 6, 5, // +x
	}
	cubePositions := modeler.WritePosition(doc, corners)
	cubeIndexAccessor := modeler.WriteIndices(doc, cubeIndices)

	railPositions := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {5, 0, 0}, {5, 5, 0}})

	doc.Materials = append(doc.Materials, &gltf.Material{
		Name: "red",
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &[4]float32{1, 0, 0, 0.5},
		},
	})

	doc.Meshes = append(doc.Meshes,
		&gltf.Mesh{
			Name: "cube",
			Primitives: []*gltf.Primitive{{
				Attributes: map[string]uint32{"POSITION": cubePositions},
				Indices:    gltf.Index(cubeIndexAccessor),
				Material:   gltf.Index(0),
			}},
		},
		&gltf.Mesh{
			Name: "rail",
			Primitives: []*gltf.Primitive{{
				Attributes: map[string]uint32{"POSITION": railPositions},
				Mode:       gltf.PrimitiveLineStrip,
			}},
		},
	)

	doc.Nodes = append(doc.Nodes,
		&gltf.Node{Name: "group", Children: []uint32{1, 2}},
		&gltf.Node{Name: "boxA", Mesh: gltf.Index(0), Translation: [3]float32{10, 0, 0}},
		&gltf.Node{Mesh: gltf.Index(0), Scale: [3]float32{2, 2, 2}},
		&gltf.Node{Name: "rail", Mesh: gltf.Index(1)},
	)
	doc.Scenes[0].Nodes = []uint32{0, 3}
	return doc
}

func TestImportGLTF(t *testing.T) {
	m := model.New(model.DefaultOptions())
	if err := ImportGLTF(m, cubeDocument()); err != nil {
		t.Fatalf("ImportGLTF failed: %v", err)
	}

	if n := len(m.Geometries()); n != 2 {
		t.Fatalf("expected 2 geometries, got %d", n)
	}
	cube, ok := m.Geometry("mesh0.primitive0")
	if !ok {
		t.Fatal("cube geometry not created")
	}
	if cube.RefCount != 2 {
		t.Errorf("expected cube ref count 2, got %d", cube.RefCount)
	}
	if len(cube.Normals) != len(cube.Positions) {
		t.Errorf("expected generated normals, got %d components", len(cube.Normals))
	}

	rail, ok := m.Geometry("mesh1.primitive0")
	if !ok {
		t.Fatal("rail geometry not created")
	}
	if rail.Kind != model.Lines {
		t.Errorf("expected lines, got %v", rail.Kind)
	}
	if want := []uint32{0, 1, 1, 2}; !reflect.DeepEqual(rail.Indices, want) {
		t.Errorf("expected rail indices %v, got %v", want, rail.Indices)
	}

	if n := len(m.Entities()); n != 3 {
		t.Fatalf("expected 3 entities, got %d", n)
	}
	var generated int
	for _, e := range m.Entities() {
		if _, err := uuid.Parse(e.ID); err == nil {
			generated++
		}
	}
	if generated != 1 {
		t.Errorf("expected 1 generated entity id, got %d", generated)
	}

	ms, ok := m.Mesh("boxA#0")
	if !ok {
		t.Fatal("mesh boxA#0 not created")
	}
	if ms.Matrix[12] != 10 {
		t.Errorf("expected x translation 10, got %v", ms.Matrix[12])
	}
	if ms.Color != [3]uint8{255, 0, 0} || ms.Opacity != 128 {
		t.Errorf("expected red at opacity 128, got %v %d", ms.Color, ms.Opacity)
	}
	if railMesh, _ := m.Mesh("rail#0"); railMesh.Color != [3]uint8{255, 255, 255} {
		t.Errorf("expected default white, got %v", railMesh.Color)
	}

	if n := len(m.MetaObjects()); n != 4 {
		t.Fatalf("expected 4 meta objects, got %d", n)
	}
	group, _ := m.MetaObject("group")
	if group.Type != "group" || group.ParentID != "" {
		t.Errorf("unexpected group meta object %+v", group)
	}
	boxA, _ := m.MetaObject("boxA")
	if boxA.ParentID != "group" {
		t.Errorf("expected boxA parent 'group', got %q", boxA.ParentID)
	}

	if err := m.Finalize(); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if _, err := m.Encode(-1); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
}

func TestImportGLTFBadPrimitive(t *testing.T) {
	build := func() *gltf.Document {
		doc := cubeDocument()
		doc.Meshes = append(doc.Meshes, &gltf.Mesh{
			Primitives: []*gltf.Primitive{{Attributes: map[string]uint32{}}},
		})
		doc.Nodes = append(doc.Nodes, &gltf.Node{Name: "broken", Mesh: gltf.Index(2)})
		doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, 4)
		return doc
	}

	t.Run("skipped", func(t *testing.T) {
		m := model.New(model.DefaultOptions())
		if err := ImportGLTF(m, build()); err != nil {
			t.Fatalf("ImportGLTF failed: %v", err)
		}
		if _, ok := m.Entity("broken"); ok {
			t.Error("expected entity without usable primitives to be skipped")
		}
		if n := len(m.Entities()); n != 3 {
			t.Errorf("expected 3 entities, got %d", n)
		}
	})

	t.Run("strict", func(t *testing.T) {
		opts := model.DefaultOptions()
		opts.Strict = true
		err := ImportGLTF(model.New(opts), build())
		if !errors.Is(err, model.ErrMissingField) {
			t.Errorf("expected ErrMissingField, got %v", err)
		}
	})
}

func TestPrimitiveLists(t *testing.T) {
	tests := []struct {
		name string
		got  []uint32
		want []uint32
	}{
		{"triangles", triangleList(gltf.PrimitiveTriangles, nil, 3), []uint32{0, 1, 2}},
		{"strip", triangleList(gltf.PrimitiveTriangleStrip, []uint32{0, 1, 2, 3}, 4), []uint32{0, 1, 2, 2, 1, 3}},
		{"fan", triangleList(gltf.PrimitiveTriangleFan, nil, 4), []uint32{0, 1, 2, 0, 2, 3}},
		{"lines", lineList(gltf.PrimitiveLines, []uint32{3, 4}, 5), []uint32{3, 4}},
		{"line strip", lineList(gltf.PrimitiveLineStrip, nil, 3), []uint32{0, 1, 1, 2}},
		{"line loop", lineList(gltf.PrimitiveLineLoop, nil, 3), []uint32{0, 1, 1, 2, 2, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !reflect.DeepEqual(tt.got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, tt.got)
			}
		})
	}
}

func TestImportSTL(t *testing.T) {
	// Two triangles of one quad share an edge and a normal.
	quad := &formats.STL{
		Name: "plate",
		Triangles: []formats.STLTriangle{
			{Normal: [3]float32{0, 0, 1}, Vertices: [3][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}}},
			{Vertices: [3][3]float32{{0, 0, 0}, {1, 1, 0}, {0, 1, 0}}},
		},
	}

	m := model.New(model.DefaultOptions())
	if err := ImportSTL(m, quad, ""); err != nil {
		t.Fatalf("ImportSTL failed: %v", err)
	}

	g, ok := m.Geometry("plate.geometry")
	if !ok {
		t.Fatal("geometry not created")
	}
	if g.NumVertices() != 4 {
		t.Errorf("expected 4 welded vertices, got %d", g.NumVertices())
	}
	if len(g.Indices) != 6 {
		t.Errorf("expected 6 indices, got %d", len(g.Indices))
	}
	if _, ok := m.Entity("plate"); !ok {
		t.Error("entity 'plate' not created")
	}
	if mo, ok := m.MetaObject("plate"); !ok || mo.Name != "plate" {
		t.Errorf("unexpected meta object %+v", mo)
	}

	if err := ImportSTL(m, &formats.STL{}, "empty"); !errors.Is(err, model.ErrMissingField) {
		t.Errorf("expected ErrMissingField, got %v", err)
	}
}

func TestMetaModelRoundTrip(t *testing.T) {
	m := model.New(model.DefaultOptions())
	for _, p := range []model.MetaObjectParams{
		{ID: "site", Type: "IfcSite"},
		{ID: "wall", Name: "Wall 1", ParentID: "site"},
	} {
		if _, err := m.CreateMetaObject(p); err != nil {
			t.Fatalf("CreateMetaObject failed: %v", err)
		}
	}

	var buf bytes.Buffer
	if err := WriteMetaModel(&buf, m, "house"); err != nil {
		t.Fatalf("WriteMetaModel failed: %v", err)
	}
	got, err := ReadMetaModel(&buf)
	if err != nil {
		t.Fatalf("ReadMetaModel failed: %v", err)
	}

	want := MetaModel{
		ID: "house",
		MetaObjects: []MetaObject{
			{ID: "site", Name: "site", Type: "IfcSite"},
			{ID: "wall", Name: "Wall 1", Type: "default", Parent: "site"},
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}
