package model

// MetaObject is a node of the metadata hierarchy. Meta objects attach to
// entities by sharing their id and take no part in tiling or packing.
type MetaObject struct {
	ID       string
	Name     string
	Type     string
	ParentID string
}

// MetaObjectParams describes a meta object to create.
type MetaObjectParams struct {
	ID       string
	Name     string
	Type     string
	ParentID string // Optional; may name an object created later
}

// CreateMetaObject adds a metadata object. Names default to the id and types
// to "default".
func (m *Model) CreateMetaObject(p MetaObjectParams) (*MetaObject, error) {
	if p.ID == "" {
		return nil, errorf(ErrMissingField, "meta object id")
	}
	if _, exists := m.metaObjectIDs[p.ID]; exists {
		return nil, errorf(ErrInvalidState, "meta object %q already exists", p.ID)
	}

	mo := &MetaObject{
		ID:       p.ID,
		Name:     p.Name,
		Type:     p.Type,
		ParentID: p.ParentID,
	}
	if mo.Name == "" {
		mo.Name = mo.ID
	}
	if mo.Type == "" {
		mo.Type = "default"
	}

	m.metaObjectIDs[mo.ID] = len(m.metaObjects)
	m.metaObjects = append(m.metaObjects, mo)
	return mo, nil
}

// MetaObject looks up a meta object by id.
func (m *Model) MetaObject(id string) (*MetaObject, bool) {
	i, ok := m.metaObjectIDs[id]
	if !ok {
		return nil, false
	}
	return m.metaObjects[i], true
}
