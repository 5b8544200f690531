package importer

import (
	"io"

	"github.com/Faultbox/xktconv/internal/model"
	json "github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// MetaModel is the JSON sidecar describing the object hierarchy of a model.
type MetaModel struct {
	ID          string       `json:"id,omitempty"`
	MetaObjects []MetaObject `json:"metaObjects"`
}

// MetaObject is one entry of the sidecar.
type MetaObject struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Parent string `json:"parent,omitempty"`
}

// BuildMetaModel collects the meta objects of m in creation order.
func BuildMetaModel(m *model.Model, id string) MetaModel {
	out := MetaModel{ID: id, MetaObjects: make([]MetaObject, 0, len(m.MetaObjects()))}
	for _, mo := range m.MetaObjects() {
		out.MetaObjects = append(out.MetaObjects, MetaObject{
			ID:     mo.ID,
			Name:   mo.Name,
			Type:   mo.Type,
			Parent: mo.ParentID,
		})
	}
	return out
}

// WriteMetaModel writes the meta objects of m as indented JSON.
func WriteMetaModel(w io.Writer, m *model.Model, id string) error {
	data, err := json.MarshalIndent(BuildMetaModel(m, id), "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal meta model")
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return errors.Wrap(err, "failed to write meta model")
	}
	return nil
}

// ReadMetaModel parses a sidecar written by WriteMetaModel.
func ReadMetaModel(r io.Reader) (MetaModel, error) {
	var mm MetaModel
	if err := json.NewDecoder(r).Decode(&mm); err != nil {
		return mm, errors.Wrap(err, "failed to parse meta model")
	}
	return mm, nil
}
