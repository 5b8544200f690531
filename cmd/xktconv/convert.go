package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Faultbox/xktconv/internal/config"
	"github.com/Faultbox/xktconv/internal/importer"
	"github.com/Faultbox/xktconv/internal/logger"
	"github.com/Faultbox/xktconv/internal/model"
	"github.com/Faultbox/xktconv/internal/validate"
)

// modelOptions maps the conversion settings onto model options.
func modelOptions(cfg *config.Config) model.Options {
	return model.Options{
		MaxKDTreeDepth: cfg.Conversion.MaxKDTreeDepth,
		MinTileSize:    cfg.Conversion.MinTileSize,
		EdgeThreshold:  cfg.Conversion.EdgeThreshold,
		Strict:         cfg.Conversion.Strict,
	}
}

// loadModel imports a .gltf, .glb or .stl file and finalizes it.
func loadModel(cfg *config.Config, path string) (*model.Model, error) {
	m := model.New(modelOptions(cfg))

	var err error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".gltf", ".glb":
		err = importer.LoadGLTF(m, path)
	case ".stl":
		err = importer.LoadSTL(m, path, baseName(path))
	default:
		return nil, errors.Errorf("unsupported input format %q", ext)
	}
	if err != nil {
		return nil, err
	}

	if err := m.Finalize(); err != nil {
		return nil, errors.Wrap(err, "finalizing model")
	}
	return m, nil
}

// convert writes in as an XKT container to out, and optionally validates it
// and writes the metadata sidecar.
func convert(cfg *config.Config, in, out string) (model.Stats, error) {
	m, err := loadModel(cfg, in)
	if err != nil {
		return model.Stats{}, err
	}

	buf, err := m.Encode(cfg.Output.CompressionLevel)
	if err != nil {
		return model.Stats{}, errors.Wrap(err, "encoding container")
	}
	if err := os.WriteFile(out, buf, 0644); err != nil {
		return model.Stats{}, errors.Wrap(err, "writing container")
	}
	logger.Info("wrote container", zap.String("path", out), zap.Int("bytes", len(buf)))

	if cfg.Output.Validate {
		if err := validate.Validate(m, buf); err != nil {
			return m.Stats(), errors.Wrap(err, "validating container")
		}
		logger.Info("container validated", zap.String("path", out))
	}

	if cfg.Output.MetaModel {
		path := metaPath(out)
		if err := writeMetaModel(m, path, baseName(in)); err != nil {
			return m.Stats(), err
		}
		logger.Info("wrote meta model", zap.String("path", path))
	}
	return m.Stats(), nil
}

func writeMetaModel(m *model.Model, path, id string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating meta model")
	}
	if err := importer.WriteMetaModel(f, m, id); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// metaPath returns out with its extension replaced by .json.
func metaPath(out string) string {
	return strings.TrimSuffix(out, filepath.Ext(out)) + ".json"
}

// baseName returns the file name without extension. Bytes that are not UTF-8
// become '_' so the name can serve as an entity id.
func baseName(path string) string {
	return strings.ToValidUTF8(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), "_")
}
