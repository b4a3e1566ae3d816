package driver

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"borrowck/internal/ir"
)

const (
	// ExtJSON is the readable wire form of a unit.
	ExtJSON = ".unit.json"
	// ExtMsgpack is the compact binary wire form.
	ExtMsgpack = ".unit.msgpack"
)

// IsUnitFile reports whether path carries one of the unit extensions.
func IsUnitFile(path string) bool {
	return strings.HasSuffix(path, ExtJSON) || strings.HasSuffix(path, ExtMsgpack)
}

// LoadUnitFile reads and decodes a unit from disk, dispatching on the
// extension. The raw bytes are returned for hashing by the result cache.
func LoadUnitFile(path string) (*ir.Unit, []byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read unit %q: %w", path, err)
	}
	var unit *ir.Unit
	switch {
	case strings.HasSuffix(path, ExtMsgpack):
		unit, err = ir.FromMsgpack(raw)
	case strings.HasSuffix(path, ExtJSON):
		unit, err = ir.FromJSON(raw)
	default:
		return nil, nil, fmt.Errorf("unrecognized unit extension on %q", path)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	if unit.Name == "" {
		unit.Name = unitNameFromPath(path)
	}
	return unit, raw, nil
}

// listUnitFiles возвращает отсортированный список всех unit-файлов в директории
func listUnitFiles(dir string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && IsUnitFile(path) {
			files = append(files, path)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	// Сортируем для детерминированного порядка
	sort.Strings(files)
	return files, nil
}

func unitNameFromPath(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, ExtJSON)
	base = strings.TrimSuffix(base, ExtMsgpack)
	return base
}
