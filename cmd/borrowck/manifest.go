package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const noBorrowckTomlMessage = "no borrowck.toml found\nplease specify the unit path explicitly, e.g.:\n  borrowck check path/to/units"

type projectManifest struct {
	Path   string
	Root   string
	Config projectConfig
}

type projectConfig struct {
	Project projectSection `toml:"project"`
	Check   checkSection   `toml:"check"`
}

type projectSection struct {
	Name string `toml:"name"`
}

type checkSection struct {
	// Units is the file or directory to analyze, relative to the manifest.
	Units          string `toml:"units"`
	Precise        bool   `toml:"precise"`
	MaxStatements  int    `toml:"max_statements"`
	MaxDiagnostics int    `toml:"max_diagnostics"`
	Jobs           int    `toml:"jobs"`
	Format         string `toml:"format"`
	Cache          bool   `toml:"cache"`
}

func findBorrowckToml(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, "borrowck.toml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

func loadProjectManifest(startDir string) (*projectManifest, bool, error) {
	manifestPath, ok, err := findBorrowckToml(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	cfg, err := loadProjectConfig(manifestPath)
	if err != nil {
		return nil, true, err
	}
	return &projectManifest{
		Path:   manifestPath,
		Root:   filepath.Dir(manifestPath),
		Config: cfg,
	}, true, nil
}

func loadProjectConfig(path string) (projectConfig, error) {
	var cfg projectConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return projectConfig{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("project") {
		return projectConfig{}, fmt.Errorf("%s: missing [project]", path)
	}
	if !meta.IsDefined("project", "name") || strings.TrimSpace(cfg.Project.Name) == "" {
		return projectConfig{}, fmt.Errorf("%s: missing [project].name", path)
	}
	return cfg, nil
}

// resolveCheckTarget returns the path to analyze: the explicit argument wins,
// otherwise [check].units from the manifest resolved against its root.
func resolveCheckTarget(arg string, manifest *projectManifest) (string, error) {
	if arg != "" {
		return arg, nil
	}
	if manifest == nil {
		return "", errors.New(noBorrowckTomlMessage)
	}
	units := strings.TrimSpace(manifest.Config.Check.Units)
	if units == "" {
		return "", fmt.Errorf("%s: missing [check].units and no path argument given", manifest.Path)
	}
	target := filepath.Join(manifest.Root, filepath.FromSlash(units))
	if _, err := os.Stat(target); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%s: [check].units path does not exist: %s", manifest.Path, target)
		}
		return "", fmt.Errorf("%s: failed to stat [check].units: %w", manifest.Path, err)
	}
	return target, nil
}
