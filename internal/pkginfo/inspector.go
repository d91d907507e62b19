// Package pkginfo resolves package identifiers to install-time metadata:
// package type, installed root path, resource type, and resource version.
// It is the read-only boundary to the host package manager's database,
// modeled here as one YAML info file per package.
package pkginfo

import (
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

// TypeRPK is the package type whose packages bundle a registry manifest.
const TypeRPK = "rpk"

// Inspector answers metadata queries for installed packages. Any failure
// is structural for the caller: without metadata no ingestion can run.
type Inspector interface {
	PackageType(pkgID string) (string, error)
	RootPath(pkgID string) (string, error)
	ResourceType(pkgID string) (string, error)
	ResourceVersion(pkgID string) (string, error)
}

// Info is the on-disk record for one installed package.
type Info struct {
	Type       string `yaml:"type"`
	RootPath   string `yaml:"root_path"`
	ResType    string `yaml:"res_type"`
	ResVersion string `yaml:"res_version"`
}

// DirInspector reads package info files from a directory, one
// <pkgid>.yaml per package.
type DirInspector struct {
	root string
}

// NewDirInspector returns an inspector over the given info directory.
func NewDirInspector(root string) *DirInspector {
	return &DirInspector{root: root}
}

// Load reads the full info record for a package.
func (d *DirInspector) Load(pkgID string) (*Info, error) {
	path := filepath.Join(d.root, pkgID+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading package info for %s: %w", pkgID, err)
	}

	var info Info
	if err := yaml.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parsing package info for %s: %w", pkgID, err)
	}
	return &info, nil
}

func (d *DirInspector) PackageType(pkgID string) (string, error) {
	info, err := d.Load(pkgID)
	if err != nil {
		return "", err
	}
	return info.Type, nil
}

func (d *DirInspector) RootPath(pkgID string) (string, error) {
	info, err := d.Load(pkgID)
	if err != nil {
		return "", err
	}
	return info.RootPath, nil
}

func (d *DirInspector) ResourceType(pkgID string) (string, error) {
	info, err := d.Load(pkgID)
	if err != nil {
		return "", err
	}
	return info.ResType, nil
}

func (d *DirInspector) ResourceVersion(pkgID string) (string, error) {
	info, err := d.Load(pkgID)
	if err != nil {
		return "", err
	}
	return info.ResVersion, nil
}
