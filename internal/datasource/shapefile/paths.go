// Package shapefile reads the files of an ESRI shapefile: the .shp
// records and .dbf rows through github.com/jonas-p/go-shp's sequential
// reader, and the .shx index for record count and stream position. Every
// file is opened by its resolved path, so extension case is preserved.
package shapefile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// MissingCompanionFileError reports a sibling file (.shx or .dbf) that is
// not next to the .shp file. It matches fs.ErrNotExist with errors.Is.
type MissingCompanionFileError struct {
	Path string
}

func (e *MissingCompanionFileError) Error() string {
	return fmt.Sprintf("shapefile: missing companion file %s", e.Path)
}

func (e *MissingCompanionFileError) Unwrap() error { return fs.ErrNotExist }

// Paths are the files making up one shapefile.
type Paths struct {
	Shp string
	Shx string
	Dbf string
}

// Base returns the shared path without extension.
func (p Paths) Base() string {
	return strings.TrimSuffix(p.Shp, filepath.Ext(p.Shp))
}

// Resolve locates the .shp file and its companions.
//
// Behavior:
//   - path may name the .shp file (any extension case) or the shared base
//     path without extension.
//   - The .shx and .dbf companions may use either extension case.
//   - A missing companion is reported as *MissingCompanionFileError; a
//     missing .shp keeps the underlying fs error.
func Resolve(path string) (Paths, error) {
	var p Paths
	if strings.EqualFold(filepath.Ext(path), ".shp") {
		p.Shp = path
	} else {
		p.Shp = path + ".shp"
	}
	if _, err := os.Stat(p.Shp); err != nil {
		return Paths{}, fmt.Errorf("shapefile: %w", err)
	}
	base := p.Base()

	shx, err := companion(base, ".shx")
	if err != nil {
		return Paths{}, err
	}
	p.Shx = shx

	dbf, err := companion(base, ".dbf")
	if err != nil {
		return Paths{}, err
	}
	p.Dbf = dbf
	return p, nil
}

func companion(base, ext string) (string, error) {
	for _, candidate := range []string{base + ext, base + strings.ToUpper(ext)} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("shapefile: %w", err)
		}
	}
	return "", &MissingCompanionFileError{Path: base + ext}
}
