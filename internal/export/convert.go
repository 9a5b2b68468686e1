package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrConverterUnavailable means no GDAL toolchain was found; callers fall
// back to the built-in GeoJSON and DXF writers.
var ErrConverterUnavailable = errors.New("converter unavailable")

// Converter turns fetched GML pages into another vector format.
type Converter interface {
	Convert(ctx context.Context, pages [][]byte, format Format) ([]byte, error)
}

type Format struct {
	// Driver is the OGR driver name, e.g. "GPKG" or "ESRI Shapefile".
	Driver string
	Ext    string
	MIME   string
}

var (
	FormatGPKG = Format{Driver: "GPKG", Ext: ".gpkg", MIME: "application/geopackage+sqlite3"}
	FormatDXF  = Format{Driver: "DXF", Ext: ".dxf", MIME: "application/dxf"}
	FormatKML  = Format{Driver: "KML", Ext: ".kml", MIME: "application/vnd.google-earth.kml+xml"}
)

// OGRConverter shells out to ogr2ogr. Pages are merged into a GeoPackage
// first; appending GML pages directly to single-file formats is not
// reliable across GDAL versions.
type OGRConverter struct {
	path string
	env  []string
}

// NewOGRConverter resolves the ogr2ogr binary. An explicit path wins;
// otherwise PATH is searched. GDAL_DATA is probed from well known
// locations when unset.
func NewOGRConverter(path string) (*OGRConverter, error) {
	if path == "" {
		path = "ogr2ogr"
	}
	if !strings.ContainsRune(path, os.PathSeparator) {
		found, err := exec.LookPath(path)
		if err != nil {
			return nil, ErrConverterUnavailable
		}
		path = found
	} else if _, err := os.Stat(path); err != nil {
		return nil, ErrConverterUnavailable
	}

	env := os.Environ()
	if os.Getenv("GDAL_DATA") == "" {
		if dir := findGDALData(); dir != "" {
			env = append(env, "GDAL_DATA="+dir)
		}
	}
	return &OGRConverter{path: path, env: env}, nil
}

func findGDALData() string {
	candidates := []string{
		"/usr/share/gdal",
		"/usr/share/gdal/3.6",
		"/usr/share/gdal/3.5",
		"/usr/share/gdal/3.4",
		"/usr/local/share/gdal",
	}
	for _, p := range candidates {
		if st, err := os.Stat(p); err == nil && st.IsDir() {
			return p
		}
	}
	return ""
}

func (c *OGRConverter) Convert(ctx context.Context, pages [][]byte, format Format) ([]byte, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("no pages to convert")
	}

	td, err := os.MkdirTemp("", "parcelone-convert-*")
	if err != nil {
		return nil, fmt.Errorf("tempdir: %w", err)
	}
	defer os.RemoveAll(td)

	gmlPaths := make([]string, 0, len(pages))
	for i, page := range pages {
		p := filepath.Join(td, fmt.Sprintf("in_%03d.gml", i+1))
		if err := os.WriteFile(p, page, 0o644); err != nil {
			return nil, fmt.Errorf("write page %d: %w", i+1, err)
		}
		gmlPaths = append(gmlPaths, p)
	}

	const layer = "parcely"
	merged := filepath.Join(td, "merge.gpkg")
	if err := c.run(ctx, "-f", "GPKG", "-nln", layer, "-nlt", "MULTIPOLYGON", "-explodecollections", merged, gmlPaths[0]); err != nil {
		return nil, err
	}
	for _, p := range gmlPaths[1:] {
		// a page that will not append is skipped, matching the lenient
		// page accumulator upstream
		_ = c.run(ctx, "-f", "GPKG", "-nln", layer, "-nlt", "MULTIPOLYGON", "-explodecollections", "-append", merged, p)
	}

	out := filepath.Join(td, "parcely"+format.Ext)
	if format.Driver == "GPKG" {
		out = merged
	} else if err := c.run(ctx, "-f", format.Driver, "-nln", layer, out, merged); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}
	return data, nil
}

// run surfaces ogr2ogr's stderr; GDAL's failure modes are only legible
// from its own diagnostics.
func (c *OGRConverter) run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, c.path, args...)
	cmd.Env = c.env
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return fmt.Errorf("ogr2ogr failed: %s", msg)
	}
	return nil
}
