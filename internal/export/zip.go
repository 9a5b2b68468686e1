// Package export packages fetched parcel pages for download: a zip of
// GML pages with a checksum manifest, a merged GeoJSON document, a pure
// ASCII DXF writer, and an external converter contract for the formats
// that need GDAL.
package export

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zip"
	"github.com/zeebo/blake3"
)

// GMLZip writes pages as parcely_<zone>/in_NNN.gml entries plus a
// manifest listing each entry's BLAKE3 digest, so a consumer can verify
// pages survived the trip intact.
func GMLZip(w io.Writer, zone string, pages [][]byte) error {
	if len(pages) == 0 {
		return fmt.Errorf("no pages to package")
	}
	zw := zip.NewWriter(w)
	dir := "parcely_" + zone

	manifest := make([]byte, 0, len(pages)*80)
	for i, page := range pages {
		name := fmt.Sprintf("%s/in_%03d.gml", dir, i+1)
		f, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("zip entry %s: %w", name, err)
		}
		if _, err := f.Write(page); err != nil {
			return fmt.Errorf("zip write %s: %w", name, err)
		}
		sum := blake3.Sum256(page)
		manifest = fmt.Appendf(manifest, "%x  in_%03d.gml\n", sum, i+1)
	}

	mf, err := zw.Create(dir + "/manifest.b3sums")
	if err != nil {
		return fmt.Errorf("zip manifest: %w", err)
	}
	if _, err := mf.Write(manifest); err != nil {
		return fmt.Errorf("zip manifest write: %w", err)
	}
	return zw.Close()
}
