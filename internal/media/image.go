package media

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strconv"

	"github.com/gabriel-vasile/mimetype"
)

// allowedFormats maps sniffed content types to the stored extension.
var allowedFormats = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

type sniffed struct {
	contentType string
	format      string
	width       int
	height      int
}

// sniff trusts the bytes, never the client-supplied filename or header.
func sniff(data []byte) (sniffed, bool) {
	mt := mimetype.Detect(data)
	for m := mt; m != nil; m = m.Parent() {
		if ext, ok := allowedFormats[m.String()]; ok {
			out := sniffed{contentType: m.String(), format: ext}
			// webp has no stdlib decoder; dimensions stay zero.
			if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
				out.width, out.height = cfg.Width, cfg.Height
			}
			return out, true
		}
	}
	return sniffed{}, false
}

func humanBytes(n int64) string {
	const mib = 1 << 20
	if n%mib == 0 {
		return fmt.Sprintf("%dMB", n/mib)
	}
	return fmt.Sprintf("%d bytes", n)
}

func itoa(n int) string { return strconv.Itoa(n) }
