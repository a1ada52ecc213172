package constants

import (
	"path/filepath"
	"strings"
)

// Source kinds understood by the document pipeline.
const (
	PDF   = "PDF"
	IMAGE = "IMAGE"
	TEXT  = "TEXT"
)

// MaxUploadMBDefault caps a single uploaded document.
const MaxUploadMBDefault = 50

// TargetDPI is the raster resolution used for every OCR page.
const TargetDPI = 300

// A4 page size in pixels at TargetDPI.
const (
	PageWidthPx  = 2480
	PageHeightPx = 3508
)

// AllowedMIMETypes maps accepted upload MIME types to a source kind.
var AllowedMIMETypes = map[string]string{
	"application/pdf": PDF,
	"image/jpeg":      IMAGE,
	"image/png":       IMAGE,
}

// AllowedExtensions holds the file extensions accepted from the CLI.
var AllowedExtensions = map[string]string{
	"pdf":  "application/pdf",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// NormalizeMIME drops parameters (e.g. "; charset=") and lowercases.
func NormalizeMIME(mt string) string {
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

// KindForMIME returns the source kind for an accepted MIME type, or "".
func KindForMIME(mt string) string {
	return AllowedMIMETypes[NormalizeMIME(mt)]
}

// MIMEForPath guesses the MIME type from a file name; "" when unsupported.
func MIMEForPath(path string) string {
	return AllowedExtensions[NormalizeExt(filepath.Ext(path))]
}
