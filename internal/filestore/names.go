package filestore

import (
	"encoding/hex"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/vbonduro/dreamspace/internal/domain"
)

var (
	unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

	uploadExtensions = map[string]bool{
		".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true,
	}
)

// GeneratedName names a rendered output artifact.
func GeneratedName() string {
	return "generated_" + shortHex() + ".png"
}

// FurnitureName names a single-piece furniture render.
func FurnitureName() string {
	return "furniture_" + shortHex() + ".png"
}

// CanvasName names the debug copy of a submitted canvas.
func CanvasName() string {
	return "canvas_" + shortHex() + ".png"
}

// UploadName returns "<uuid-hex>_<sanitized original>" for an uploaded photo,
// rejecting file types other than png, jpg, jpeg, gif and bmp.
func UploadName(original string) (string, error) {
	clean := SanitizeFilename(original)
	if !uploadExtensions[strings.ToLower(filepath.Ext(clean))] {
		return "", domain.Invalid("unsupported file type %q", original)
	}
	id := uuid.New()
	return hex.EncodeToString(id[:]) + "_" + clean, nil
}

// SanitizeFilename reduces name to a single safe path component made of ASCII
// letters, digits, '_', '.' and '-'.
func SanitizeFilename(name string) string {
	name = strings.NewReplacer("/", " ", "\\", " ").Replace(name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeChars.ReplaceAllString(name, "")
	return strings.Trim(name, "._")
}

func shortHex() string {
	id := uuid.New()
	return hex.EncodeToString(id[:4])
}
