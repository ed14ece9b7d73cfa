package imagegen

import (
	"encoding/base64"
	"path/filepath"
	"strings"
)

const (
	MIMEJPEG = "image/jpeg"
	MIMEPNG  = "image/png"
	MIMEWebP = "image/webp"
)

// Payload is a self-describing inline image ready for a provider request.
//
// The whole image travels base64 encoded inside the request body, which saves
// a round trip through object storage but caps usable image size at whatever
// the provider accepts for a single JSON request. Uploads are bounded by
// MAX_UPLOAD_BYTES for that reason.
type Payload struct {
	MIMEType string
	DataURI  string
	Size     int
}

// MIMETypeForExt maps a file extension to the MIME type sent to providers.
// Only png and webp are recognised; everything else is declared as jpeg.
func MIMETypeForExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	switch ext {
	case ".png":
		return MIMEPNG
	case ".webp":
		return MIMEWebP
	default:
		return MIMEJPEG
	}
}

// EncodePayload wraps raw image bytes into a data URI.
func EncodePayload(data []byte, ext string) Payload {
	mime := MIMETypeForExt(ext)
	var b strings.Builder
	b.Grow(len("data:;base64,") + len(mime) + base64.StdEncoding.EncodedLen(len(data)))
	b.WriteString("data:")
	b.WriteString(mime)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	return Payload{MIMEType: mime, DataURI: b.String(), Size: len(data)}
}

// EncodeKey encodes an asset using the extension of its storage key.
func EncodeKey(key string, data []byte) Payload {
	return EncodePayload(data, filepath.Ext(key))
}

// ExtensionForContentType returns the file extension used when storing an
// upload of the given content type.
func ExtensionForContentType(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	default:
		return ""
	}
}
