package imagegen

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestMIMETypeForExt(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{".png", MIMEPNG},
		{".PNG", MIMEPNG},
		{"png", MIMEPNG},
		{".webp", MIMEWebP},
		{".jpg", MIMEJPEG},
		{".jpeg", MIMEJPEG},
		{".gif", MIMEJPEG},
		{"", MIMEJPEG},
	}
	for _, tt := range tests {
		if got := MIMETypeForExt(tt.ext); got != tt.want {
			t.Fatalf("MIMETypeForExt(%q) = %q, want %q", tt.ext, got, tt.want)
		}
	}
}

func TestEncodePayloadBuildsDataURI(t *testing.T) {
	data := []byte{0x89, 'P', 'N', 'G', 0x00, 0xff}
	payload := EncodePayload(data, ".png")

	prefix := "data:image/png;base64,"
	if !strings.HasPrefix(payload.DataURI, prefix) {
		t.Fatalf("data uri prefix mismatch: %q", payload.DataURI)
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(payload.DataURI, prefix))
	if err != nil {
		t.Fatalf("payload not base64: %v", err)
	}
	if string(decoded) != string(data) {
		t.Fatalf("decoded bytes mismatch")
	}
	if payload.Size != len(data) {
		t.Fatalf("size = %d, want %d", payload.Size, len(data))
	}
}

func TestEncodeKeyUsesKeyExtension(t *testing.T) {
	if got := EncodeKey("uploads/abc.webp", []byte("x")).MIMEType; got != MIMEWebP {
		t.Fatalf("mime = %q, want %q", got, MIMEWebP)
	}
	if got := EncodeKey("abc", []byte("x")).MIMEType; got != MIMEJPEG {
		t.Fatalf("mime = %q, want %q", got, MIMEJPEG)
	}
}

func TestExtensionForContentType(t *testing.T) {
	if ext := ExtensionForContentType("image/jpg"); ext != ".jpg" {
		t.Fatalf("ext = %q, want .jpg", ext)
	}
	if ext := ExtensionForContentType("image/gif"); ext != "" {
		t.Fatalf("ext = %q, want empty", ext)
	}
}
