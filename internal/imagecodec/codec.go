// Package imagecodec converts image payloads between data URLs and raw
// base64 strings.
package imagecodec

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

const (
	dataPrefix   = "data:"
	base64Marker = ";base64,"
	// DefaultMIME is assumed when a payload carries no type information.
	DefaultMIME = "image/png"
)

// ToRawPayload strips a data URL prefix and returns the base64 data and its
// MIME type. Inputs without a well-formed prefix are returned unchanged with
// an empty MIME type.
func ToRawPayload(encoded string) (string, string) {
	if !strings.HasPrefix(encoded, dataPrefix) {
		return encoded, ""
	}
	idx := strings.Index(encoded, base64Marker)
	if idx < 0 {
		return encoded, ""
	}
	mime := encoded[len(dataPrefix):idx]
	return encoded[idx+len(base64Marker):], mime
}

// ToDataURL composes a data URL. Payloads that are already data URLs are
// returned as is.
func ToDataURL(data, mimeType string) string {
	if IsDataURL(data) {
		return data
	}
	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" {
		mimeType = DefaultMIME
	}
	return dataPrefix + mimeType + base64Marker + data
}

// IsDataURL reports whether s carries a base64 data URL prefix.
func IsDataURL(s string) bool {
	return strings.HasPrefix(s, dataPrefix) && strings.Contains(s, base64Marker)
}

// MIMEOf returns the MIME type of a data URL, or fallback for raw payloads.
func MIMEOf(encoded, fallback string) string {
	if _, mime := ToRawPayload(encoded); mime != "" {
		return mime
	}
	return fallback
}

// FromBytes encodes raw image bytes as a data URL, sniffing the MIME type.
func FromBytes(raw []byte) (string, string) {
	mime := http.DetectContentType(raw)
	if idx := strings.Index(mime, ";"); idx >= 0 {
		mime = mime[:idx]
	}
	if !strings.HasPrefix(mime, "image/") {
		mime = DefaultMIME
	}
	return ToDataURL(base64.StdEncoding.EncodeToString(raw), mime), mime
}

// Decode returns the binary content of a data URL or raw base64 payload.
func Decode(encoded string) ([]byte, string, error) {
	data, mime := ToRawPayload(encoded)
	blob, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, "", fmt.Errorf("imagecodec: decode payload: %w", err)
	}
	if mime == "" {
		mime = DefaultMIME
	}
	return blob, mime, nil
}

// Extension maps an image MIME type to a file extension.
func Extension(mime string) string {
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}
