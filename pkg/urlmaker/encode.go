package urlmaker

import (
	"bytes"
	"compress/flate"
	"encoding/base64"
	"fmt"
	"io"
)

// alphabet is the base64 variant rendering servers expect in URLs.
const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-_"

var encoding = base64.NewEncoding(alphabet).WithPadding(base64.NoPadding)

// Encode compresses diagram text with raw deflate and encodes it for use in a URL path.
func Encode(text string) (string, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return "", fmt.Errorf("failed to create deflate writer: %w", err)
	}
	if _, err := io.WriteString(w, text); err != nil {
		return "", fmt.Errorf("failed to deflate diagram: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to deflate diagram: %w", err)
	}
	return encoding.EncodeToString(buf.Bytes()), nil
}

// Decode is the inverse of Encode.
func Decode(encoded string) (string, error) {
	raw, err := encoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("invalid encoded diagram: %w", err)
	}
	r := flate.NewReader(bytes.NewReader(raw))
	defer r.Close()

	text, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to inflate diagram: %w", err)
	}
	return string(text), nil
}
