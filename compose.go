package imagestudio

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrEmptyImageData is returned when an uploaded blob decodes to nothing.
var ErrEmptyImageData = errors.New("image data cannot be empty")

var (
	magicPNG  = []byte{0x89, 'P', 'N', 'G'}
	magicJPEG = []byte{0xFF, 0xD8, 0xFF}
	magicGIF  = []byte("GIF8")
)

// Compose validates req and builds the ordered parts for the model: one
// ImagePart per decodable uploaded image (image modes only, input order kept),
// then exactly one TextPart with the prompt.
//
// A blob that fails to decode is logged and dropped; it never fails the request.
func Compose(req GenerationRequest, logger *slog.Logger) ([]ContentPart, error) {
	if err := ValidatePrompt(req.Prompt); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	parts := make([]ContentPart, 0, len(req.UploadedImages)+1)

	if req.Mode.UsesImages() {
		for i, blob := range req.UploadedImages {
			img, err := DecodeImage(blob)
			if err != nil {
				logger.Warn("skipping uploaded image",
					"index", i,
					"mode", req.Mode.String(),
					"error", err.Error(),
				)
				continue
			}
			parts = append(parts, img)
		}
	}

	parts = append(parts, TextPart{Text: req.Prompt})
	return parts, nil
}

// DecodeImage turns an uploaded base64 blob into an ImagePart with a sniffed MIME type.
func DecodeImage(blob string) (ImagePart, error) {
	data, err := decodeBase64(StripDataURIPrefix(blob))
	if err != nil {
		return ImagePart{}, fmt.Errorf("invalid base64: %w", err)
	}
	if len(data) == 0 {
		return ImagePart{}, ErrEmptyImageData
	}
	return ImagePart{
		Data:     data,
		MIMEType: SniffImageMIME(data),
	}, nil
}

// StripDataURIPrefix drops everything up to and including the first comma,
// e.g. "data:image/png;base64,".
func StripDataURIPrefix(value string) string {
	if idx := strings.IndexByte(value, ','); idx >= 0 {
		return value[idx+1:]
	}
	return value
}

// SniffImageMIME detects PNG, JPEG and GIF from magic bytes and falls back to PNG.
func SniffImageMIME(data []byte) string {
	switch {
	case bytes.HasPrefix(data, magicPNG):
		return "image/png"
	case bytes.HasPrefix(data, magicJPEG):
		return "image/jpeg"
	case bytes.HasPrefix(data, magicGIF):
		return "image/gif"
	default:
		return "image/png"
	}
}

// ImagesBeforeText reports whether parts is a run of ImageParts followed by
// exactly one trailing TextPart.
func ImagesBeforeText(parts []ContentPart) bool {
	if len(parts) == 0 {
		return false
	}
	if _, ok := parts[len(parts)-1].(TextPart); !ok {
		return false
	}
	for _, p := range parts[:len(parts)-1] {
		if _, ok := p.(ImagePart); !ok {
			return false
		}
	}
	return true
}

// decodeBase64 accepts padded or unpadded standard base64 with embedded whitespace.
func decodeBase64(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, s)

	data, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return data, nil
	}
	if raw, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "=")); rawErr == nil {
		return raw, nil
	}
	return nil, err
}
