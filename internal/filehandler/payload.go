package filehandler

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"regexp"
	"strings"
)

// CaptureJPEGQuality is the fixed quality factor for captured stills.
const CaptureJPEGQuality = 95

// captureDataURIPrefix matches the prefix a rasterized capture carries.
var captureDataURIPrefix = regexp.MustCompile(`^data:image/(png|jpeg|jpg);base64,`)

// ErrInvalidDataURI is returned when a string is not a base64 data URI.
var ErrInvalidDataURI = errors.New("invalid data URI")

// Payload is an encoded image.
type Payload struct {
	MIMEType string
	Data     []byte
}

// Empty reports whether the payload carries no bytes.
func (p Payload) Empty() bool {
	return len(p.Data) == 0
}

// DataURI renders the payload as "data:<mime>;base64,<data>".
func (p Payload) DataURI() string {
	return "data:" + p.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(p.Data)
}

// StripCaptureDataURIPrefix removes a leading data:image/(png|jpeg|jpg);base64,
// prefix. Anything else is returned unchanged.
func StripCaptureDataURIPrefix(s string) string {
	return captureDataURIPrefix.ReplaceAllString(s, "")
}

// ParseDataURI decodes "data:<mime>;base64,<data>" into a Payload.
func ParseDataURI(s string) (Payload, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return Payload{}, fmt.Errorf("%w: missing data: scheme", ErrInvalidDataURI)
	}
	meta, data, ok := strings.Cut(rest, ",")
	if !ok {
		return Payload{}, fmt.Errorf("%w: missing comma", ErrInvalidDataURI)
	}
	mime, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return Payload{}, fmt.Errorf("%w: only base64 data URIs are supported", ErrInvalidDataURI)
	}
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	return Payload{MIMEType: mime, Data: decoded}, nil
}

// EncodeJPEG encodes img as a JPEG payload at the given quality.
func EncodeJPEG(img image.Image, quality int) (Payload, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return Payload{}, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return Payload{MIMEType: "image/jpeg", Data: buf.Bytes()}, nil
}
