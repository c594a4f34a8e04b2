package capture

import (
	"encoding/base64"
	"errors"
	"strings"
)

// Segment is one raster capture of a page slice.
type Segment struct {
	Image   []byte
	OffsetY int
	Width   int
	Height  int
}

// Image is an encoded raster with its MIME type, e.g. "image/jpeg".
type Image struct {
	Data []byte
	MIME string
}

// Format returns the subtype of the MIME type ("jpeg", "png").
func (i Image) Format() string {
	_, sub, found := strings.Cut(i.MIME, "/")
	if !found {
		return ""
	}
	return sub
}

// DataURI renders the image as data:image/<format>;base64,<payload>.
func (i Image) DataURI() string {
	var sb strings.Builder
	sb.Grow(len(i.MIME) + 13 + base64.StdEncoding.EncodedLen(len(i.Data)))
	sb.WriteString("data:")
	sb.WriteString(i.MIME)
	sb.WriteString(";base64,")
	sb.WriteString(base64.StdEncoding.EncodeToString(i.Data))
	return sb.String()
}

// ParseDataURI decodes a base64 data URI produced by DataURI.
func ParseDataURI(uri string) (Image, error) {
	header, payload, found := strings.Cut(uri, ",")
	if !found {
		return Image{}, errors.New("invalid data uri: missing payload")
	}
	header, ok := strings.CutPrefix(header, "data:")
	if !ok {
		return Image{}, errors.New("invalid data uri: missing data: prefix")
	}
	mime, ok := strings.CutSuffix(header, ";base64")
	if !ok {
		return Image{}, errors.New("invalid data uri: not base64")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Image{}, err
	}
	return Image{Data: data, MIME: mime}, nil
}
