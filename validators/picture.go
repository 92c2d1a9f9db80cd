package validators

import (
	"encoding/base64"
	"errors"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrPictureEmpty       = errors.New("profile picture is required")
	ErrPictureEncoding    = errors.New("profile picture must be base64 encoded")
	ErrPictureTooLarge    = errors.New("profile picture is too large")
	ErrPictureUnsupported = errors.New("profile picture must be an image")
)

// Picture is a decoded, type checked profile picture
type Picture struct {
	Data []byte
	MIME *mimetype.MIME
}

// PictureValidator decodes a profile picture sent either as a data URI
// (data:image/png;base64,...) or as bare base64, and checks that the bytes
// really are an image no bigger than maxSize.
func PictureValidator(raw string, maxSize int64) (*Picture, error) {
	if raw == "" {
		return nil, ErrPictureEmpty
	}

	if strings.HasPrefix(raw, "data:") {
		i := strings.Index(raw, ",")
		if i < 0 {
			return nil, ErrPictureEncoding
		}
		raw = raw[i+1:]
	}

	// Cheap size check before decoding, base64 inflates by 4/3
	if maxSize > 0 && int64(base64.StdEncoding.DecodedLen(len(raw))) > maxSize+2 {
		return nil, ErrPictureTooLarge
	}

	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, ErrPictureEncoding
	}

	if maxSize > 0 && int64(len(data)) > maxSize {
		return nil, ErrPictureTooLarge
	}

	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		return nil, ErrPictureUnsupported
	}

	return &Picture{Data: data, MIME: mime}, nil
}
