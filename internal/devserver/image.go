package devserver

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var errBadImage = errors.New("invalid image payload")

type decodedImage struct {
	mime string
	data []byte
}

// decodeDataURI decodes a data:<mime>;base64,<payload> string and checks
// that the content is an image, whatever the declared type says
func decodeDataURI(uri string) (*decodedImage, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, fmt.Errorf("missing data: prefix: %w", errBadImage)
	}
	_, payload, ok := strings.Cut(rest, ";base64,")
	if !ok {
		return nil, fmt.Errorf("missing base64 marker: %w", errBadImage)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", errors.Join(errBadImage, err))
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, fmt.Errorf("content is %s: %w", mt.String(), errBadImage)
	}
	return &decodedImage{mime: mt.String(), data: data}, nil
}
