// Package images decodes source images from files, URLs and data URIs and
// converts them into the straight-alpha buffers the renderers draw on.
package images

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/url"
	"os"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"vizloop/pkg/errs"
	"vizloop/pkg/fileio"
	"vizloop/std/net"
)

// IsDataURI reports whether src is a data: URI.
func IsDataURI(src string) bool {
	return strings.HasPrefix(src, "data:")
}

// LoadImageFromDataURI decodes a base64 or percent-encoded data URI.
func LoadImageFromDataURI(uri string) (image.Image, error) {
	payload, err := DataURIBytes(uri)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("decode data uri: %w", err)
	}
	return img, nil
}

// DataURIBytes returns the decoded payload of a data: URI.
func DataURIBytes(uri string) ([]byte, error) {
	if !IsDataURI(uri) {
		return nil, errors.New("not a data uri")
	}
	meta, data, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, errors.New("data uri: missing ','")
	}
	if strings.HasSuffix(meta, ";base64") {
		payload, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			return nil, fmt.Errorf("data uri: %w", err)
		}
		return payload, nil
	}
	payload, err := url.PathUnescape(data)
	if err != nil {
		return nil, fmt.Errorf("data uri: %w", err)
	}
	return []byte(payload), nil
}

// LoadImage loads an image from a file path, http(s) URL or data URI.
// Missing or undecodable sources are reported as input errors.
func LoadImage(src string) (image.Image, error) {
	if !IsDataURI(src) && !net.IsNetworkURL(src) {
		if _, err := os.Stat(src); err != nil {
			return nil, errs.Input("image not found", src, err)
		}
	}
	var data []byte
	var err error
	if IsDataURI(src) {
		data, err = DataURIBytes(src)
	} else {
		data, err = fileio.ReadSource(src)
	}
	if err != nil {
		return nil, errs.Input("failed to read image", src, err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errs.Input("failed to decode image", src, err)
	}
	return img, nil
}

// LoadNRGBA loads src and converts it to a straight-alpha buffer with its
// origin at (0, 0).
func LoadNRGBA(src string) (*image.NRGBA, error) {
	img, err := LoadImage(src)
	if err != nil {
		return nil, err
	}
	return ToNRGBA(img), nil
}

// GetImageDimensions returns the width and height of an image
func GetImageDimensions(path string) (width, height int, err error) {
	img, err := LoadImage(path)
	if err != nil {
		return 0, 0, err
	}

	bounds := img.Bounds()
	return bounds.Dx(), bounds.Dy(), nil
}
