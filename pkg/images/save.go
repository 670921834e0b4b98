package images

import (
	"image"

	"github.com/fogleman/gg"

	"vizloop/pkg/fileio"
)

// SavePNG encodes img to path. The file appears only once fully written.
func SavePNG(path string, img image.Image) error {
	return fileio.WriteAtomicFunc(path, func(tmp string) error {
		return gg.SavePNG(tmp, img)
	})
}
