package recorder

import (
	"fmt"

	"gocv.io/x/gocv"
)

// DefaultCodec is the FourCC used for clips.
const DefaultCodec = "MJPG"

// GocvEncoder returns a factory backed by gocv.VideoWriter.
func GocvEncoder(codec string) EncoderFactory {
	if codec == "" {
		codec = DefaultCodec
	}
	return func(path string, fps float64, width, height int) (Encoder, error) {
		w, err := gocv.VideoWriterFile(path, codec, fps, width, height, true)
		if err != nil {
			return nil, err
		}
		if !w.IsOpened() {
			w.Close()
			return nil, fmt.Errorf("video writer for %s codec %s did not open", path, codec)
		}
		return w, nil
	}
}
