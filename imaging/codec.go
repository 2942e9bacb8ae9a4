package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	// Register decoders for the supported source formats.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
)

// Decode parses raw image bytes into an ImageBuffer.
//
// Supported formats: JPEG, PNG, GIF (first frame) and BMP. The returned
// format name is the registered decoder name ("jpeg", "png", "gif", "bmp")
// and doubles as the stored input artifact's file extension.
//
// Undecodable or empty input fails with an error wrapping ErrDecode; the
// caller can reject such requests without touching any model or store.
//
// Example:
//
//	buf, format, err := imaging.Decode(raw)
//	if errors.Is(err, imaging.ErrDecode) {
//	    // client-correctable: not an image
//	}
func Decode(data []byte) (*ImageBuffer, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty input", ErrDecode)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}

	buf := FromImage(img)
	if err := buf.Validate(); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}

	return buf, format, nil
}

// EncodePNG serializes a buffer as PNG bytes.
//
// PNG is the pipeline's only output format: lossless, so a chain of
// enhancement runs never accumulates recompression artifacts. Failures
// wrap ErrEncode.
func EncodePNG(buf *ImageBuffer) ([]byte, error) {
	img, err := ToImage(buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}

	var out bytes.Buffer
	if err := png.Encode(&out, img); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}

	return out.Bytes(), nil
}
