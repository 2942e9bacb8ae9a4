package inference

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Kind identifies what a weight file computes.
type Kind uint8

// Model kinds carried in the weight file header.
const (
	KindSuperResolution Kind = 1
	KindSegmentation    Kind = 2
)

// String returns the manifest/log name for the kind.
func (k Kind) String() string {
	switch k {
	case KindSuperResolution:
		return "super_resolution"
	case KindSegmentation:
		return "segmentation"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Weight file format (little-endian):
//
//	offset 0   magic    [4]byte  "PFW1"
//	        4   kind     uint8    1 = super-resolution, 2 = segmentation
//	        5   scale    uint8    SR: integer factor 2..8; segmentation: 0
//	        6   channels uint8    pixel channels the model was trained on
//	        7   kernel   uint8    SR: odd refinement kernel size 1..9; seg: 0
//	        8   maxDim   uint32   largest accepted input W or H; 0 = unlimited
//	       12   nWeights uint32   float32 count that follows
//	       16   weights  [nWeights]float32
//
// SR weight count must equal kernel*kernel (the refinement convolution);
// segmentation weight count must equal 4 (wR, wG, wB, bias over normalized
// features).
const (
	magicPFW   = "PFW1"
	headerSize = 16

	// segWeightCount is wR, wG, wB plus bias.
	segWeightCount = 4
)

// fileHeader is the fixed-size prefix of a weight file, laid out exactly
// as on disk so it can be read and written with encoding/binary.
type fileHeader struct {
	Magic    [4]byte
	Kind     uint8
	Scale    uint8
	Channels uint8
	Kernel   uint8
	MaxDim   uint32
	NWeights uint32
}

// Header is the validated, decoded form of a weight file header.
type Header struct {
	Kind     Kind
	Scale    int // SR magnification factor; 0 for segmentation
	Channels int // channels the model was trained on
	Kernel   int // SR refinement kernel size; 0 for segmentation
	MaxDim   int // largest accepted input dimension; 0 = unlimited
	NWeights int
}

// validate checks the header's internal consistency.
// Violations wrap ErrModelInvalid.
func (h Header) validate() error {
	switch h.Kind {
	case KindSuperResolution:
		if h.Scale < 2 || h.Scale > 8 {
			return fmt.Errorf("%w: super-resolution scale %d, want 2..8", ErrModelInvalid, h.Scale)
		}
		if h.Kernel < 1 || h.Kernel > 9 || h.Kernel%2 == 0 {
			return fmt.Errorf("%w: refinement kernel %d, want odd 1..9", ErrModelInvalid, h.Kernel)
		}
		if want := h.Kernel * h.Kernel; h.NWeights != want {
			return fmt.Errorf("%w: %d weights, want %d for a %dx%d kernel",
				ErrModelInvalid, h.NWeights, want, h.Kernel, h.Kernel)
		}
	case KindSegmentation:
		if h.Scale != 0 || h.Kernel != 0 {
			return fmt.Errorf("%w: segmentation header carries scale/kernel", ErrModelInvalid)
		}
		if h.NWeights != segWeightCount {
			return fmt.Errorf("%w: %d weights, want %d for segmentation",
				ErrModelInvalid, h.NWeights, segWeightCount)
		}
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrModelInvalid, uint8(h.Kind))
	}

	if h.Channels < 1 || h.Channels > 4 {
		return fmt.Errorf("%w: %d trained channels, want 1..4", ErrModelInvalid, h.Channels)
	}
	if h.MaxDim < 0 {
		return fmt.Errorf("%w: negative max dimension", ErrModelInvalid)
	}
	return nil
}

// EncodeModelFile serializes a header and its weights into weight file bytes.
// The header is validated first; the weight slice length must match
// h.NWeights (a zero NWeights is filled in from the slice).
func EncodeModelFile(h Header, weights []float32) ([]byte, error) {
	if h.NWeights == 0 {
		h.NWeights = len(weights)
	}
	if err := h.validate(); err != nil {
		return nil, err
	}
	if len(weights) != h.NWeights {
		return nil, fmt.Errorf("%w: %d weights supplied, header says %d",
			ErrModelInvalid, len(weights), h.NWeights)
	}

	raw := fileHeader{
		Kind:     uint8(h.Kind),
		Scale:    uint8(h.Scale),
		Channels: uint8(h.Channels),
		Kernel:   uint8(h.Kernel),
		MaxDim:   uint32(h.MaxDim),
		NWeights: uint32(h.NWeights),
	}
	copy(raw.Magic[:], magicPFW)

	var buf bytes.Buffer
	buf.Grow(headerSize + 4*len(weights))
	if err := binary.Write(&buf, binary.LittleEndian, raw); err != nil {
		return nil, fmt.Errorf("encoding weight file header: %w", err)
	}
	if err := binary.Write(&buf, binary.LittleEndian, weights); err != nil {
		return nil, fmt.Errorf("encoding weights: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteModelFile encodes and writes a weight file at path.
func WriteModelFile(path string, h Header, weights []float32) error {
	data, err := EncodeModelFile(h, weights)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing weight file: %w", err)
	}
	return nil
}

// decodeHeader reads and validates the fixed-size header.
func decodeHeader(r io.Reader) (Header, error) {
	var raw fileHeader
	if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
		return Header{}, fmt.Errorf("%w: truncated header: %v", ErrModelInvalid, err)
	}
	if string(raw.Magic[:]) != magicPFW {
		return Header{}, fmt.Errorf("%w: bad magic %q", ErrModelInvalid, raw.Magic)
	}

	h := Header{
		Kind:     Kind(raw.Kind),
		Scale:    int(raw.Scale),
		Channels: int(raw.Channels),
		Kernel:   int(raw.Kernel),
		MaxDim:   int(raw.MaxDim),
		NWeights: int(raw.NWeights),
	}
	if err := h.validate(); err != nil {
		return Header{}, err
	}
	return h, nil
}

// decodeModelFile parses a complete weight file.
func decodeModelFile(data []byte) (Header, []float32, error) {
	r := bytes.NewReader(data)

	h, err := decodeHeader(r)
	if err != nil {
		return Header{}, nil, err
	}

	weights := make([]float32, h.NWeights)
	if err := binary.Read(r, binary.LittleEndian, weights); err != nil {
		return Header{}, nil, fmt.Errorf("%w: truncated weights: %v", ErrModelInvalid, err)
	}
	if r.Len() != 0 {
		return Header{}, nil, fmt.Errorf("%w: %d trailing bytes", ErrModelInvalid, r.Len())
	}

	return h, weights, nil
}

// ProbeModelFile validates a weight file's header and total size without
// retaining the weights. The validation suite uses it to vet manifest
// entries cheaply.
func ProbeModelFile(path string) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Header{}, fmt.Errorf("%w: %s", ErrModelNotFound, path)
		}
		return Header{}, fmt.Errorf("opening weight file: %w", err)
	}
	defer f.Close()

	h, err := decodeHeader(f)
	if err != nil {
		return Header{}, err
	}

	info, err := f.Stat()
	if err != nil {
		return Header{}, fmt.Errorf("stating weight file: %w", err)
	}
	if want := int64(headerSize + 4*h.NWeights); info.Size() != want {
		return Header{}, fmt.Errorf("%w: file size %d, want %d", ErrModelInvalid, info.Size(), want)
	}

	return h, nil
}
