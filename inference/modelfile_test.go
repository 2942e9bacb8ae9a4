package inference

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func srHeader() Header {
	return Header{
		Kind:     KindSuperResolution,
		Scale:    4,
		Channels: 3,
		Kernel:   3,
		MaxDim:   4096,
		NWeights: 9,
	}
}

func segHeader() Header {
	return Header{
		Kind:     KindSegmentation,
		Channels: 3,
		MaxDim:   8192,
		NWeights: 4,
	}
}

func TestEncodeDecodeModelFile_RoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		header  Header
		weights []float32
	}{
		{
			name:    "super-resolution",
			header:  srHeader(),
			weights: DefaultWeights(KindSuperResolution, 3),
		},
		{
			name:    "segmentation",
			header:  segHeader(),
			weights: []float32{0.25, 0.5, 0.25, -0.1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeModelFile(tt.header, tt.weights)
			if err != nil {
				t.Fatalf("EncodeModelFile() error: %v", err)
			}

			h, weights, err := decodeModelFile(data)
			if err != nil {
				t.Fatalf("decodeModelFile() error: %v", err)
			}

			if h != tt.header {
				t.Errorf("header = %+v, want %+v", h, tt.header)
			}
			if len(weights) != len(tt.weights) {
				t.Fatalf("decoded %d weights, want %d", len(weights), len(tt.weights))
			}
			for i := range weights {
				if weights[i] != tt.weights[i] {
					t.Errorf("weight %d = %v, want %v", i, weights[i], tt.weights[i])
				}
			}
		})
	}
}

func TestEncodeModelFile_FillsWeightCount(t *testing.T) {
	h := srHeader()
	h.NWeights = 0 // to be derived from the slice

	data, err := EncodeModelFile(h, make([]float32, 9))
	if err != nil {
		t.Fatalf("EncodeModelFile() error: %v", err)
	}

	decoded, _, err := decodeModelFile(data)
	if err != nil {
		t.Fatalf("decodeModelFile() error: %v", err)
	}
	if decoded.NWeights != 9 {
		t.Errorf("NWeights = %d, want 9", decoded.NWeights)
	}
}

func TestEncodeModelFile_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Header)
		weights []float32
	}{
		{
			name:    "scale too small",
			mutate:  func(h *Header) { h.Scale = 1 },
			weights: make([]float32, 9),
		},
		{
			name:    "scale too large",
			mutate:  func(h *Header) { h.Scale = 9 },
			weights: make([]float32, 9),
		},
		{
			name:    "even kernel",
			mutate:  func(h *Header) { h.Kernel = 4; h.NWeights = 16 },
			weights: make([]float32, 16),
		},
		{
			name:    "weight count mismatch",
			mutate:  func(h *Header) {},
			weights: make([]float32, 5),
		},
		{
			name:    "unknown kind",
			mutate:  func(h *Header) { h.Kind = Kind(9) },
			weights: make([]float32, 9),
		},
		{
			name:    "bad channel count",
			mutate:  func(h *Header) { h.Channels = 0 },
			weights: make([]float32, 9),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := srHeader()
			tt.mutate(&h)

			if _, err := EncodeModelFile(h, tt.weights); !errors.Is(err, ErrModelInvalid) {
				t.Errorf("EncodeModelFile() error = %v, want ErrModelInvalid", err)
			}
		})
	}
}

func TestEncodeModelFile_SegmentationRejectsScale(t *testing.T) {
	h := segHeader()
	h.Scale = 2

	if _, err := EncodeModelFile(h, make([]float32, 4)); !errors.Is(err, ErrModelInvalid) {
		t.Errorf("EncodeModelFile() error = %v, want ErrModelInvalid", err)
	}
}

func TestDecodeModelFile_Corrupt(t *testing.T) {
	valid, err := EncodeModelFile(srHeader(), DefaultWeights(KindSuperResolution, 3))
	if err != nil {
		t.Fatalf("EncodeModelFile() error: %v", err)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "truncated header", data: valid[:10]},
		{name: "truncated weights", data: valid[:len(valid)-6]},
		{name: "trailing bytes", data: append(append([]byte{}, valid...), 0, 0)},
		{
			name: "bad magic",
			data: append([]byte("XXXX"), valid[4:]...),
		},
		{
			name: "weight count beyond file",
			data: func() []byte {
				d := append([]byte{}, valid...)
				binary.LittleEndian.PutUint32(d[12:], 10000)
				return d
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := decodeModelFile(tt.data); !errors.Is(err, ErrModelInvalid) {
				t.Errorf("decodeModelFile() error = %v, want ErrModelInvalid", err)
			}
		})
	}
}

func TestWriteAndProbeModelFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sr4x.pfw")
	h := srHeader()

	if err := WriteModelFile(path, h, DefaultWeights(KindSuperResolution, 3)); err != nil {
		t.Fatalf("WriteModelFile() error: %v", err)
	}

	probed, err := ProbeModelFile(path)
	if err != nil {
		t.Fatalf("ProbeModelFile() error: %v", err)
	}
	if probed != h {
		t.Errorf("ProbeModelFile() = %+v, want %+v", probed, h)
	}
}

func TestProbeModelFile_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.pfw")

	if _, err := ProbeModelFile(path); !errors.Is(err, ErrModelNotFound) {
		t.Errorf("ProbeModelFile() error = %v, want ErrModelNotFound", err)
	}
}

func TestProbeModelFile_SizeMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "padded.pfw")

	data, err := EncodeModelFile(segHeader(), []float32{1, 0, 0, 0})
	if err != nil {
		t.Fatalf("EncodeModelFile() error: %v", err)
	}
	// Pad the file beyond the declared weight count
	data = append(data, 0xde, 0xad)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	if _, err := ProbeModelFile(path); !errors.Is(err, ErrModelInvalid) {
		t.Errorf("ProbeModelFile() error = %v, want ErrModelInvalid", err)
	}
}

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{kind: KindSuperResolution, want: "super_resolution"},
		{kind: KindSegmentation, want: "segmentation"},
		{kind: Kind(7), want: "kind(7)"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", uint8(tt.kind), got, tt.want)
		}
	}
}
