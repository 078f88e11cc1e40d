package mlp

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSafeTensorsRoundTrip(t *testing.T) {
	net := makePatterned(t)

	buf := &bytes.Buffer{}
	if err := ExportSafeTensors(buf, net); err != nil {
		t.Fatalf("ExportSafeTensors: %v", err)
	}

	loaded, err := ImportSafeTensors(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ImportSafeTensors: %v", err)
	}
	checkSameNetwork(t, loaded, net)
}

func TestSafeTensorsHeader(t *testing.T) {
	net := makePatterned(t)

	buf := &bytes.Buffer{}
	if err := ExportSafeTensors(buf, net); err != nil {
		t.Fatalf("ExportSafeTensors: %v", err)
	}

	b := buf.Bytes()
	headerLen := binary.LittleEndian.Uint64(b[:8])
	header := map[string]json.RawMessage{}
	if err := json.Unmarshal(b[8:8+headerLen], &header); err != nil {
		t.Fatalf("parsing header: %v", err)
	}

	var meta map[string]string
	if err := json.Unmarshal(header["__metadata__"], &meta); err != nil {
		t.Fatalf("parsing metadata: %v", err)
	}
	wantMeta := map[string]string{
		"layers":      "4,3,2,1",
		"activations": "linear,relu,sigmoid",
	}
	if diff := cmp.Diff(meta, wantMeta); diff != "" {
		t.Errorf("metadata diff (-got +want)\n%s", diff)
	}

	got := map[string]SafeTensorInfo{}
	for l := 0; l < 3; l++ {
		var info SafeTensorInfo
		if err := json.Unmarshal(header[layerWeightKey(l)], &info); err != nil {
			t.Fatalf("parsing %s: %v", layerWeightKey(l), err)
		}
		got[layerWeightKey(l)] = info
	}
	want := map[string]SafeTensorInfo{
		"net.0.weights": {DType: "F64", Shape: []int{3, 5}, DataOffsets: []int{0, 120}},
		"net.1.weights": {DType: "F64", Shape: []int{2, 4}, DataOffsets: []int{120, 184}},
		"net.2.weights": {DType: "F64", Shape: []int{1, 3}, DataOffsets: []int{184, 208}},
	}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("tensor infos diff (-got +want)\n%s", diff)
	}

	if got, want := len(b), 8+int(headerLen)+208; got != want {
		t.Errorf("file is %d bytes, want %d", got, want)
	}
}

func TestImportSafeTensorsRejectsBadInput(t *testing.T) {
	makeFile := func(header map[string]any, data []byte) []byte {
		hb, err := json.Marshal(header)
		if err != nil {
			t.Fatalf("json.Marshal: %v", err)
		}
		out := &bytes.Buffer{}
		binary.Write(out, binary.LittleEndian, uint64(len(hb)))
		out.Write(hb)
		out.Write(data)
		return out.Bytes()
	}
	meta := map[string]string{"layers": "2,1", "activations": "linear"}

	testCases := []struct {
		desc  string
		input []byte
	}{
		{desc: "empty", input: nil},
		{desc: "huge header", input: binary.LittleEndian.AppendUint64(nil, 1<<40)},
		{desc: "bad json", input: append(binary.LittleEndian.AppendUint64(nil, 3), "{{{"...)},
		{desc: "no metadata", input: makeFile(map[string]any{}, nil)},
		{desc: "bad layers", input: makeFile(map[string]any{"__metadata__": map[string]string{"layers": "2,x", "activations": "linear"}}, nil)},
		{desc: "bad activation", input: makeFile(map[string]any{"__metadata__": map[string]string{"layers": "2,1", "activations": "tanh"}}, nil)},
		{desc: "missing tensor", input: makeFile(map[string]any{"__metadata__": meta}, nil)},
		{
			desc: "wrong dtype",
			input: makeFile(map[string]any{
				"__metadata__":  meta,
				"net.0.weights": SafeTensorInfo{DType: "F32", Shape: []int{1, 3}, DataOffsets: []int{0, 12}},
			}, make([]byte, 12)),
		},
		{
			desc: "wrong shape",
			input: makeFile(map[string]any{
				"__metadata__":  meta,
				"net.0.weights": SafeTensorInfo{DType: "F64", Shape: []int{3, 1}, DataOffsets: []int{0, 24}},
			}, make([]byte, 24)),
		},
		{
			desc: "activation count mismatch",
			input: makeFile(map[string]any{
				"__metadata__":  map[string]string{"layers": "2,1", "activations": "linear,relu"},
				"net.0.weights": SafeTensorInfo{DType: "F64", Shape: []int{1, 3}, DataOffsets: []int{0, 24}},
			}, make([]byte, 24)),
		},
		{
			desc:  "architecture too large",
			input: makeFile(map[string]any{"__metadata__": map[string]string{"layers": "16777216,16777216,1", "activations": "linear,linear"}}, nil),
		},
		{
			desc: "negative offset",
			input: makeFile(map[string]any{
				"__metadata__":  meta,
				"net.0.weights": SafeTensorInfo{DType: "F64", Shape: []int{1, 3}, DataOffsets: []int{-8, 16}},
			}, make([]byte, 24)),
		},
		{
			desc: "gap before tensor",
			input: makeFile(map[string]any{
				"__metadata__":  meta,
				"net.0.weights": SafeTensorInfo{DType: "F64", Shape: []int{1, 3}, DataOffsets: []int{8, 32}},
			}, make([]byte, 32)),
		},
		{
			desc: "overlapping tensors",
			input: makeFile(map[string]any{
				"__metadata__":  map[string]string{"layers": "2,2,1", "activations": "relu,linear"},
				"net.0.weights": SafeTensorInfo{DType: "F64", Shape: []int{2, 3}, DataOffsets: []int{0, 48}},
				"net.1.weights": SafeTensorInfo{DType: "F64", Shape: []int{1, 3}, DataOffsets: []int{0, 24}},
			}, make([]byte, 72)),
		},
		{
			desc: "truncated data",
			input: makeFile(map[string]any{
				"__metadata__":  meta,
				"net.0.weights": SafeTensorInfo{DType: "F64", Shape: []int{1, 3}, DataOffsets: []int{0, 24}},
			}, make([]byte, 10)),
		},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := ImportSafeTensors(bytes.NewReader(tc.input))
			if !errors.Is(err, ErrMalformedStream) {
				t.Fatalf("ImportSafeTensors error = %v, want ErrMalformedStream", err)
			}
		})
	}
}
