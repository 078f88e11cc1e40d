package mlp

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
)

// SafeTensorInfo is one entry of a safetensors JSON header.
type SafeTensorInfo struct {
	DType       string `json:"dtype"`
	Shape       []int  `json:"shape"`
	DataOffsets []int  `json:"data_offsets"`
}

const (
	metaLayers      = "layers"
	metaActivations = "activations"

	maxSafeTensorsHeader = 1 << 24
)

func layerWeightKey(l int) string {
	return fmt.Sprintf("net.%d.weights", l)
}

// ExportSafeTensors writes the weights of net in the safetensors format:
// one F64 tensor net.<l>.weights of shape (n[l+1], n[l]+1) per connection
// layer, rows bias last, plus the architecture in __metadata__.
func ExportSafeTensors(w io.Writer, net *Network) error {
	if net.released() {
		return ErrReleased
	}

	header := map[string]any{}

	counts := make([]string, len(net.layers))
	for i, n := range net.NeuronCounts() {
		counts[i] = strconv.Itoa(n)
	}
	acts := make([]string, 0, len(net.layers)-1)
	for _, a := range net.Activations() {
		acts = append(acts, a.String())
	}
	header["__metadata__"] = map[string]string{
		metaLayers:      strings.Join(counts, ","),
		metaActivations: strings.Join(acts, ","),
	}

	dataOffset := 0
	for l := 0; l+1 < len(net.layers); l++ {
		begin := dataOffset
		dataOffset += net.layers[l].weights.n * 8
		header[layerWeightKey(l)] = SafeTensorInfo{
			DType:       "F64",
			Shape:       []int{net.layers[l+1].neuronCount, net.layers[l].neuronCount + 1},
			DataOffsets: []int{begin, dataOffset},
		}
	}

	headerBytes, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("while marshaling header: %w", err)
	}

	if err := binary.Write(w, binary.LittleEndian, uint64(len(headerBytes))); err != nil {
		return fmt.Errorf("while writing header length: %w", err)
	}
	if _, err := w.Write(headerBytes); err != nil {
		return fmt.Errorf("while writing header: %w", err)
	}

	// Connection layers are stored in order, so the tensor data is exactly
	// the weight region.
	if err := binary.Write(w, binary.LittleEndian, net.Weights()); err != nil {
		return fmt.Errorf("while writing weights: %w", err)
	}

	return nil
}

// ImportSafeTensors rebuilds a network from a file written by
// ExportSafeTensors.
func ImportSafeTensors(r io.ReaderAt) (*Network, error) {
	var lenBytes [8]byte
	if _, err := io.ReadFull(io.NewSectionReader(r, 0, 8), lenBytes[:]); err != nil {
		return nil, streamError("while reading header length", err)
	}
	headerLen := binary.LittleEndian.Uint64(lenBytes[:])
	if headerLen > maxSafeTensorsHeader {
		return nil, fmt.Errorf("%w: implausible header length %d", ErrMalformedStream, headerLen)
	}

	headerBytes := make([]byte, int(headerLen))
	if _, err := io.ReadFull(io.NewSectionReader(r, 8, int64(headerLen)), headerBytes); err != nil {
		return nil, streamError("while reading header", err)
	}

	header := map[string]json.RawMessage{}
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return nil, fmt.Errorf("%w: while parsing header: %w", ErrMalformedStream, err)
	}

	meta := map[string]string{}
	if raw, ok := header["__metadata__"]; ok {
		if err := json.Unmarshal(raw, &meta); err != nil {
			return nil, fmt.Errorf("%w: while parsing metadata: %w", ErrMalformedStream, err)
		}
	}

	neuronCounts, acts, err := parseArchitectureMetadata(meta)
	if err != nil {
		return nil, err
	}

	weightCount, _, _, ok := bufferSizes(neuronCounts)
	if !ok {
		return nil, fmt.Errorf("%w: architecture %v is too large", ErrMalformedStream, neuronCounts)
	}

	// Tensors must tile the data section in layer order, which is exactly
	// the layout of the weight region.
	dataStart := 8 + int64(headerLen)
	sections := make([]*io.SectionReader, len(neuronCounts)-1)
	end := 0
	for l := range sections {
		key := layerWeightKey(l)
		raw, ok := header[key]
		if !ok {
			return nil, fmt.Errorf("%w: no entry for %s", ErrMalformedStream, key)
		}
		var info SafeTensorInfo
		if err := json.Unmarshal(raw, &info); err != nil {
			return nil, fmt.Errorf("%w: while parsing %s: %w", ErrMalformedStream, key, err)
		}
		if info.DType != "F64" {
			return nil, fmt.Errorf("%w: unsupported dtype %s for %s", ErrMalformedStream, info.DType, key)
		}
		wantShape := []int{neuronCounts[l+1], neuronCounts[l] + 1}
		if !slices.Equal(info.Shape, wantShape) {
			return nil, fmt.Errorf("%w: wrong shape for %s; got %v want %v", ErrMalformedStream, key, info.Shape, wantShape)
		}

		size := 8 * wantShape[0] * wantShape[1]
		if len(info.DataOffsets) != 2 || info.DataOffsets[0] != end || info.DataOffsets[1] != end+size {
			return nil, fmt.Errorf("%w: bad data offsets %v for %s; want [%d %d]", ErrMalformedStream, info.DataOffsets, key, end, end+size)
		}
		sections[l] = io.NewSectionReader(r, dataStart+int64(end), int64(size))
		end += size
	}
	if end != 8*weightCount {
		return nil, fmt.Errorf("%w: tensors cover %d bytes, want %d", ErrMalformedStream, end, 8*weightCount)
	}

	// Check the last data byte exists before allocating the network.
	var last [1]byte
	if n, err := r.ReadAt(last[:], dataStart+int64(end)-1); n != 1 {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return nil, streamError("while reading tensor data", err)
	}

	net, err := Build(neuronCounts, acts)
	if err != nil {
		return nil, fmt.Errorf("%w: while building network: %w", ErrMalformedStream, err)
	}

	for l, section := range sections {
		if err := binary.Read(section, binary.LittleEndian, net.LayerWeights(l)); err != nil {
			net.Release()
			return nil, streamError(fmt.Sprintf("while reading %s values", layerWeightKey(l)), err)
		}
	}

	return net, nil
}

func parseArchitectureMetadata(meta map[string]string) ([]int, []Activation, error) {
	layersStr, ok := meta[metaLayers]
	if !ok {
		return nil, nil, fmt.Errorf("%w: metadata has no %q entry", ErrMalformedStream, metaLayers)
	}
	actsStr, ok := meta[metaActivations]
	if !ok {
		return nil, nil, fmt.Errorf("%w: metadata has no %q entry", ErrMalformedStream, metaActivations)
	}

	parts := strings.Split(layersStr, ",")
	if len(parts) < 2 || len(parts) > MaxLayers {
		return nil, nil, fmt.Errorf("%w: implausible layer count %d", ErrMalformedStream, len(parts))
	}
	neuronCounts := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 || n > MaxNeuronsPerLayer {
			return nil, nil, fmt.Errorf("%w: bad neuron count %q", ErrMalformedStream, p)
		}
		neuronCounts[i] = n
	}

	var acts []Activation
	for _, name := range strings.Split(actsStr, ",") {
		a, err := ParseActivation(name)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", ErrMalformedStream, err)
		}
		acts = append(acts, a)
	}
	if len(acts) != len(neuronCounts)-1 {
		return nil, nil, fmt.Errorf("%w: %d activations for %d layers", ErrMalformedStream, len(acts), len(neuronCounts))
	}

	return neuronCounts, acts, nil
}
