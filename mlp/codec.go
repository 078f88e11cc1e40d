package mlp

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// The on-disk format is, in host byte order:
//
//	uint32  layerCount
//	uint32  neuronCounts[layerCount]
//	uint32  activationIDs[layerCount-1]
//	float64 weights[weightCount]
//
// Files written by SaveVersioned carry an extra 8 byte prefix: the magic
// "MLPW" followed by a uint32 format version.  Neither form is portable
// between hosts of different endianness.

const (
	// MaxLayers bounds the layer count accepted by Load.
	MaxLayers = 1 << 12

	// MaxNeuronsPerLayer bounds each neuron count accepted by Load.
	MaxNeuronsPerLayer = 1 << 24

	// FormatVersion is the version written by SaveVersioned.
	FormatVersion = 1
)

var formatMagic = [4]byte{'M', 'L', 'P', 'W'}

var byteOrder = binary.NativeEndian

// Save writes the architecture and weights of net to w.  Neuron activations
// and deltas are not written.
func Save(w io.Writer, net *Network) error {
	if net.released() {
		return ErrReleased
	}

	header := make([]uint32, 0, 2*len(net.layers))
	header = append(header, uint32(len(net.layers)))
	for i := range net.layers {
		header = append(header, uint32(net.layers[i].neuronCount))
	}
	for i := 1; i < len(net.layers); i++ {
		header = append(header, uint32(net.layers[i].activation))
	}

	if err := binary.Write(w, byteOrder, header); err != nil {
		return fmt.Errorf("while writing architecture: %w", err)
	}
	if err := binary.Write(w, byteOrder, net.Weights()); err != nil {
		return fmt.Errorf("while writing weights: %w", err)
	}
	return nil
}

// SaveVersioned writes the format magic and FormatVersion, then the same
// body as Save.
func SaveVersioned(w io.Writer, net *Network) error {
	if net.released() {
		return ErrReleased
	}
	if _, err := w.Write(formatMagic[:]); err != nil {
		return fmt.Errorf("while writing format magic: %w", err)
	}
	if err := binary.Write(w, byteOrder, uint32(FormatVersion)); err != nil {
		return fmt.Errorf("while writing format version: %w", err)
	}
	return Save(w, net)
}

// Load reads a network written by Save or SaveVersioned.  The architecture
// is validated before anything sized by it is allocated.
func Load(r io.Reader) (*Network, error) {
	var first [4]byte
	if _, err := io.ReadFull(r, first[:]); err != nil {
		return nil, streamError("while reading header", err)
	}

	if bytes.Equal(first[:], formatMagic[:]) {
		var version uint32
		if err := binary.Read(r, byteOrder, &version); err != nil {
			return nil, streamError("while reading format version", err)
		}
		if version != FormatVersion {
			return nil, fmt.Errorf("%w: unsupported format version %d", ErrMalformedStream, version)
		}
		if _, err := io.ReadFull(r, first[:]); err != nil {
			return nil, streamError("while reading layer count", err)
		}
	}

	layerCount := byteOrder.Uint32(first[:])
	if layerCount < 2 || layerCount > MaxLayers {
		return nil, fmt.Errorf("%w: implausible layer count %d", ErrMalformedStream, layerCount)
	}

	rawCounts := make([]uint32, layerCount)
	if err := binary.Read(r, byteOrder, rawCounts); err != nil {
		return nil, streamError("while reading neuron counts", err)
	}
	neuronCounts := make([]int, layerCount)
	for i, n := range rawCounts {
		if n == 0 || n > MaxNeuronsPerLayer {
			return nil, fmt.Errorf("%w: layer %d has implausible neuron count %d", ErrMalformedStream, i, n)
		}
		neuronCounts[i] = int(n)
	}

	rawActs := make([]uint32, layerCount-1)
	if err := binary.Read(r, byteOrder, rawActs); err != nil {
		return nil, streamError("while reading activation ids", err)
	}
	acts := make([]Activation, layerCount-1)
	for i, id := range rawActs {
		acts[i] = Activation(id)
		if !acts[i].Valid() {
			return nil, fmt.Errorf("%w: layer %d has unknown activation id %d", ErrMalformedStream, i+1, id)
		}
	}

	weightCount, _, _, ok := bufferSizes(neuronCounts)
	if !ok {
		return nil, fmt.Errorf("%w: architecture %v is too large", ErrMalformedStream, neuronCounts)
	}

	// The header alone can claim a gigabyte-sized network, so the weights
	// are read before the network is built.
	weights, err := readWeights(r, weightCount)
	if err != nil {
		return nil, err
	}

	net, err := Build(neuronCounts, acts)
	if err != nil {
		return nil, fmt.Errorf("%w: while building network: %w", ErrMalformedStream, err)
	}
	copy(net.Weights(), weights)

	return net, nil
}

// readChunk is the number of weights decoded per read.
const readChunk = 8 << 10

// readWeights reads n float64 values from r.  Memory grows with the bytes
// actually read, never with n alone.
func readWeights(r io.Reader, n int) ([]float64, error) {
	weights := make([]float64, 0, min(n, readChunk))
	raw := make([]byte, 8*min(n, readChunk))
	for len(weights) < n {
		k := min(n-len(weights), readChunk)
		if _, err := io.ReadFull(r, raw[:8*k]); err != nil {
			return nil, streamError(fmt.Sprintf("while reading weights %d..%d of %d", len(weights), len(weights)+k, n), err)
		}
		for i := 0; i < k; i++ {
			weights = append(weights, math.Float64frombits(byteOrder.Uint64(raw[8*i:])))
		}
	}
	return weights, nil
}

// streamError reports truncation as ErrMalformedStream and passes any other
// read error through.
func streamError(what string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%s: %w: %w", what, ErrMalformedStream, err)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// SaveFile writes net to path, with the version prefix if versioned is set.
func SaveFile(path string, net *Network, versioned bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("while creating weight file: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if versioned {
		err = SaveVersioned(bw, net)
	} else {
		err = Save(bw, net)
	}
	if err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("while flushing weight file: %w", err)
	}
	return f.Close()
}

// LoadFile reads a network from path.
func LoadFile(path string) (*Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("while opening weight file: %w", err)
	}
	defer f.Close()

	return Load(bufio.NewReader(f))
}
