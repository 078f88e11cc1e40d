package mlp

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Dump writes a human readable listing of every layer to w.  what selects
// the sections: 'n' for neurons, 'd' for deltas, 'w' for weight rows.
//
//	layer #1:
//	neurons[3]=0.250000,0.000000,1.500000
//	deltas[3]=...
//	weights[2][4]=
//	0:w00,w01,w02,b0
//	1:w10,w11,w12,b1
func (net *Network) Dump(w io.Writer, what string) error {
	if net.released() {
		return ErrReleased
	}

	bw := bufio.NewWriter(w)
	for l := range net.layers {
		fmt.Fprintf(bw, "layer #%d:\n", l)
		size := net.layers[l].neuronCount

		if strings.ContainsRune(what, 'n') {
			fmt.Fprintf(bw, "neurons[%d]=", size)
			writeRow(bw, net.Neurons(l))
		}

		if strings.ContainsRune(what, 'd') && l > 0 {
			fmt.Fprintf(bw, "deltas[%d]=", size)
			writeRow(bw, net.Deltas(l))
		}

		if strings.ContainsRune(what, 'w') && l+1 < len(net.layers) {
			next := net.layers[l+1].neuronCount
			fmt.Fprintf(bw, "weights[%d][%d]=\n", next, size+1)
			weights := net.LayerWeights(l)
			for j := 0; j < next; j++ {
				fmt.Fprintf(bw, "%d:", j)
				writeRow(bw, weights[j*(size+1):(j+1)*(size+1)])
			}
		}
	}
	return bw.Flush()
}

func writeRow(w io.Writer, row []float64) {
	for i, v := range row {
		if i > 0 {
			io.WriteString(w, ",")
		}
		fmt.Fprintf(w, "%f", v)
	}
	io.WriteString(w, "\n")
}
