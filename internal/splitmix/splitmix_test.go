package splitmix

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestKnownSequence(t *testing.T) {
	s := New(0)
	got := []uint64{s.Uint64(), s.Uint64(), s.Uint64()}
	want := []uint64{0xe220a8397b1dcdaf, 0x6e789e6aa1b965f4, 0x06c45d188009454f}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("sequence diff (-got +want)\n%s", diff)
	}
}

func TestSigned(t *testing.T) {
	// First draw of seed 0 has bit 10 set.
	if got, want := New(0).Signed(), -0.8833108082136426; got != want {
		t.Errorf("Signed() = %v, want %v", got, want)
	}

	s := New(12345)
	negatives := 0
	for i := 0; i < 10000; i++ {
		v := s.Signed()
		if v < -1 || v > 1 {
			t.Fatalf("draw %d = %v, outside [-1, 1]", i, v)
		}
		if v < 0 {
			negatives++
		}
	}
	if negatives < 4500 || negatives > 5500 {
		t.Errorf("%d of 10000 draws negative, want about half", negatives)
	}
}

func TestFillMatchesSigned(t *testing.T) {
	got := make([]float64, 5)
	New(7).Fill(got)

	s := New(7)
	want := make([]float64, 5)
	for i := range want {
		want[i] = s.Signed()
	}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("Fill diff (-got +want)\n%s", diff)
	}
}
