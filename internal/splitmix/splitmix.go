// Package splitmix implements the SplitMix64 generator used to seed network
// weights and inputs.  Its output depends only on the seed, so a network
// initialized here is reproducible across platforms and Go releases.
package splitmix

type Source struct {
	state uint64
}

func New(seed uint64) *Source {
	return &Source{state: seed}
}

func (s *Source) Uint64() uint64 {
	s.state += 0x9e3779b97f4a7c15
	z := s.state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Signed returns a value uniformly distributed in [-1, 1].  The magnitude
// comes from the top 53 bits of one draw and the sign from bit 10, which
// those 53 bits do not cover.
func (s *Source) Signed() float64 {
	r := s.Uint64()
	v := float64(r>>11) * 0x1p-53
	if r&1024 != 0 {
		return -v
	}
	return v
}

// Fill overwrites dst with successive Signed values.
func (s *Source) Fill(dst []float64) {
	for i := range dst {
		dst[i] = s.Signed()
	}
}
