package audio

import "math"

// Resample converts frames from one rate to another by linear interpolation
// over a time axis normalized to [0,1). It is not band-limited and is only
// meant for the rare clip whose rate differs from the rest.
func Resample(in [][2]float64, from, to int) [][2]float64 {
	if from == to || from <= 0 || to <= 0 || len(in) == 0 {
		return in
	}
	n := len(in)
	m := int(math.Round(float64(n) * float64(to) / float64(from)))
	out := make([][2]float64, m)
	for k := range out {
		// x_new = k/m on the old axis x_old = i/n
		pos := float64(k) * float64(n) / float64(m)
		i := int(pos)
		if i >= n-1 {
			out[k] = in[n-1]
			continue
		}
		frac := pos - float64(i)
		for c := 0; c < 2; c++ {
			out[k][c] = in[i][c] + (in[i+1][c]-in[i][c])*frac
		}
	}
	return out
}
