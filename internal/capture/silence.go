package capture

import "math"

// RMS computes the normalized root mean square of a little-endian
// signed 16-bit mono PCM frame. Result is in [0, 1].
func RMS(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}

	var sum float64
	for i := 0; i < n; i++ {
		sample := int16(uint16(pcm[2*i]) | uint16(pcm[2*i+1])<<8)
		v := float64(sample)
		sum += v * v
	}

	return math.Sqrt(sum/float64(n)) / 32768.0
}
