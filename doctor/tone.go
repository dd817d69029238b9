package doctor

import (
	"math"

	"drumpad/internal/wavfile"
)

const (
	toneFreq     = 1200
	toneDuration = 0.25
	toneVolume   = 0.5
	toneDecay    = 12
)

// toneWAV renders a decaying sine as a 16-bit stereo WAV file.
func toneWAV(sampleRate int, freq, duration, volume, decay float64) []byte {
	n := int(float64(sampleRate) * duration)
	samples := make([]int16, n*2)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(sampleRate)
		envelope := math.Exp(-t * decay)
		s := int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
		samples[i*2] = s
		samples[i*2+1] = s
	}
	return wavfile.Encode(sampleRate, 2, samples)
}
