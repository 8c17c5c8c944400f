package audio

import (
	"encoding/binary"
	"math"
	"time"
)

// Tone describes a short sine blip
type Tone struct {
	Frequency float64
	Duration  time.Duration
	Volume    float64 // 0..1
}

// Feedback tones
var (
	ToneDetected = Tone{Frequency: 880, Duration: 60 * time.Millisecond, Volume: 0.25}
	ToneFailed   = Tone{Frequency: 330, Duration: 120 * time.Millisecond, Volume: 0.25}
)

// fadeFrames ramps both ends of a blip to avoid clicks
const fadeFrames = 48

// Samples renders the tone as mono 16-bit little-endian PCM
func (t Tone) Samples(sampleRate uint32) []byte {
	frames := int(float64(sampleRate) * t.Duration.Seconds())
	if frames <= 0 {
		return nil
	}

	vol := math.Max(0, math.Min(1, t.Volume))
	buf := make([]byte, frames*2)
	for i := 0; i < frames; i++ {
		gain := vol
		if i < fadeFrames {
			gain *= float64(i) / fadeFrames
		}
		if tail := frames - 1 - i; tail < fadeFrames {
			gain *= float64(tail) / fadeFrames
		}
		v := math.Sin(2 * math.Pi * t.Frequency * float64(i) / float64(sampleRate))
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(int16(v*gain*math.MaxInt16)))
	}
	return buf
}
