package level

import (
	"context"
	"encoding/binary"
	"math"
	"time"
)

// Static replays fixed PCM in a loop at a steady pace. It stands in for a
// microphone in demos and tests.
type Static struct {
	PCM      []byte
	Chunk    int
	Interval time.Duration
}

// Stream sends Chunk-byte slices of PCM every Interval until ctx is done.
func (s Static) Stream(ctx context.Context, fn func(pcm []byte)) error {
	chunk := s.Chunk
	if chunk <= 0 {
		chunk = WindowSize * 2
	}
	interval := s.Interval
	if interval <= 0 {
		interval = 20 * time.Millisecond
	}
	if len(s.PCM) == 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	t := time.NewTicker(interval)
	defer t.Stop()
	pos := 0
	for {
		end := min(pos+chunk, len(s.PCM))
		fn(s.PCM[pos:end])
		pos = end
		if pos >= len(s.PCM) {
			pos = 0
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// Tone renders n samples of a sine wave as PCM16.
func Tone(freq float64, sampleRate, n int, amplitude float64) []byte {
	out := make([]byte, n*2)
	for i := range n {
		v := amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(v*32767)))
	}
	return out
}
