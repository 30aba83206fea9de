// Package level turns microphone PCM into the frequency-bin frames drawn by
// the audio visualizer.
package level

import (
	"context"
	"encoding/binary"
	"math"
	"sync"
)

const (
	// WindowSize is the number of samples analysed per frame.
	WindowSize = 256
	// Bins is the number of frequency bins in a frame.
	Bins = WindowSize / 2

	minDB     = -100.0
	maxDB     = -30.0
	smoothing = 0.8
)

// Source streams little-endian PCM16 mono audio to fn until ctx is done.
type Source interface {
	Stream(ctx context.Context, fn func(pcm []byte)) error
}

var (
	hann    [WindowSize]float64
	cosines [WindowSize]float64
	sines   [WindowSize]float64
)

func init() {
	for i := range WindowSize {
		hann[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(WindowSize-1)))
		cosines[i] = math.Cos(2 * math.Pi * float64(i) / WindowSize)
		sines[i] = math.Sin(2 * math.Pi * float64(i) / WindowSize)
	}
}

// Analyser keeps the most recent window of samples and produces smoothed,
// dB-scaled magnitudes in 0..255. It is safe for one writer and one reader.
type Analyser struct {
	mu      sync.Mutex
	samples [WindowSize]float64
	pos     int
	filled  bool
	smooth  [Bins]float64

	gate  bool
	floor uint8
}

// NewAnalyser returns an analyser. Bins below floor are zeroed while the noise
// gate is on.
func NewAnalyser(floor uint8) *Analyser {
	return &Analyser{floor: floor}
}

// SetNoiseGate turns the noise gate on or off.
func (a *Analyser) SetNoiseGate(on bool) {
	a.mu.Lock()
	a.gate = on
	a.mu.Unlock()
}

// Write appends PCM16 samples. A trailing odd byte is ignored.
func (a *Analyser) Write(pcm []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := 0; i+1 < len(pcm); i += 2 {
		a.samples[a.pos] = float64(int16(binary.LittleEndian.Uint16(pcm[i:]))) / 32768
		a.pos = (a.pos + 1) % WindowSize
		if a.pos == 0 {
			a.filled = true
		}
	}
}

// Reset forgets buffered samples and smoothing history.
func (a *Analyser) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.samples = [WindowSize]float64{}
	a.smooth = [Bins]float64{}
	a.pos = 0
	a.filled = false
}

// Frame analyses the current window and returns Bins values in 0..255.
func (a *Analyser) Frame() []uint8 {
	a.mu.Lock()
	defer a.mu.Unlock()

	var x [WindowSize]float64
	for i := range WindowSize {
		x[i] = a.samples[(a.pos+i)%WindowSize] * hann[i]
	}

	out := make([]uint8, Bins)
	for k := range Bins {
		var re, im float64
		for n := range WindowSize {
			idx := (k * n) % WindowSize
			re += x[n] * cosines[idx]
			im -= x[n] * sines[idx]
		}
		mag := math.Hypot(re, im) / WindowSize
		a.smooth[k] = smoothing*a.smooth[k] + (1-smoothing)*mag
		out[k] = toByte(a.smooth[k])
		if a.gate && out[k] < a.floor {
			out[k] = 0
		}
	}
	return out
}

func toByte(mag float64) uint8 {
	if mag <= 0 {
		return 0
	}
	db := 20 * math.Log10(mag)
	v := (db - minDB) / (maxDB - minDB) * 255
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}

// Level reduces a frame to a single 0..1 loudness value for the level meter.
func Level(bins []uint8) float64 {
	if len(bins) == 0 {
		return 0
	}
	var sum int
	for _, b := range bins {
		sum += int(b)
	}
	return float64(sum) / float64(len(bins)*255)
}

// RMS returns the root-mean-square amplitude of PCM16 audio in 0..1.
func RMS(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i+1 < len(pcm); i += 2 {
		s := float64(int16(binary.LittleEndian.Uint16(pcm[i:]))) / 32768
		sum += s * s
	}
	return math.Sqrt(sum / float64(n))
}
