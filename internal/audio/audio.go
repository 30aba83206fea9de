// Package audio captures microphone PCM through miniaudio.
package audio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

// Config selects the capture format. Samples are always signed 16-bit.
type Config struct {
	SampleRate uint32
	Channels   uint32
}

// Microphone streams the default capture device. It implements level.Source,
// so one value serves both the visualizer and engines that need raw audio.
type Microphone struct {
	cfg Config

	mu  sync.Mutex
	ctx *malgo.AllocatedContext
}

func NewMicrophone(cfg Config) *Microphone {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels == 0 {
		cfg.Channels = 1
	}
	return &Microphone{cfg: cfg}
}

func (m *Microphone) context() (*malgo.AllocatedContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ctx != nil {
		return m.ctx, nil
	}
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}
	m.ctx = ctx
	return ctx, nil
}

// Available reports whether a capture device is present.
func (m *Microphone) Available() bool {
	ctx, err := m.context()
	if err != nil {
		return false
	}
	devices, err := ctx.Devices(malgo.Capture)
	return err == nil && len(devices) > 0
}

// Stream captures until ctx is done, passing each buffer to fn. fn runs on the
// audio thread and must not block.
func (m *Microphone) Stream(ctx context.Context, fn func(pcm []byte)) error {
	actx, err := m.context()
	if err != nil {
		return err
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = m.cfg.Channels
	deviceConfig.SampleRate = m.cfg.SampleRate

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, data []byte, _ uint32) {
			fn(data)
		},
	}

	dev, err := malgo.InitDevice(actx.Context, deviceConfig, callbacks)
	if err != nil {
		return fmt.Errorf("open capture device: %w", err)
	}
	defer dev.Uninit()

	if err := dev.Start(); err != nil {
		return fmt.Errorf("start capture: %w", err)
	}
	<-ctx.Done()
	dev.Stop()
	return ctx.Err()
}

// Close releases the audio context.
func (m *Microphone) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ctx != nil {
		m.ctx.Uninit()
		m.ctx.Free()
		m.ctx = nil
	}
}
