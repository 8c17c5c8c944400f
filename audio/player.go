package audio

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

// Player keeps a playback device running and mixes queued blips into it
type Player struct {
	malgoCtx   *malgo.AllocatedContext
	device     *malgo.Device
	sampleRate uint32

	mu      sync.Mutex
	pending []byte
}

// NewPlayer creates a player with an already started output device
func NewPlayer() (*Player, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}

	p := &Player{
		malgoCtx:   ctx,
		sampleRate: 44100,
	}

	if err := p.initDevice(); err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("failed to initialize audio device: %w", err)
	}

	return p, nil
}

func (p *Player) initDevice() error {
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = 1
	deviceConfig.SampleRate = p.sampleRate
	deviceConfig.Alsa.NoMMap = 1

	onData := func(pOutputSample, pInputSamples []byte, framecount uint32) {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.fill(pOutputSample)
	}

	var err error
	p.device, err = malgo.InitDevice(p.malgoCtx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onData,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize device: %w", err)
	}

	if err := p.device.Start(); err != nil {
		p.device.Uninit()
		p.device = nil
		return fmt.Errorf("failed to start device: %w", err)
	}

	return nil
}

// fill copies pending samples into out and pads with silence. Caller holds mu.
func (p *Player) fill(out []byte) {
	n := copy(out, p.pending)
	p.pending = p.pending[n:]
	clear(out[n:])
}

// Play queues a tone, replacing whatever has not been played yet
func (p *Player) Play(t Tone) {
	samples := t.Samples(p.sampleRate)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = samples
}

// Close releases resources
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.device != nil {
		p.device.Stop()
		p.device.Uninit()
		p.device = nil
	}

	if p.malgoCtx != nil {
		_ = p.malgoCtx.Uninit()
		p.malgoCtx.Free()
		p.malgoCtx = nil
	}

	return nil
}
