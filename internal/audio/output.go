// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package audio

import (
	"sync"

	"github.com/ebitengine/oto/v3"
)

// Output turns PCM drained from the shared ring into audible sound.
type Output interface {
	// Open prepares the backend for the given stream parameters.
	Open(sampleRate, channels int) error

	Play()
	Pause()

	// SetVolume sets the playback gain, 0 to 1.
	SetVolume(v float64)

	// Push queues PCM bytes for playback.
	Push(pcm []byte)

	Close() error
}

// pendingLimit caps queued PCM so a stalled output does not grow the
// buffer without bound. Oldest data is dropped first.
const pendingLimit = 256 * 1024

// OtoOutput plays PCM through the system sound device. The player
// pulls from the pending buffer and substitutes silence on underrun.
type OtoOutput struct {
	mu        sync.Mutex
	ctx       *oto.Context
	player    *oto.Player
	pending   []byte
	playing   bool
	underruns uint64
}

// NewOtoOutput returns an unopened output.
func NewOtoOutput() *OtoOutput {
	return &OtoOutput{}
}

// Open creates the system audio context. The context is process wide
// and keeps its stream parameters, so a second Open with different
// ones is a no-op.
func (o *OtoOutput) Open(sampleRate, channels int) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.ctx != nil {
		return nil
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return err
	}
	<-ready

	o.ctx = ctx
	o.player = ctx.NewPlayer(o)

	return nil
}

// Read implements the pull side for the player. Pending PCM is
// served first, the remainder filled with silence.
func (o *OtoOutput) Read(p []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	n := copy(p, o.pending)
	o.pending = o.pending[n:]

	if n < len(p) {
		if o.playing {
			o.underruns++
		}

		clear(p[n:])
	}

	return len(p), nil
}

// Push implements [Output].
func (o *OtoOutput) Push(pcm []byte) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.pending = append(o.pending, pcm...)
	if excess := len(o.pending) - pendingLimit; excess > 0 {
		o.pending = o.pending[excess:]
	}
}

// Play implements [Output].
func (o *OtoOutput) Play() {
	o.mu.Lock()
	player := o.player
	o.playing = true
	o.mu.Unlock()

	if player != nil {
		player.Play()
	}
}

// Pause implements [Output].
func (o *OtoOutput) Pause() {
	o.mu.Lock()
	player := o.player
	o.playing = false
	o.mu.Unlock()

	if player != nil {
		player.Pause()
	}
}

// SetVolume implements [Output].
func (o *OtoOutput) SetVolume(v float64) {
	o.mu.Lock()
	player := o.player
	o.mu.Unlock()

	if player != nil {
		player.SetVolume(v)
	}
}

// Underruns returns how often the player ran dry while playing.
func (o *OtoOutput) Underruns() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.underruns
}

// Close implements [Output].
func (o *OtoOutput) Close() error {
	o.mu.Lock()
	player := o.player
	o.player = nil
	o.playing = false
	o.mu.Unlock()

	if player != nil {
		return player.Close()
	}

	return nil
}
