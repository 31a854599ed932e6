// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package clipboard

import (
	"sync"

	sysclip "golang.design/x/clipboard"
)

// Provider is the host side clipboard access.
type Provider interface {
	// ReadText returns the current host clipboard text.
	ReadText() ([]byte, error)

	// WriteText replaces the host clipboard text.
	WriteText(data []byte) error
}

// SystemProvider accesses the desktop clipboard. Initialization can
// fail on headless machines, in which case every access reports
// [ErrUnavailable] and the bridge keeps working guest side only.
type SystemProvider struct {
	once sync.Once
	err  error
}

// NewSystemProvider returns an uninitialized system clipboard. The
// underlying display connection is made on first use.
func NewSystemProvider() *SystemProvider {
	return &SystemProvider{}
}

func (p *SystemProvider) init() error {
	p.once.Do(func() {
		p.err = sysclip.Init()
	})

	if p.err != nil {
		return ErrUnavailable
	}

	return nil
}

// ReadText implements [Provider].
func (p *SystemProvider) ReadText() ([]byte, error) {
	if err := p.init(); err != nil {
		return nil, err
	}

	return sysclip.Read(sysclip.FmtText), nil
}

// WriteText implements [Provider].
func (p *SystemProvider) WriteText(data []byte) error {
	if err := p.init(); err != nil {
		return err
	}

	sysclip.Write(sysclip.FmtText, data)

	return nil
}
