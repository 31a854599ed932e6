// SPDX-FileCopyrightText: 2026 The Rising Sun Project
//
// SPDX-License-Identifier: GPL-3.0-or-later

package netbridge

import (
	"os"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

const tunDevice = "/dev/net/tun"

// OpenTAP creates or attaches the named TAP interface and brings the
// link up. The returned file carries raw ethernet frames without the
// packet information prefix.
func OpenTAP(name string) (*os.File, error) {
	fd, err := unix.Open(tunDevice, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, &TAPError{Name: name, Err: err}
	}

	ifr, err := unix.NewIfreq(name)
	if err != nil {
		_ = unix.Close(fd)

		return nil, &TAPError{Name: name, Err: err}
	}

	ifr.SetUint16(unix.IFF_TAP | unix.IFF_NO_PI)

	if err := unix.IoctlIfreq(fd, unix.TUNSETIFF, ifr); err != nil {
		_ = unix.Close(fd)

		return nil, &TAPError{Name: name, Err: err}
	}

	file := os.NewFile(uintptr(fd), ifr.Name())

	link, err := netlink.LinkByName(ifr.Name())
	if err != nil {
		_ = file.Close()

		return nil, &TAPError{Name: ifr.Name(), Err: err}
	}

	if err := netlink.LinkSetUp(link); err != nil {
		_ = file.Close()

		return nil, &TAPError{Name: ifr.Name(), Err: err}
	}

	return file, nil
}
