// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package directio

import (
	"os"

	"golang.org/x/sys/unix"
)

const supported = true

func open(name string) (*os.File, bool, error) {
	fd, err := unix.Open(name, unix.O_RDONLY|unix.O_DIRECT, 0)
	if err != nil {
		f, ferr := os.Open(name)
		if ferr != nil {
			return nil, false, ferr
		}
		return f, false, nil
	}
	return os.NewFile(uintptr(fd), name), true, nil
}
