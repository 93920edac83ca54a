// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !linux

package directio

import "os"

const supported = false

func open(name string) (*os.File, bool, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, false, err
	}
	return f, false, nil
}
