// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bandalign

import "runtime/debug"

const root = "github.com/LynnColeArt/bandalign"

// Version returns the module version and checksum bandalign was built
// with, or empty strings in binaries built without module support. A
// replaced module reports its replacement.
func Version() (version, sum string) {
	b, ok := debug.ReadBuildInfo()
	if !ok {
		return "", ""
	}
	if b.Main.Path == root {
		return b.Main.Version, b.Main.Sum
	}
	for _, m := range b.Deps {
		if m.Path != root {
			continue
		}
		if r := m.Replace; r != nil {
			return m.Version + "=>" + r.Path + "@" + r.Version, r.Sum
		}
		return m.Version, m.Sum
	}
	return "", ""
}
