// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"os"

	"github.com/LynnColeArt/bandalign/cmd"
	"github.com/LynnColeArt/bandalign/cmd/align"
)

func main() {
	rootCmd := cmd.NewRootCommand()

	alignCmd := align.NewAlignCommand()
	rootCmd.AddCommand(alignCmd)

	selfTestCmd := align.NewSelfTestCommand()
	rootCmd.AddCommand(selfTestCmd)

	rootCmd.AddCommand(cmd.NewInfoCommand())
	rootCmd.AddCommand(cmd.NewVersionCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
