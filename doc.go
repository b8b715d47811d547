// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bandalign computes batched global edit-distance alignments of
// nucleotide sequences on an emulated accelerator.
//
// Pairs are queued on a GlobalBandedAligner with AddAlignment, launched
// asynchronously with AlignAll and collected with SyncAlignments. Each pair
// is scored by a banded bit-parallel Myers kernel; pairs whose optimal path
// may leave the band are retried with a wider band until either the result
// is provably optimal or the configured maximum bandwidth is reached.
//
// Work is split into chunks that fit a fixed device memory budget. Chunks
// are copied to device memory, processed by a grid of kernel blocks and
// traced back into edit operations on the device, so results are available
// both on the host (Alignments) and as packed device buffers
// (AlignmentsDevice).
//
// Basic usage:
//
//	ctx := device.NewContext()
//	defer ctx.Destroy()
//
//	a, err := bandalign.NewGlobalBandedAligner(1<<20, 256, ctx.Allocator(), ctx.CreateStream(), 0)
//	if err != nil {
//		return err
//	}
//	defer a.Destroy()
//
//	_ = a.AddAlignment([]byte("ACGTTA"), []byte("AGGTAC"), false, false)
//	_ = a.AlignAll()
//	_ = a.SyncAlignments()
//	for _, r := range a.Alignments() {
//		fmt.Println(r.EditDistance(), r.CIGAR())
//	}
package bandalign // import "github.com/LynnColeArt/bandalign"
