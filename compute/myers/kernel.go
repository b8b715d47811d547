package myers

import (
	"errors"
	"fmt"
)

// WordBits is the number of DP cells packed into one machine word.
const WordBits = 64

// wordsPerSlot is the trace footprint of one block at one target position:
// positive vertical deltas, negative vertical deltas, bottom-row score.
const wordsPerSlot = 3

// ErrInvalidBand is returned for a non-positive bandwidth.
var ErrInvalidBand = errors.New("myers: bandwidth must be positive")

// EffectiveBand clamps band to the largest useful value for an n×m matrix.
func EffectiveBand(n, m, band int) int {
	return min(band, max(n, m))
}

// Reachable reports whether a band of the given half-width contains the
// final cell of an n×m matrix.
func Reachable(n, m, band int) bool {
	return abs(n-m) <= EffectiveBand(n, m, band)
}

// TraceWords returns the number of scratch words Compute needs for a pair
// of lengths n (query) and m (target) at the given bandwidth.
func TraceWords(n, m, band int) int {
	if n == 0 || m == 0 || band <= 0 {
		return 0
	}
	w := EffectiveBand(n, m, band)
	if abs(n-m) > w {
		return 0
	}
	return m * bandWidth(n, w) * wordsPerSlot
}

// ScratchBytes is TraceWords in bytes.
func ScratchBytes(n, m, band int) int64 {
	return int64(TraceWords(n, m, band)) * 8
}

// Compute runs the banded recurrence for query against target. Cells with
// |i-j| <= band are evaluated block by block, WordBits query positions per
// word, one target position at a time. The per-position state of every
// active block is written to scratch, which must hold at least
// TraceWords(len(query), len(target), band) words and stays referenced by
// the returned Trace.
//
// The result is checked against the cheapest path that could escape the
// band; when the banded distance is not provably optimal the trace is
// marked BandTooNarrow.
func Compute(query, target []byte, band int, scratch []uint64) (*Trace, error) {
	if band <= 0 {
		return nil, ErrInvalidBand
	}
	n, m := len(query), len(target)
	t := &Trace{query: query, target: target}

	if n == 0 || m == 0 {
		t.band = max(n, m)
		t.Distance = max(n, m)
		t.Status = Verified
		return t, nil
	}

	w := EffectiveBand(n, m, band)
	t.band = w
	if abs(n-m) > w {
		t.Distance = -1
		t.Status = BandTooNarrow
		return t, nil
	}

	blocks := blockCount(n)
	width := bandWidth(n, w)
	need := m * width * wordsPerSlot
	if len(scratch) < need {
		return nil, fmt.Errorf("myers: scratch holds %d words, need %d", len(scratch), need)
	}
	t.blocks = blocks
	t.width = width
	t.words = scratch[:need]

	peq, index := buildPeq(query, blocks)
	pv := make([]uint64, blocks)
	mv := make([]uint64, blocks)
	score := make([]int, blocks)

	// Position 0 of the target: D[i][0] = i.
	prevHi := blockOf(min(n, w))
	for b := 0; b <= prevHi; b++ {
		pv[b] = ^uint64(0)
		score[b] = bottomRow(n, b)
	}

	for j := 1; j <= m; j++ {
		lo := blockOf(max(1, j-w))
		hi := blockOf(min(n, j+w))
		if hi > prevHi {
			// The entering block continues the column vertically below the band.
			pv[hi] = ^uint64(0)
			mv[hi] = 0
			score[hi] = score[hi-1] + rowsIn(n, hi)
			prevHi = hi
		}

		row := int(index[target[j-1]])
		slot := t.words[(j-1)*width*wordsPerSlot:]
		hin := 1
		for b := lo; b <= hi; b++ {
			var eq uint64
			if row >= 0 {
				eq = peq[row*blocks+b]
			}
			var hout int
			pv[b], mv[b], hout = advanceBlock(pv[b], mv[b], eq, hin, lastBit(n, b))
			score[b] += hout
			hin = hout

			k := (b - lo) * wordsPerSlot
			slot[k] = pv[b]
			slot[k+1] = mv[b]
			slot[k+2] = uint64(score[b])
		}
	}

	t.Distance = score[blocks-1]
	if w >= max(n, m) || t.Distance <= 2*(w+1)-abs(n-m) {
		t.Status = Verified
	} else {
		t.Status = BandTooNarrow
	}
	return t, nil
}

// advanceBlock advances one block of vertical deltas by one target
// position. hin is the horizontal delta entering the top row, the returned
// hout is the horizontal delta leaving the row selected by last.
func advanceBlock(pv, mv, eq uint64, hin int, last uint64) (uint64, uint64, int) {
	xv := eq | mv
	if hin < 0 {
		eq |= 1
	}
	xh := (((eq & pv) + pv) ^ pv) | eq
	ph := mv | ^(xh | pv)
	mh := pv & xh

	hout := 0
	if ph&last != 0 {
		hout = 1
	} else if mh&last != 0 {
		hout = -1
	}

	ph <<= 1
	mh <<= 1
	if hin < 0 {
		mh |= 1
	} else if hin > 0 {
		ph |= 1
	}
	return mh | ^(xv | ph), ph & xv, hout
}

// buildPeq returns the match masks of the query per symbol and block, and
// the symbol index of every byte (-1 for bytes absent from the query).
func buildPeq(query []byte, blocks int) ([]uint64, [256]int16) {
	var index [256]int16
	for i := range index {
		index[i] = -1
	}
	symbols := 0
	for _, c := range query {
		if index[c] < 0 {
			index[c] = int16(symbols)
			symbols++
		}
	}
	peq := make([]uint64, symbols*blocks)
	for i, c := range query {
		peq[int(index[c])*blocks+i/WordBits] |= 1 << (i % WordBits)
	}
	return peq, index
}

func blockCount(n int) int {
	return (n + WordBits - 1) / WordBits
}

// bandWidth is the number of blocks one target position can touch.
func bandWidth(n, band int) int {
	return min(blockCount(n), 2*band/WordBits+2)
}

// blockOf returns the block holding query row r (1-based).
func blockOf(r int) int {
	return (r - 1) / WordBits
}

// bottomRow is the last query row (1-based) of block b.
func bottomRow(n, b int) int {
	return min(n, (b+1)*WordBits)
}

func rowsIn(n, b int) int {
	return bottomRow(n, b) - b*WordBits
}

func lastBit(n, b int) uint64 {
	return 1 << (rowsIn(n, b) - 1)
}

// lowMask returns the k lowest bits set; k may be 64.
func lowMask(k int) uint64 {
	return (uint64(1) << uint(k)) - 1
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
