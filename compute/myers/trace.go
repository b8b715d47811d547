package myers

import (
	"errors"
	"fmt"
	"math/bits"
	"slices"
)

// ErrUnverified is returned when operations are requested from a trace
// whose distance was not verified.
var ErrUnverified = errors.New("myers: trace is not verified")

// Trace is the compact result of Compute for one pair: for every target
// position the vertical delta words and bottom scores of the blocks that
// were active there. Values of cells outside the computed blocks follow
// from the nearest computed cell by horizontal (above the band) or
// vertical (below the band) extension, so any cell can be evaluated
// without the full matrix.
type Trace struct {
	query, target []byte
	band          int
	width         int
	blocks        int
	words         []uint64

	Distance int
	Status   Status
}

// Band returns the effective bandwidth used for the computation.
func (t *Trace) Band() int {
	return t.band
}

// value returns the DP value of cell (i, j), i over the query and j over
// the target.
func (t *Trace) value(i, j int) int {
	if j == 0 {
		return i
	}
	if i == 0 {
		return j
	}

	n, m, w := len(t.query), len(t.target), t.band
	b := blockOf(i)
	lo := blockOf(max(1, j-w))
	hi := blockOf(min(n, j+w))

	switch {
	case b < lo:
		// Frozen since the band moved past it.
		last := min(m, (b+1)*WordBits+w)
		return t.value(i, last) + (j - last)
	case b > hi:
		// Not reached yet by the band.
		r := bottomRow(n, hi)
		return t.value(r, j) + (i - r)
	}

	slot := t.words[((j-1)*t.width+(b-lo))*wordsPerSlot:]
	pv, mv, score := slot[0], slot[1], int(slot[2])

	mask := lowMask(rowsIn(n, b)) &^ lowMask(i-b*WordBits)
	return score - bits.OnesCount64(pv&mask) + bits.OnesCount64(mv&mask)
}

// Ops walks the trace back from the final cell to the origin and returns
// the alignment operations in leading-to-trailing order. Among equally
// optimal predecessors the diagonal step is taken first, then the query
// step (insertion), then the target step (deletion).
func (t *Trace) Ops() ([]Op, error) {
	if t.Status != Verified {
		return nil, ErrUnverified
	}

	q, s := t.query, t.target
	i, j := len(q), len(s)
	ops := make([]Op, 0, i+j)

	for i > 0 || j > 0 {
		cur := t.value(i, j)

		if i > 0 && j > 0 {
			op, cost := Mismatch, 1
			if q[i-1] == s[j-1] {
				op, cost = Match, 0
			}
			if t.value(i-1, j-1)+cost == cur {
				ops = append(ops, op)
				i--
				j--
				continue
			}
		}
		if i > 0 && t.value(i-1, j)+1 == cur {
			ops = append(ops, Insertion)
			i--
			continue
		}
		if j > 0 && t.value(i, j-1)+1 == cur {
			ops = append(ops, Deletion)
			j--
			continue
		}
		return nil, fmt.Errorf("myers: no predecessor for cell (%d,%d) with value %d", i, j, cur)
	}

	slices.Reverse(ops)
	return ops, nil
}
