package bandalign

import (
	"slices"
	"strconv"
	"strings"

	"github.com/LynnColeArt/bandalign/compute/myers"
)

// Op is one alignment operation. Insertion consumes a query base,
// Deletion a target base.
type Op = myers.Op

const (
	Match     = myers.Match
	Mismatch  = myers.Mismatch
	Insertion = myers.Insertion
	Deletion  = myers.Deletion
)

// Status is the final outcome of one alignment request.
type Status uint8

const (
	// StatusSuccess: the distance and operations are optimal.
	StatusSuccess Status = iota
	// StatusBandTooNarrow: the attempt could not verify its result and the
	// growth policy declined to retry (NoGrowth).
	StatusBandTooNarrow
	// StatusBandExceeded: the request needs a wider band than the maximum
	// bandwidth or the memory budget allows.
	StatusBandExceeded
	// StatusFailed: the request could not be computed at all.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusBandTooNarrow:
		return "band_too_narrow"
	case StatusBandExceeded:
		return "band_exceeded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Alignment is the immutable result of one request. Results are shared
// between the aligner and its callers until the aligner is reset.
type Alignment struct {
	query, target     []byte
	rcQuery, rcTarget bool
	distance          int
	ops               []Op
	status            Status
	bandwidth         int
}

func failedAlignment(r *request, status Status) *Alignment {
	return &Alignment{
		query:     r.query,
		target:    r.target,
		rcQuery:   r.rcQuery,
		rcTarget:  r.rcTarget,
		distance:  -1,
		status:    status,
		bandwidth: r.band,
	}
}

// Query returns the query as aligned, reverse complemented if requested.
// The slice must not be modified.
func (a *Alignment) Query() []byte { return a.query }

// Target returns the target as aligned. The slice must not be modified.
func (a *Alignment) Target() []byte { return a.target }

// IsReverseComplementQuery reports whether the query was reverse complemented on add.
func (a *Alignment) IsReverseComplementQuery() bool { return a.rcQuery }

// IsReverseComplementTarget reports whether the target was reverse complemented on add.
func (a *Alignment) IsReverseComplementTarget() bool { return a.rcTarget }

// EditDistance returns the edit distance, or -1 unless the status is StatusSuccess.
func (a *Alignment) EditDistance() int { return a.distance }

// Status returns the outcome of the request.
func (a *Alignment) Status() Status { return a.status }

// Bandwidth returns the bandwidth of the final attempt.
func (a *Alignment) Bandwidth() int { return a.bandwidth }

// Operations returns a copy of the alignment operations in leading to
// trailing order.
func (a *Alignment) Operations() []Op {
	return slices.Clone(a.ops)
}

// CIGAR returns the operations run-length encoded with M for aligned
// positions (match or mismatch), I for insertions and D for deletions.
func (a *Alignment) CIGAR() string {
	return cigar(a.ops, func(op Op) byte {
		switch op {
		case Insertion:
			return 'I'
		case Deletion:
			return 'D'
		default:
			return 'M'
		}
	})
}

// ExtendedCIGAR is CIGAR with matches as '=' and mismatches as 'X'.
func (a *Alignment) ExtendedCIGAR() string {
	return cigar(a.ops, func(op Op) byte {
		switch op {
		case Match:
			return '='
		case Mismatch:
			return 'X'
		case Insertion:
			return 'I'
		default:
			return 'D'
		}
	})
}

func cigar(ops []Op, code func(Op) byte) string {
	var sb strings.Builder
	for i := 0; i < len(ops); {
		c := code(ops[i])
		j := i + 1
		for j < len(ops) && code(ops[j]) == c {
			j++
		}
		sb.WriteString(strconv.Itoa(j - i))
		sb.WriteByte(c)
		i = j
	}
	return sb.String()
}

// Format renders the alignment on three lines: query, match markers and
// target, with '-' for gaps, '|' for matches and 'x' for mismatches.
func (a *Alignment) Format() string {
	if a.status != StatusSuccess {
		return a.status.String()
	}
	var q, mid, t strings.Builder
	i, j := 0, 0
	for _, op := range a.ops {
		switch op {
		case Match, Mismatch:
			q.WriteByte(a.query[i])
			t.WriteByte(a.target[j])
			if op == Match {
				mid.WriteByte('|')
			} else {
				mid.WriteByte('x')
			}
			i++
			j++
		case Insertion:
			q.WriteByte(a.query[i])
			mid.WriteByte(' ')
			t.WriteByte('-')
			i++
		case Deletion:
			q.WriteByte('-')
			mid.WriteByte(' ')
			t.WriteByte(a.target[j])
			j++
		}
	}
	return q.String() + "\n" + mid.String() + "\n" + t.String()
}
