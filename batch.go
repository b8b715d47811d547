package bandalign

import (
	"fmt"
)

// request is one enqueued pair. Sequences are batch-owned copies, already
// in the orientation they are aligned in.
type request struct {
	query, target     []byte
	rcQuery, rcTarget bool
	band              int // bandwidth of the next attempt
	initialBand       int
}

// RequestBatch accumulates alignment requests. A request's identity is its
// insertion index; requests stay pending until an AlignAll hands them to
// the device.
type RequestBatch struct {
	requests []*request
	pending  []int

	maxSequenceLen int
	maxAlignments  int
}

// NewRequestBatch creates a batch. Zero limits disable the checks.
func NewRequestBatch(maxSequenceLen, maxAlignments int) *RequestBatch {
	return &RequestBatch{
		maxSequenceLen: maxSequenceLen,
		maxAlignments:  maxAlignments,
	}
}

// Add validates and copies a pair into the batch and returns its index.
// With rcQuery or rcTarget set the corresponding sequence is stored as its
// reverse complement.
func (b *RequestBatch) Add(query, target []byte, rcQuery, rcTarget bool, band int) (int, error) {
	const op = "AddAlignment"
	if band <= 0 {
		return -1, NewInvalidInputError(op, fmt.Sprintf("bandwidth must be positive, got %d", band))
	}
	if b.maxAlignments > 0 && len(b.requests) >= b.maxAlignments {
		return -1, newError(ErrTypeExceedsMaxAlignments, op,
			fmt.Sprintf("batch already holds %d alignments", b.maxAlignments), nil)
	}
	if b.maxSequenceLen > 0 && (len(query) > b.maxSequenceLen || len(target) > b.maxSequenceLen) {
		return -1, newError(ErrTypeExceedsMaxLength, op,
			fmt.Sprintf("lengths %d/%d exceed maximum %d", len(query), len(target), b.maxSequenceLen), nil)
	}

	q, err := orient(query, rcQuery)
	if err != nil {
		return -1, NewInvalidInputError(op, "query: "+err.Error())
	}
	t, err := orient(target, rcTarget)
	if err != nil {
		return -1, NewInvalidInputError(op, "target: "+err.Error())
	}

	idx := len(b.requests)
	b.requests = append(b.requests, &request{
		query:       q,
		target:      t,
		rcQuery:     rcQuery,
		rcTarget:    rcTarget,
		band:        band,
		initialBand: band,
	})
	b.pending = append(b.pending, idx)
	return idx, nil
}

// Len returns the number of requests added since the last reset.
func (b *RequestBatch) Len() int {
	return len(b.requests)
}

// Pending returns the number of requests not yet handed to the device.
func (b *RequestBatch) Pending() int {
	return len(b.pending)
}

// Reset drops every request.
func (b *RequestBatch) Reset() {
	b.requests = nil
	b.pending = nil
}

// take hands the pending requests over to a job.
func (b *RequestBatch) take() []int {
	p := b.pending
	b.pending = nil
	return p
}

func (b *RequestBatch) requeue(idx int, band int) {
	b.requests[idx].band = band
	b.pending = append(b.pending, idx)
}

func (b *RequestBatch) get(idx int) *request {
	return b.requests[idx]
}

var complement [256]byte

func init() {
	pairs := []string{
		"AT", "CG", "GC", "TA", "UA",
		"RY", "YR", "SS", "WW", "KM", "MK",
		"BV", "VB", "DH", "HD", "NN",
	}
	for _, p := range pairs {
		complement[p[0]] = p[1]
		complement[p[0]+'a'-'A'] = p[1] + 'a' - 'A'
	}
	complement['-'] = '-'
}

func orient(seq []byte, rc bool) ([]byte, error) {
	if !rc {
		return append([]byte(nil), seq...), nil
	}
	return reverseComplement(seq)
}

// reverseComplement returns the reverse complement of an IUPAC nucleotide
// sequence.
func reverseComplement(seq []byte) ([]byte, error) {
	n := len(seq)
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		c := complement[seq[n-1-i]]
		if c == 0 {
			return nil, fmt.Errorf("no complement for %q at position %d", seq[n-1-i], n-1-i)
		}
		out[i] = c
	}
	return out, nil
}
