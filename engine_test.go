package bandalign

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sourcegraph/conc/pool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/LynnColeArt/bandalign/compute/myers"
	"github.com/LynnColeArt/bandalign/device"
	"github.com/LynnColeArt/bandalign/internal/mocks"
	"github.com/LynnColeArt/bandalign/logging"
	"github.com/LynnColeArt/bandalign/planner"
)

const (
	testBudget = 64 << 20
	randomSeed = 5827349
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestAligner(t *testing.T, budget int64, maxBandwidth int, opts ...Option) (*GlobalBandedAligner, *device.Context) {
	t.Helper()
	ctx := device.NewContext()
	t.Cleanup(ctx.Destroy)

	opts = append([]Option{WithLogger(logging.NewNoopLogger())}, opts...)
	a, err := NewGlobalBandedAligner(budget, maxBandwidth, ctx.Allocator(), ctx.CreateStream(), 0, opts...)
	require.NoError(t, err)
	t.Cleanup(a.Destroy)
	return a, ctx
}

type pair struct {
	query, target string
}

func randomSequence(rng *rand.Rand, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = "ACGT"[rng.Intn(4)]
	}
	return out
}

func mutate(rng *rand.Rand, seq []byte, edits int) []byte {
	out := append([]byte(nil), seq...)
	for e := 0; e < edits; e++ {
		pos := rng.Intn(len(out) + 1)
		switch rng.Intn(3) {
		case 0:
			if pos < len(out) {
				out[pos] = "ACGT"[rng.Intn(4)]
			}
		case 1:
			out = append(out[:pos], append([]byte{"ACGT"[rng.Intn(4)]}, out[pos:]...)...)
		case 2:
			if pos < len(out) {
				out = append(out[:pos], out[pos+1:]...)
			}
		}
	}
	return out
}

// requireOptimal checks a successful result against the unbanded oracle.
func requireOptimal(t *testing.T, res *Alignment) {
	t.Helper()
	var ref myers.Reference
	require.Equal(t, StatusSuccess, res.Status())

	want := ref.EditDistance(res.Query(), res.Target())
	require.Equal(t, want, res.EditDistance())

	cost, ok := ref.Apply(res.Query(), res.Target(), res.Operations())
	require.True(t, ok, "operations do not consume both sequences")
	require.Equal(t, want, cost)
}

func TestLiteralScenarios(t *testing.T) {
	cases := []struct {
		pair
		distance int
	}{
		{pair{query: "CGTCGTCGTC", target: "AAAAAAAAAA"}, 10},
		{pair{query: "CGTCGTCGTC", target: "CGTCGTCGTC"}, 0},
		{pair{query: "CGTCGTCGTC", target: ""}, 10},
		{pair{query: "", target: "AATAATAATA"}, 10},
		{pair{query: "CGTCGTCGTC", target: "AATAATAATA"}, 7},
		{pair{query: "AGTCGTCGTCCGTAATCGTCCGTCGTCGTCGA", target: "CGTCGTCGTCCGTCGTCGTCCGTCGTCGTCGT"}, 4},
		{pair{query: "AGTCGTCGTCCGTAATCGTCCGTCGTCGTCGTA", target: "CGTCGTCGTCCGTCGTCGTCCGTCGTCGTCGTC"}, 4},
		{pair{query: strings.Repeat("A", 96), target: strings.Repeat("GTC", 32)}, 96},
	}

	a, _ := newTestAligner(t, testBudget, 256)
	for _, tc := range cases {
		require.NoError(t, a.AddAlignment([]byte(tc.query), []byte(tc.target), false, false))
	}
	require.NoError(t, a.AlignAll())
	require.NoError(t, a.SyncAlignments())

	results := a.Alignments()
	require.Len(t, results, len(cases))
	for i, tc := range cases {
		res := results[i]
		assert.Equal(t, tc.distance, res.EditDistance(), "case %d", i)
		assert.Equal(t, tc.query, string(res.Query()))
		assert.Equal(t, tc.target, string(res.Target()))
		requireOptimal(t, res)
	}
}

func TestRandomPairsMatchReference(t *testing.T) {
	rng := rand.New(rand.NewSource(randomSeed))
	a, _ := newTestAligner(t, testBudget, 2048, WithInitialBandwidth(32))

	computed := testutil.ToFloat64(pairsComputedCounter)

	const n = 40
	for i := 0; i < n; i++ {
		target := randomSequence(rng, 1+rng.Intn(1500))
		query := mutate(rng, target, rng.Intn(len(target)/8+2))
		require.NoError(t, a.AddAlignment(query, target, false, false))
	}
	require.NoError(t, a.AlignAll())
	require.NoError(t, a.SyncAlignments())

	results := a.Alignments()
	require.Len(t, results, n)
	for _, res := range results {
		requireOptimal(t, res)
	}
	assert.GreaterOrEqual(t, testutil.ToFloat64(pairsComputedCounter)-computed, float64(n))
}

func TestResultOrderUnderSmallBudget(t *testing.T) {
	rng := rand.New(rand.NewSource(randomSeed + 1))
	const maxBandwidth = 256

	var pairs []pair
	var largest int64
	for i := 0; i < 30; i++ {
		target := randomSequence(rng, 20+rng.Intn(180))
		query := mutate(rng, target, rng.Intn(10))
		pairs = append(pairs, pair{string(query), string(target)})
		largest = max(largest, cost(&request{query: query, target: target, band: maxBandwidth}))
	}
	budget := 2 * largest

	a, _ := newTestAligner(t, budget, maxBandwidth, WithInitialBandwidth(4))
	var chunks []planner.Chunk
	a.chunkHook = func(c planner.Chunk) { chunks = append(chunks, c) }

	for _, p := range pairs {
		require.NoError(t, a.AddAlignment([]byte(p.query), []byte(p.target), false, false))
	}
	require.NoError(t, a.AlignAll())
	require.NoError(t, a.SyncAlignments())

	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		require.LessOrEqual(t, c.Bytes, budget)
	}

	results := a.Alignments()
	require.Len(t, results, len(pairs))
	for i, p := range pairs {
		require.Equal(t, p.query, string(results[i].Query()), "result %d out of order", i)
		require.Equal(t, p.target, string(results[i].Target()))
		requireOptimal(t, results[i])
	}
}

func TestSyncIsIdempotent(t *testing.T) {
	a, _ := newTestAligner(t, testBudget, 64)
	require.NoError(t, a.AddAlignment([]byte("ACGTACGT"), []byte("ACGAACGT"), false, false))
	require.NoError(t, a.AddAlignment([]byte("TTTT"), []byte("TTT"), false, false))
	require.NoError(t, a.AlignAll())

	require.NoError(t, a.SyncAlignments())
	first := a.Alignments()
	require.NoError(t, a.SyncAlignments())
	second := a.Alignments()

	require.Len(t, first, 2)
	require.Equal(t, first, second)
	for i := range first {
		require.Same(t, first[i], second[i])
	}

	// The returned slice is a copy.
	first[0] = nil
	require.NotNil(t, a.Alignments()[0])
}

func TestSyncSchedulesPendingRequests(t *testing.T) {
	a, _ := newTestAligner(t, testBudget, 64)
	require.NoError(t, a.AddAlignment([]byte("ACGT"), []byte("ACGT"), false, false))
	require.NoError(t, a.AlignAll())
	require.NoError(t, a.AddAlignment([]byte("ACGT"), []byte("AGT"), false, false))

	require.NoError(t, a.SyncAlignments())
	results := a.Alignments()
	require.Len(t, results, 2)
	assert.Equal(t, 0, results[0].EditDistance())
	assert.Equal(t, 1, results[1].EditDistance())
}

func TestResetBehavesLikeFreshAligner(t *testing.T) {
	rng := rand.New(rand.NewSource(randomSeed + 2))
	var batch []pair
	for i := 0; i < 10; i++ {
		target := randomSequence(rng, 50+rng.Intn(300))
		batch = append(batch, pair{string(mutate(rng, target, 5)), string(target)})
	}

	run := func(a *GlobalBandedAligner) []*Alignment {
		for _, p := range batch {
			require.NoError(t, a.AddAlignment([]byte(p.query), []byte(p.target), false, false))
		}
		require.NoError(t, a.AlignAll())
		require.NoError(t, a.SyncAlignments())
		return a.Alignments()
	}

	used, _ := newTestAligner(t, testBudget, 512, WithMaxAlignments(10))
	require.NoError(t, used.AddAlignment([]byte("GATTACA"), []byte("GATACA"), false, false))
	require.NoError(t, used.AlignAll())
	used.Reset()
	require.Empty(t, used.Alignments())
	require.NoError(t, used.SyncAlignments())
	require.Empty(t, used.Alignments())

	fresh, _ := newTestAligner(t, testBudget, 512, WithMaxAlignments(10))

	got, want := run(used), run(fresh)
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Status(), got[i].Status())
		assert.Equal(t, want[i].EditDistance(), got[i].EditDistance())
		assert.Equal(t, want[i].Operations(), got[i].Operations())
		assert.Equal(t, want[i].Bandwidth(), got[i].Bandwidth())
	}
}

func TestBandRetryWidensBand(t *testing.T) {
	rng := rand.New(rand.NewSource(randomSeed + 3))
	target := randomSequence(rng, 400)
	query := target[100:]

	a, _ := newTestAligner(t, testBudget, 512, WithInitialBandwidth(16))
	retries := testutil.ToFloat64(bandRetryCounter)

	require.NoError(t, a.AddAlignment(query, target, false, false))
	require.NoError(t, a.SyncAlignments())

	res := a.Alignments()[0]
	requireOptimal(t, res)
	assert.Equal(t, 100, res.EditDistance())
	assert.Equal(t, 128, res.Bandwidth())
	assert.Equal(t, float64(3), testutil.ToFloat64(bandRetryCounter)-retries)
}

func TestBandExceededTerminates(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	a, _ := newTestAligner(t, testBudget, 16, WithLogger(&logging.ZapLogger{Logger: zap.New(core)}))
	exceeded := testutil.ToFloat64(alignmentsCounter.WithLabelValues(StatusBandExceeded.String()))

	require.NoError(t, a.AddAlignment([]byte(strings.Repeat("A", 300)), []byte(strings.Repeat("C", 300)), false, false))
	require.NoError(t, a.AddAlignment([]byte(strings.Repeat("ACGT", 25)), []byte("ACGTACGTAC"), false, false))
	require.NoError(t, a.AddAlignment([]byte("ACGT"), []byte("ACGT"), false, false))
	require.NoError(t, a.SyncAlignments())

	results := a.Alignments()
	require.Len(t, results, 3)
	for _, res := range results[:2] {
		assert.Equal(t, StatusBandExceeded, res.Status())
		assert.Equal(t, -1, res.EditDistance())
		assert.Empty(t, res.Operations())
		assert.Equal(t, 16, res.Bandwidth())
	}
	requireOptimal(t, results[2])

	assert.Equal(t, float64(2), testutil.ToFloat64(alignmentsCounter.WithLabelValues(StatusBandExceeded.String()))-exceeded)
	assert.Equal(t, 2, logs.FilterMessage("band exceeded").Len())
}

func TestIncrementalGrowthTerminates(t *testing.T) {
	a, _ := newTestAligner(t, testBudget, 40, WithInitialBandwidth(1), WithGrowthPolicy(IncrementalGrowth{Step: 3}))
	require.NoError(t, a.AddAlignment([]byte(strings.Repeat("A", 200)), []byte(strings.Repeat("T", 200)), false, false))
	require.NoError(t, a.AddAlignment([]byte("ACGTTGCA"), []byte("TGCAACGT"), false, false))
	require.NoError(t, a.SyncAlignments())

	results := a.Alignments()
	assert.Equal(t, StatusBandExceeded, results[0].Status())
	assert.Equal(t, 40, results[0].Bandwidth())
	requireOptimal(t, results[1])
}

func TestNoGrowthReportsBandTooNarrow(t *testing.T) {
	a, _ := newTestAligner(t, testBudget, 512, WithInitialBandwidth(2), WithGrowthPolicy(NoGrowth{}))
	require.NoError(t, a.AddAlignment([]byte("ACGTACGTACGTACGT"), []byte("ACGT"), false, false))
	require.NoError(t, a.SyncAlignments())

	res := a.Alignments()[0]
	assert.Equal(t, StatusBandTooNarrow, res.Status())
	assert.Equal(t, -1, res.EditDistance())
}

func TestOutOfMemory(t *testing.T) {
	rng := rand.New(rand.NewSource(randomSeed + 4))
	big := randomSequence(rng, 2000)

	a, _ := newTestAligner(t, 4096, 128)
	require.NoError(t, a.AddAlignment(big, mutate(rng, big, 20), false, false))
	require.NoError(t, a.AddAlignment([]byte("ACGT"), []byte("ACGA"), false, false))

	err := a.AlignAll()
	require.ErrorIs(t, err, ErrOutOfMemory)
	assert.True(t, IsOutOfMemoryError(err))

	require.NoError(t, a.SyncAlignments())
	results := a.Alignments()
	require.Len(t, results, 2)
	assert.Equal(t, StatusFailed, results[0].Status())
	assert.Equal(t, -1, results[0].EditDistance())
	requireOptimal(t, results[1])
	assert.Equal(t, 1, results[1].EditDistance())
}

func TestWidenedBandOverBudgetIsExceeded(t *testing.T) {
	rng := rand.New(rand.NewSource(randomSeed + 5))
	target := randomSequence(rng, 1000)
	query := target[200:]

	start := &request{query: query, target: target, band: 16}
	a, _ := newTestAligner(t, cost(start)*2, 1024, WithInitialBandwidth(16))
	require.NoError(t, a.AddAlignment(query, target, false, false))
	require.NoError(t, a.SyncAlignments())

	res := a.Alignments()[0]
	assert.Equal(t, StatusBandExceeded, res.Status())
	assert.Less(t, res.Bandwidth(), 1024)
}

func TestAddValidation(t *testing.T) {
	a, _ := newTestAligner(t, testBudget, 64, WithMaxSequenceLength(10), WithMaxAlignments(2))

	err := a.AddAlignment([]byte(strings.Repeat("A", 11)), []byte("A"), false, false)
	require.ErrorIs(t, err, ErrExceedsMaxLength)

	err = a.AddAlignment([]byte("A"), []byte(strings.Repeat("A", 11)), false, false)
	require.ErrorIs(t, err, ErrExceedsMaxLength)

	err = a.AddAlignmentWithBandwidth(0, []byte("A"), []byte("A"), false, false)
	require.ErrorIs(t, err, ErrInvalidInput)

	err = a.AddAlignment([]byte("ACZ"), []byte("A"), true, false)
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.True(t, IsInvalidInputError(err))

	require.NoError(t, a.AddAlignment([]byte("A"), []byte("A"), false, false))
	require.NoError(t, a.AddAlignment([]byte("AC"), []byte("A"), false, false))
	err = a.AddAlignment([]byte("A"), []byte("A"), false, false)
	require.ErrorIs(t, err, ErrExceedsMaxAlignments)

	require.NoError(t, a.SyncAlignments())
	require.Len(t, a.Alignments(), 2)
}

func TestAddCopiesAndOrientsSequences(t *testing.T) {
	a, _ := newTestAligner(t, testBudget, 64)

	query := []byte("AACG")
	target := []byte("CGTT")
	require.NoError(t, a.AddAlignment(query, target, true, false))
	require.NoError(t, a.AddAlignment(query, target, false, true))
	query[0] = 'T'

	require.NoError(t, a.SyncAlignments())
	results := a.Alignments()

	assert.True(t, results[0].IsReverseComplementQuery())
	assert.False(t, results[0].IsReverseComplementTarget())
	assert.Equal(t, "CGTT", string(results[0].Query()))
	assert.Equal(t, 0, results[0].EditDistance())

	assert.True(t, results[1].IsReverseComplementTarget())
	assert.Equal(t, "AACG", string(results[1].Query()))
	assert.Equal(t, "AACG", string(results[1].Target()))
	assert.Equal(t, 0, results[1].EditDistance())
}

func TestResetMaxBandwidthReattempts(t *testing.T) {
	rng := rand.New(rand.NewSource(randomSeed + 6))
	target := randomSequence(rng, 300)
	query := target[:200]

	a, _ := newTestAligner(t, testBudget, 32, WithInitialBandwidth(32))
	require.NoError(t, a.AddAlignment(query, target, false, false))
	require.NoError(t, a.AddAlignment([]byte("GATTACA"), []byte("GATTACA"), false, false))
	require.NoError(t, a.SyncAlignments())

	before := a.Alignments()
	require.Equal(t, StatusBandExceeded, before[0].Status())
	require.Equal(t, StatusSuccess, before[1].Status())

	require.Error(t, a.ResetMaxBandwidth(0))
	require.NoError(t, a.ResetMaxBandwidth(256))
	assert.Equal(t, 256, a.MaxBandwidth())
	require.NoError(t, a.SyncAlignments())

	after := a.Alignments()
	require.Len(t, after, 2)
	requireOptimal(t, after[0])
	assert.Equal(t, 100, after[0].EditDistance())
	assert.Same(t, before[1], after[1], "finished results are kept")
}

func TestAlignmentsDevice(t *testing.T) {
	a, ctx := newTestAligner(t, testBudget, 16)
	require.NoError(t, a.AddAlignment([]byte("ACGTT"), []byte("ACGT"), false, false))
	require.NoError(t, a.AddAlignment([]byte(strings.Repeat("A", 100)), []byte("A"), false, false))
	require.NoError(t, a.AddAlignment([]byte("GG"), []byte("CC"), false, false))
	require.NoError(t, a.SyncAlignments())

	d, err := a.AlignmentsDevice()
	require.NoError(t, err)
	again, err := a.AlignmentsDevice()
	require.NoError(t, err)
	require.Same(t, d, again)

	results := a.Alignments()
	require.Equal(t, len(results), d.Count)
	assert.Equal(t, 5, d.Stride)
	for k, res := range results {
		assert.Equal(t, len(res.Operations()), d.Length(k))
		assert.Equal(t, res.EditDistance(), d.Distance(k))
		assert.Equal(t, res.Operations(), d.Operations(k))
	}
	assert.Equal(t, 0, d.Length(1))
	assert.Equal(t, -1, d.Distance(1))

	a.Destroy()
	allocated, _ := ctx.Allocator().Stats()
	assert.Zero(t, allocated, "destroy must release all device memory")

	_, err = a.AlignmentsDevice()
	require.ErrorIs(t, err, ErrInvalidInput)
	require.ErrorIs(t, a.AddAlignment([]byte("A"), []byte("A"), false, false), ErrInvalidInput)
	require.ErrorIs(t, a.AlignAll(), ErrInvalidInput)
	require.ErrorIs(t, a.SyncAlignments(), ErrInvalidInput)
}

func TestAlignmentsDeviceEmpty(t *testing.T) {
	a, _ := newTestAligner(t, testBudget, 16)
	require.NoError(t, a.SyncAlignments())

	d, err := a.AlignmentsDevice()
	require.NoError(t, err)
	assert.Zero(t, d.Count)
	assert.True(t, d.Ops.IsNil())
}

func TestDeviceErrorIsStickyUntilReset(t *testing.T) {
	ctrl := gomock.NewController(t)
	alloc := mocks.NewMockAllocator(ctrl)

	ctx := device.NewContext()
	defer ctx.Destroy()

	a, err := NewGlobalBandedAligner(testBudget, 64, alloc, ctx.CreateStream(), 0, WithLogger(logging.NewNoopLogger()))
	require.NoError(t, err)

	alloc.EXPECT().Allocate(gomock.Any()).Return(device.DevicePtr{}, device.ErrOutOfMemory)

	require.NoError(t, a.AddAlignment([]byte("ACGT"), []byte("ACGA"), false, false))
	require.NoError(t, a.AlignAll())

	err = a.SyncAlignments()
	require.ErrorIs(t, err, ErrDevice)
	require.ErrorIs(t, err, device.ErrOutOfMemory)
	assert.True(t, IsDeviceError(err))

	results := a.Alignments()
	require.Len(t, results, 1)
	assert.Equal(t, StatusFailed, results[0].Status())

	require.NoError(t, a.AddAlignment([]byte("ACGT"), []byte("ACGT"), false, false))
	require.ErrorIs(t, a.AlignAll(), ErrDevice)
	require.ErrorIs(t, a.SyncAlignments(), ErrDevice)

	a.Reset()

	mem := device.NewMemoryPool()
	alloc.EXPECT().Allocate(gomock.Any()).DoAndReturn(mem.Allocate)
	alloc.EXPECT().Free(gomock.Any()).DoAndReturn(mem.Free)

	require.NoError(t, a.AddAlignment([]byte("ACGT"), []byte("ACGA"), false, false))
	require.NoError(t, a.SyncAlignments())
	requireOptimal(t, a.Alignments()[0])

	a.Destroy()
	allocated, _ := mem.Stats()
	assert.Zero(t, allocated)
}

func TestScratchReallocatedWholesale(t *testing.T) {
	ctrl := gomock.NewController(t)
	alloc := mocks.NewMockAllocator(ctrl)
	mem := device.NewMemoryPool()

	var events []string
	alloc.EXPECT().Allocate(gomock.Any()).DoAndReturn(func(size int) (device.DevicePtr, error) {
		events = append(events, fmt.Sprintf("allocate %d", size))
		return mem.Allocate(size)
	}).AnyTimes()
	alloc.EXPECT().Free(gomock.Any()).DoAndReturn(func(p device.DevicePtr) error {
		events = append(events, "free")
		return mem.Free(p)
	}).AnyTimes()

	ctx := device.NewContext()
	defer ctx.Destroy()
	a, err := NewGlobalBandedAligner(testBudget, 128, alloc, ctx.CreateStream(), 0, WithLogger(logging.NewNoopLogger()))
	require.NoError(t, err)

	small := []byte(strings.Repeat("ACGT", 4))
	large := []byte(strings.Repeat("ACGTC", 12))
	smallCost := cost(&request{query: small, target: small, band: 128})
	largeCost := cost(&request{query: large, target: large, band: 128})
	reallocations := testutil.ToFloat64(scratchReallocationCounter)

	require.NoError(t, a.AddAlignment(small, small, false, false))
	require.NoError(t, a.SyncAlignments())

	// Fits the current buffer.
	require.NoError(t, a.AddAlignment(small[:8], small[:8], false, false))
	require.NoError(t, a.SyncAlignments())

	require.NoError(t, a.AddAlignment(large, large, false, false))
	require.NoError(t, a.SyncAlignments())

	require.NoError(t, a.ResetMaxBandwidth(256))
	require.NoError(t, a.AddAlignment(small, small, false, false))
	require.NoError(t, a.SyncAlignments())
	for _, res := range a.Alignments() {
		requireOptimal(t, res)
	}
	a.Destroy()

	require.Equal(t, []string{
		fmt.Sprintf("allocate %d", smallCost),
		"free",
		fmt.Sprintf("allocate %d", largeCost),
		"free",
		fmt.Sprintf("allocate %d", smallCost),
		"free",
	}, events)
	assert.Equal(t, float64(3), testutil.ToFloat64(scratchReallocationCounter)-reallocations)
}

func TestConcurrentAligners(t *testing.T) {
	ctx := device.NewContext()
	defer ctx.Destroy()

	const instances = 4
	rng := rand.New(rand.NewSource(randomSeed + 7))
	batches := make([][]pair, instances)
	aligners := make([]*GlobalBandedAligner, instances)
	for i := range aligners {
		a, err := NewGlobalBandedAligner(1<<20, 512, ctx.Allocator(), ctx.CreateStream(), 0, WithLogger(logging.NewNoopLogger()))
		require.NoError(t, err)
		defer a.Destroy()
		aligners[i] = a
		for k := 0; k < 20; k++ {
			target := randomSequence(rng, 10+rng.Intn(400))
			batches[i] = append(batches[i], pair{string(mutate(rng, target, rng.Intn(20))), string(target)})
		}
	}

	p := pool.New().WithErrors()
	for i, a := range aligners {
		i, a := i, a
		p.Go(func() error {
			for _, pr := range batches[i] {
				if err := a.AddAlignment([]byte(pr.query), []byte(pr.target), false, false); err != nil {
					return err
				}
			}
			if err := a.AlignAll(); err != nil {
				return err
			}
			return a.SyncAlignments()
		})
	}
	require.NoError(t, p.Wait())

	var ref myers.Reference
	for i, a := range aligners {
		results := a.Alignments()
		require.Len(t, results, len(batches[i]))
		for k, res := range results {
			require.True(t, bytes.Equal([]byte(batches[i][k].query), res.Query()))
			require.Equal(t, ref.EditDistance(res.Query(), res.Target()), res.EditDistance())
		}
	}
}

func TestNewGlobalBandedAlignerArguments(t *testing.T) {
	ctx := device.NewContext()
	defer ctx.Destroy()
	s := ctx.CreateStream()
	alloc := ctx.Allocator()

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{"zero budget", func() error { _, err := NewGlobalBandedAligner(0, 8, alloc, s, 0); return err }, ErrInvalidInput},
		{"zero bandwidth", func() error { _, err := NewGlobalBandedAligner(1, 0, alloc, s, 0); return err }, ErrInvalidInput},
		{"nil allocator", func() error { _, err := NewGlobalBandedAligner(1, 8, nil, s, 0); return err }, ErrInvalidInput},
		{"nil stream", func() error { _, err := NewGlobalBandedAligner(1, 8, alloc, nil, 0); return err }, ErrInvalidInput},
		{"unknown device", func() error { _, err := NewGlobalBandedAligner(1, 8, alloc, s, 3); return err }, ErrDevice},
		{"bad initial bandwidth", func() error {
			_, err := NewGlobalBandedAligner(1, 8, alloc, s, 0, WithInitialBandwidth(-1))
			return err
		}, ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tt.call(), tt.want)
		})
	}

	a, err := NewGlobalBandedAligner(1024, 8, alloc, s, 0)
	require.NoError(t, err)
	assert.Same(t, s, a.Stream())
	assert.Equal(t, 0, a.DeviceID())
	assert.Equal(t, device.Allocator(alloc), a.Allocator())
	assert.Equal(t, 8, a.MaxBandwidth())
	assert.EqualValues(t, 1024, a.MaxDeviceMemory())
	assert.NotEmpty(t, a.ID())
}

func TestNewAligner(t *testing.T) {
	ctx := device.NewContext()
	defer ctx.Destroy()

	a, err := NewAligner(GlobalMyersBanded, 1<<20, 64, ctx.Allocator(), ctx.CreateStream(), 0)
	require.NoError(t, err)
	_, ok := a.(FixedBandAligner)
	require.True(t, ok)
	a.Destroy()

	for _, typ := range []AlignerType{GlobalMyers, GlobalHirschbergMyers, UngappedXDrop} {
		a, err := NewAligner(typ, 1<<20, 64, ctx.Allocator(), ctx.CreateStream(), 0)
		require.Nil(t, a)
		require.ErrorIs(t, err, ErrNotImplemented)
		assert.True(t, IsNotImplementedError(err))
		assert.Contains(t, err.Error(), typ.String())
	}

	_, err = NewAligner(GlobalMyersBanded, 0, 64, ctx.Allocator(), ctx.CreateStream(), 0)
	require.True(t, errors.Is(err, ErrInvalidInput))
}
