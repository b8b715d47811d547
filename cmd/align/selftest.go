package align

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/LynnColeArt/bandalign"
	"github.com/LynnColeArt/bandalign/cmd/util"
	"github.com/LynnColeArt/bandalign/compute/myers"
	"github.com/LynnColeArt/bandalign/device"
	"github.com/LynnColeArt/bandalign/logging"
)

const (
	instancesFlag = "instances"
	pairsFlag     = "pairs"
	lengthFlag    = "length"
	editsFlag     = "edits"
	seedFlag      = "seed"
)

// SelfTestOptions sizes the generated workload.
type SelfTestOptions struct {
	Instances int
	Pairs     int
	Length    int
	Edits     int
	Seed      int64
}

// Report summarizes a self-test run.
type Report struct {
	Instances  int            `json:"instances"`
	Pairs      int            `json:"pairs"`
	Statuses   map[string]int `json:"statuses"`
	Mismatches []Mismatch     `json:"mismatches,omitempty"`
	Duration   string         `json:"duration"`
}

// Mismatch is a successful alignment that disagrees with the unbanded oracle.
type Mismatch struct {
	Instance int    `json:"instance"`
	Index    int    `json:"index"`
	Got      int    `json:"got"`
	Want     int    `json:"want"`
	Reason   string `json:"reason"`
}

// NewSelfTestCommand returns the command that checks concurrent aligners against
// the unbanded reference on generated pairs.
func NewSelfTestCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "selftest",
		Short: "Check aligners against the unbanded reference",
		Long: `Generate random sequence pairs, align them on several concurrent aligners that
share one device and verify every successful result against an unbanded
edit-distance computation. Exits with an error if any result disagrees.`,
		RunE: runSelfTest,
		Args: cobra.NoArgs,
	}

	flags := cmd.Flags()
	flags.Int(instancesFlag, 4, "the number of aligners run concurrently, each on its own stream")
	flags.Int(pairsFlag, 64, "the number of pairs aligned by each aligner")
	flags.Int(lengthFlag, 500, "the maximum target length")
	flags.Int(editsFlag, 25, "the maximum number of random edits applied to derive each query")
	flags.Int64(seedFlag, 1, "the random seed")
	addAlignerFlags(flags)

	bindAligner := bindAlignerFlagsFunc(flags)
	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		bindAligner(cmd, args)
		for _, name := range []string{instancesFlag, pairsFlag, lengthFlag, editsFlag, seedFlag} {
			util.MustBindPFlag("selftest."+name, flags.Lookup(name))
		}
	}

	return cmd
}

func runSelfTest(cmd *cobra.Command, _ []string) error {
	config, err := ReadConfig()
	if err != nil {
		return err
	}
	if err := config.Verify(); err != nil {
		return err
	}

	if err := logging.Init(config.Log.Format, config.Log.Level); err != nil {
		return err
	}
	logger := logging.L()

	opts := SelfTestOptions{
		Instances: viper.GetInt("selftest." + instancesFlag),
		Pairs:     viper.GetInt("selftest." + pairsFlag),
		Length:    viper.GetInt("selftest." + lengthFlag),
		Edits:     viper.GetInt("selftest." + editsFlag),
		Seed:      viper.GetInt64("selftest." + seedFlag),
	}

	report, err := SelfTest(config.Aligner, logger, opts)
	if err != nil {
		return err
	}

	if config.Output == OutputText {
		fmt.Fprintf(cmd.OutOrStdout(), "aligned %d pairs on %d aligners in %s\n", report.Instances*report.Pairs, report.Instances, report.Duration)
		for _, s := range []bandalign.Status{bandalign.StatusSuccess, bandalign.StatusBandTooNarrow, bandalign.StatusBandExceeded, bandalign.StatusFailed} {
			fmt.Fprintf(cmd.OutOrStdout(), "  %-16s %d\n", s, report.Statuses[s.String()])
		}
		for _, m := range report.Mismatches {
			fmt.Fprintf(cmd.OutOrStdout(), "  MISMATCH aligner %d pair %d: got %d want %d (%s)\n", m.Instance, m.Index, m.Got, m.Want, m.Reason)
		}
	} else if err := encode(cmd.OutOrStdout(), config.Output, report); err != nil {
		return err
	}

	if len(report.Mismatches) > 0 {
		return fmt.Errorf("%d alignments disagree with the reference", len(report.Mismatches))
	}
	return nil
}

// SelfTest aligns generated pairs on opts.Instances aligners sharing one
// device context and compares every successful result with myers.Reference.
func SelfTest(config AlignerConfig, logger logging.Logger, opts SelfTestOptions) (*Report, error) {
	if opts.Instances <= 0 || opts.Pairs < 0 || opts.Length < 0 || opts.Edits < 0 {
		return nil, fmt.Errorf("invalid self-test options %+v", opts)
	}
	alignerOpts, err := config.options(logger)
	if err != nil {
		return nil, err
	}

	ctx := device.NewContext()
	defer ctx.Destroy()

	report := &Report{
		Instances: opts.Instances,
		Pairs:     opts.Pairs,
		Statuses:  make(map[string]int),
	}
	var mu sync.Mutex

	start := time.Now()
	p := pool.New().WithErrors()
	for i := 0; i < opts.Instances; i++ {
		i := i
		p.Go(func() error {
			a, err := bandalign.NewGlobalBandedAligner(config.MaxDeviceMemory, config.MaxBandwidth, ctx.Allocator(), ctx.CreateStream(), ctx.Device().ID, alignerOpts...)
			if err != nil {
				return err
			}
			defer a.Destroy()

			rng := rand.New(rand.NewSource(opts.Seed + int64(i)))
			for k := 0; k < opts.Pairs; k++ {
				target := randomSequence(rng, rng.Intn(opts.Length+1))
				query := mutate(rng, target, rng.Intn(opts.Edits+1))
				if err := a.AddAlignment(query, target, false, false); err != nil {
					return err
				}
			}
			if err := alignAll(a, logger); err != nil {
				return err
			}

			statuses, mismatches := check(i, a.Alignments())
			logger.Debug("aligner finished", zap.String("aligner", a.ID()), zap.Int("mismatches", len(mismatches)))

			mu.Lock()
			defer mu.Unlock()
			for s, n := range statuses {
				report.Statuses[s] += n
			}
			report.Mismatches = append(report.Mismatches, mismatches...)
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	report.Duration = time.Since(start).Round(time.Millisecond).String()
	return report, nil
}

func check(instance int, results []*bandalign.Alignment) (map[string]int, []Mismatch) {
	var ref myers.Reference
	statuses := make(map[string]int)
	var mismatches []Mismatch
	for k, res := range results {
		statuses[res.Status().String()]++
		if res.Status() != bandalign.StatusSuccess {
			continue
		}
		want := ref.EditDistance(res.Query(), res.Target())
		if res.EditDistance() != want {
			mismatches = append(mismatches, Mismatch{instance, k, res.EditDistance(), want, "distance"})
			continue
		}
		if cost, ok := ref.Apply(res.Query(), res.Target(), res.Operations()); !ok || cost != want {
			mismatches = append(mismatches, Mismatch{instance, k, cost, want, "operations"})
		}
	}
	return statuses, mismatches
}

func randomSequence(rng *rand.Rand, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = "ACGT"[rng.Intn(4)]
	}
	return out
}

// mutate applies up to edits random substitutions, insertions and deletions.
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
