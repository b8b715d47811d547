// Package align contains the commands that run batches of alignments.
package align

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/LynnColeArt/bandalign"
	"github.com/LynnColeArt/bandalign/device"
	"github.com/LynnColeArt/bandalign/logging"
)

const inputFlag = "input"

// Pair is one line of align input.
type Pair struct {
	Query    string
	Target   string
	RCQuery  bool
	RCTarget bool
}

// NewAlignCommand returns the command that aligns sequence pairs read from a file or stdin.
func NewAlignCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "align",
		Short: "Align sequence pairs",
		Long: `Align sequence pairs read from --input (stdin by default).

Each non-empty line holds a query and a target separated by whitespace and an
optional strand field: two characters from '+' and '-' giving the orientation of
the query and the target, e.g. '+-' aligns the query against the reverse
complement of the target. Lines starting with '#' are ignored.`,
		RunE: runAlign,
		Args: cobra.NoArgs,
	}

	flags := cmd.Flags()
	flags.StringP(inputFlag, "i", "-", "the file to read sequence pairs from ('-' for stdin)")
	addAlignerFlags(flags)

	cmd.PreRun = bindAlignerFlagsFunc(flags)

	return cmd
}

func runAlign(cmd *cobra.Command, _ []string) error {
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

	in := cmd.InOrStdin()
	if path, _ := cmd.Flags().GetString(inputFlag); path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	pairs, err := ReadPairs(in)
	if err != nil {
		return err
	}

	results, err := alignPairs(config.Aligner, logger, pairs)
	if err != nil {
		return err
	}
	logger.Info("alignments complete", zap.Int("pairs", len(pairs)))

	return writeResults(cmd.OutOrStdout(), config.Output, results)
}

// ReadPairs parses align input.
func ReadPairs(r io.Reader) ([]Pair, error) {
	var pairs []Pair
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1<<26)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) < 2 || len(fields) > 3 {
			return nil, fmt.Errorf("line %d: expected 'query target [strand]', got %d fields", line, len(fields))
		}
		p := Pair{Query: fields[0], Target: fields[1]}
		if len(fields) == 3 {
			strand := fields[2]
			if len(strand) != 2 || strings.Trim(strand, "+-") != "" {
				return nil, fmt.Errorf("line %d: invalid strand %q", line, strand)
			}
			p.RCQuery = strand[0] == '-'
			p.RCTarget = strand[1] == '-'
		}
		pairs = append(pairs, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return pairs, nil
}

// alignPairs runs pairs through a single aligner on its own context.
func alignPairs(config AlignerConfig, logger logging.Logger, pairs []Pair) ([]*bandalign.Alignment, error) {
	opts, err := config.options(logger)
	if err != nil {
		return nil, err
	}

	ctx := device.NewContext()
	defer ctx.Destroy()

	a, err := bandalign.NewGlobalBandedAligner(config.MaxDeviceMemory, config.MaxBandwidth, ctx.Allocator(), ctx.CreateStream(), ctx.Device().ID, opts...)
	if err != nil {
		return nil, err
	}
	defer a.Destroy()

	for i, p := range pairs {
		if err := a.AddAlignment([]byte(p.Query), []byte(p.Target), p.RCQuery, p.RCTarget); err != nil {
			return nil, fmt.Errorf("pair %d: %w", i, err)
		}
	}
	if err := alignAll(a, logger); err != nil {
		return nil, err
	}
	return a.Alignments(), nil
}

// alignAll launches every queued pair and waits for the results. Pairs too
// large for the memory budget come back with status failed, so that error
// is logged and the rest of the batch is kept.
func alignAll(a *bandalign.GlobalBandedAligner, logger logging.Logger) error {
	if err := a.AlignAll(); err != nil {
		if !bandalign.IsOutOfMemoryError(err) {
			return err
		}
		logger.Warn("pairs exceed the device memory budget", zap.String("aligner", a.ID()), zap.Error(err))
	}
	return a.SyncAlignments()
}
