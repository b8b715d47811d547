package align

import (
	"encoding/json"
	"fmt"
	"io"

	"sigs.k8s.io/yaml"

	"github.com/LynnColeArt/bandalign"
)

// Record is the serialized form of one alignment result.
type Record struct {
	Index         int    `json:"index"`
	Status        string `json:"status"`
	EditDistance  int    `json:"editDistance"`
	Bandwidth     int    `json:"bandwidth"`
	CIGAR         string `json:"cigar,omitempty"`
	ExtendedCIGAR string `json:"extendedCigar,omitempty"`
	RCQuery       bool   `json:"rcQuery,omitempty"`
	RCTarget      bool   `json:"rcTarget,omitempty"`
}

func newRecord(i int, a *bandalign.Alignment) Record {
	return Record{
		Index:         i,
		Status:        a.Status().String(),
		EditDistance:  a.EditDistance(),
		Bandwidth:     a.Bandwidth(),
		CIGAR:         a.CIGAR(),
		ExtendedCIGAR: a.ExtendedCIGAR(),
		RCQuery:       a.IsReverseComplementQuery(),
		RCTarget:      a.IsReverseComplementTarget(),
	}
}

func writeResults(w io.Writer, format string, results []*bandalign.Alignment) error {
	if format == OutputText {
		for i, a := range results {
			r := newRecord(i, a)
			if _, err := fmt.Fprintf(w, "#%d status=%s distance=%d band=%d cigar=%s\n%s\n", r.Index, r.Status, r.EditDistance, r.Bandwidth, r.CIGAR, a.Format()); err != nil {
				return err
			}
		}
		return nil
	}

	records := make([]Record, len(results))
	for i, a := range results {
		records[i] = newRecord(i, a)
	}
	return encode(w, format, records)
}

// encode writes v as JSON or YAML.
func encode(w io.Writer, format string, v any) error {
	var (
		out []byte
		err error
	)
	switch format {
	case OutputJSON:
		out, err = json.MarshalIndent(v, "", "  ")
		out = append(out, '\n')
	case OutputYAML:
		out, err = yaml.Marshal(v)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}
