// Package result holds the serializable output of an analysis run: the
// recovered block layout, every explored path's cost, the overall bound,
// and any diagnostics raised along the way.
package result

import (
	"encoding/json"
	"io"

	"github.com/fprime/bpfwcet/pkg/explorer"
)

// BlockSummary is one CFG block rendered for a report.
type BlockSummary struct {
	ID         int   `json:"id"`
	Start      int   `json:"start"`
	End        int   `json:"end"`
	Successors []int `json:"successors"`
}

// PathSummary is one completed DFS path rendered for a report: the
// per-instruction cost trail is dropped, only the total and the
// instructions that still carry a DRAM penalty are kept.
type PathSummary struct {
	Cost        int   `json:"cost"`
	DRAMIndices []int `json:"dram_indices"`
}

// DiagnosticSummary mirrors explorer.Diagnostic for JSON output.
type DiagnosticSummary struct {
	Kind       string `json:"kind"`
	BlockID    int    `json:"block_id"`
	InstrIndex int    `json:"instr_index"`
	Message    string `json:"message"`
}

// Report is the full output of one analyze run against one source file.
type Report struct {
	BatchID     string              `json:"batch_id,omitempty"`
	Source      string              `json:"source"`
	Blocks      []BlockSummary      `json:"blocks"`
	Bound       int                 `json:"bound"`
	Paths       []PathSummary       `json:"paths"`
	Diagnostics []DiagnosticSummary `json:"diagnostics"`
}

// FromExploreResult builds a Report from a completed explorer.Result and
// the CFG it walked.
func FromExploreResult(source string, blocks []BlockSummary, er *explorer.Result) Report {
	r := Report{Source: source, Blocks: blocks, Bound: er.MaxBound}
	for _, p := range er.Paths {
		var dram []int
		for _, a := range p.Accesses {
			if a.DRAMPenalty > 0 {
				dram = append(dram, a.InstrIndex)
			}
		}
		r.Paths = append(r.Paths, PathSummary{Cost: p.Cost, DRAMIndices: dram})
	}
	for _, d := range er.Diagnostics {
		r.Diagnostics = append(r.Diagnostics, DiagnosticSummary{
			Kind: d.Kind, BlockID: int(d.BlockID), InstrIndex: d.InstrIndex, Message: d.Message,
		})
	}
	return r
}

// WriteJSON writes reports as an indented JSON array.
func WriteJSON(w io.Writer, reports []Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(reports)
}

// ReadJSON reads back a JSON array of reports written by WriteJSON.
func ReadJSON(r io.Reader) ([]Report, error) {
	var reports []Report
	if err := json.NewDecoder(r).Decode(&reports); err != nil {
		return nil, err
	}
	return reports, nil
}
