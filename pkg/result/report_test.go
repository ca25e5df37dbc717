package result

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/fprime/bpfwcet/pkg/explorer"
)

func TestFromExploreResultSummarizesPathsAndDiagnostics(t *testing.T) {
	er := &explorer.Result{
		MaxBound: 19,
		Paths: []explorer.PathResult{
			{Cost: 9},
			{Cost: 19},
		},
		Diagnostics: []explorer.Diagnostic{
			{Kind: "SolverUnknown", BlockID: 2, InstrIndex: 5, Message: "taken-branch feasibility unknown"},
		},
	}
	blocks := []BlockSummary{{ID: 0, Start: 0, End: 3, Successors: []int{1, 2}}}

	got := FromExploreResult("prog.bin", blocks, er)
	want := Report{
		Source: "prog.bin",
		Blocks: blocks,
		Bound:  19,
		Paths: []PathSummary{
			{Cost: 9},
			{Cost: 19},
		},
		Diagnostics: []DiagnosticSummary{
			{Kind: "SolverUnknown", BlockID: 2, InstrIndex: 5, Message: "taken-branch feasibility unknown"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected report (-want +got):\n%s", diff)
	}
}

func TestWriteJSONThenReadJSONRoundTrips(t *testing.T) {
	reports := []Report{
		{Source: "a.bin", Bound: 6, Paths: []PathSummary{{Cost: 6}}},
		{Source: "b.bin", Bound: 111, Paths: []PathSummary{{Cost: 111, DRAMIndices: []int{1}}}},
	}

	var buf bytes.Buffer
	if err := WriteJSON(&buf, reports); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	got, err := ReadJSON(&buf)
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if diff := cmp.Diff(reports, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}
