package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/wonny/aegis-picker/internal/contracts"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Println("───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator() {
	fmt.Println("═══════════════════════════════════════════════════════════")
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Println()
	fmt.Printf("⚠️  %s\n", message)
	fmt.Println()
}

// PrintJSON writes v as indented JSON to stdout
func PrintJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// PrintRunSummary prints the stage counts and the TopN table of a run
func PrintRunSummary(res *contracts.RunResult) {
	run := res.Run

	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  Pick Run %s\n", run.DateKey)
	PrintSeparator()
	fmt.Printf("  Run ID    : %s\n", run.ID)
	fmt.Printf("  Live      : %v\n", run.Rules.Live)
	fmt.Printf("  Universe  : %d\n", res.Stages.Universe)
	fmt.Printf("  Shortlist : %d (relaxed=%v)\n", res.Stages.Shortlisted, run.Rules.RelaxedShortlist)
	fmt.Printf("  Scored    : tech=%d news=%d\n", res.Stages.TechScored, res.Stages.NewsScored)
	fmt.Printf("  Passed    : %d / rejected %d\n", res.Stages.Passed, res.Stages.Rejected)
	if run.Note != "" {
		fmt.Printf("  Note      : %s\n", run.Note)
	}
	PrintSeparator()

	if len(run.TopN) == 0 {
		fmt.Println("  (no candidates)")
	}
	for i, c := range run.TopN {
		marker := " "
		if run.Pick != nil && run.Pick.Symbol == c.Symbol {
			marker = "★"
		}
		fmt.Printf("%s %2d. %-18s total=%.3f tech=%.3f news=%.3f qualified=%v\n",
			marker, i+1, c.Symbol, c.BlendedTotal, c.TechScore, c.NewsScore, c.NewsQualified)
	}

	if len(res.Rejected) > 0 {
		PrintSeparator()
		fmt.Println("  Rejected:")
		for _, c := range res.Rejected {
			fmt.Printf("    %-18s %s\n", c.Symbol, strings.Join(c.GateReasons, ", "))
		}
	}
	PrintDoubleSeparator()
}

// PrintPublishResult prints one publish outcome
func PrintPublishResult(res *contracts.PublishResult) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  Publish %s\n", res.Key)
	PrintSeparator()
	fmt.Printf("  Count     : %d\n", res.Count)
	fmt.Printf("  Symbols   : %s\n", strings.Join(res.Symbols, ", "))
	fmt.Printf("  Locked    : %v\n", res.Locked)
	if res.LockUntil != nil {
		fmt.Printf("  Lock Until: %s\n", res.LockUntil.Format("2006-01-02 15:04:05"))
	}
	fmt.Printf("  Merged    : %v\n", res.MergedIntoSet)
	if res.Note != "" {
		fmt.Printf("  Note      : %s\n", res.Note)
	}
	PrintDoubleSeparator()
}
