package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kinsync/kinsync/internal/graphio"
	"github.com/kinsync/kinsync/pkg/errors"
	"github.com/kinsync/kinsync/pkg/mapping"
)

var validateFlags struct {
	sourceFile  string
	destFile    string
	mappingFile string
	strict      bool
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Audit an existing person mapping for contradictions",
	Long: `Validate replays a previously produced mapping against the two trees
and reports duplicate targets, gender mismatches, date contradictions,
and generational inconsistencies. The trees and the mapping file are
not modified.`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateFlags.sourceFile, "source", "", "source tree file (json or yaml)")
	validateCmd.Flags().StringVar(&validateFlags.destFile, "dest", "", "destination tree file (json or yaml)")
	validateCmd.Flags().StringVar(&validateFlags.mappingFile, "mapping", "", "JSON file of mapping pairs to audit")
	validateCmd.Flags().BoolVar(&validateFlags.strict, "strict", false, "exit non-zero when high-severity issues are found")

	for _, flag := range []string{"source", "dest", "mapping"} {
		_ = validateCmd.MarkFlagRequired(flag)
	}
}

func runValidate(_ *cobra.Command, _ []string) error {
	source, err := graphio.Load(validateFlags.sourceFile)
	if err != nil {
		return fmt.Errorf("loading source tree: %w", err)
	}
	dest, err := graphio.Load(validateFlags.destFile)
	if err != nil {
		return fmt.Errorf("loading destination tree: %w", err)
	}

	data, err := os.ReadFile(validateFlags.mappingFile)
	if err != nil {
		return errors.WrapIO("read", validateFlags.mappingFile, err)
	}
	var pairs []mapping.Pair
	if err := json.Unmarshal(data, &pairs); err != nil {
		return errors.WrapParse("json", validateFlags.mappingFile, err)
	}

	m, dupes := replayMapping(pairs)
	for _, d := range dupes {
		fmt.Printf("[High] duplicate_source: %s\n", d)
	}

	result := mapping.Validate(m, source, dest)
	if !result.HasIssues() && len(dupes) == 0 {
		fmt.Printf("mapping is clean: %d pairs, no issues\n", m.Len())
		return nil
	}

	for _, issue := range result.Issues {
		fmt.Printf("[%s] %s: %s (source %s -> dest %s)\n",
			issue.Severity, issue.Type, issue.Description, issue.SourceID, issue.DestID)
	}
	high := len(result.HighSeverity()) + len(dupes)
	fmt.Printf("%d issues (%d high severity) across %d pairs\n",
		len(result.Issues)+len(dupes), high, m.Len())

	if validateFlags.strict && high > 0 {
		return fmt.Errorf("%d high-severity mapping issues", high)
	}
	return nil
}

// replayMapping rebuilds a mapping from serialized pairs. Injectivity checks
// are bypassed deliberately: detecting duplicate targets is the validator's
// job. A source id appearing on more than one row would vanish silently in
// the replay, so those rows are returned as findings of their own.
func replayMapping(pairs []mapping.Pair) (*mapping.Mapping, []string) {
	m := mapping.New()
	var dupes []string
	for _, pair := range pairs {
		if prev, ok := m.Get(pair.SourceID); ok && prev != pair.DestID {
			dupes = append(dupes, fmt.Sprintf(
				"source %s maps to both %s and %s; auditing the last row only",
				pair.SourceID, prev, pair.DestID))
		}
		m.Set(pair.SourceID, pair.DestID, mapping.Entry{})
	}
	return m, dupes
}
