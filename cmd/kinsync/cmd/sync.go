package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kinsync/kinsync"
	"github.com/kinsync/kinsync/internal/graphio"
	"github.com/kinsync/kinsync/pkg/errors"
	"github.com/kinsync/kinsync/pkg/logging"
	"github.com/kinsync/kinsync/pkg/mapping"
	"github.com/kinsync/kinsync/pkg/match"
	"github.com/kinsync/kinsync/pkg/names"
	"github.com/kinsync/kinsync/pkg/photos"
	"github.com/kinsync/kinsync/pkg/reconcile"
	"github.com/kinsync/kinsync/pkg/tree"
)

var syncFlags struct {
	sourceFile      string
	destFile        string
	sourceAnchor    string
	destAnchor      string
	threshold       float64
	givenVariants   string
	surnameVariants string
	seedsFile       string
	photoCache      string
	output          string
	noValidate      bool
	suggestDeletes  bool
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile a source tree against a destination tree",
	Long: `Sync loads two tree files, reconciles them starting from the anchor
persons, and writes a JSON report of matches, additions, field updates,
and validation findings. Neither input file is modified.`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().StringVar(&syncFlags.sourceFile, "source", "", "source tree file (json or yaml)")
	syncCmd.Flags().StringVar(&syncFlags.destFile, "dest", "", "destination tree file (json or yaml)")
	syncCmd.Flags().StringVar(&syncFlags.sourceAnchor, "source-anchor", "", "anchor person id in the source tree")
	syncCmd.Flags().StringVar(&syncFlags.destAnchor, "dest-anchor", "", "anchor person id in the destination tree")
	syncCmd.Flags().Float64Var(&syncFlags.threshold, "threshold", 60, "minimum fuzzy score treated as a match")
	syncCmd.Flags().StringVar(&syncFlags.givenVariants, "given-variants", "", "CSV file of given-name variant groups")
	syncCmd.Flags().StringVar(&syncFlags.surnameVariants, "surname-variants", "", "CSV file of surname variant groups")
	syncCmd.Flags().StringVar(&syncFlags.seedsFile, "seeds", "", "JSON file of pre-confirmed mappings from an earlier run")
	syncCmd.Flags().StringVar(&syncFlags.photoCache, "photo-cache", "", "photo comparison cache file, updated after the run")
	syncCmd.Flags().StringVarP(&syncFlags.output, "output", "o", "", "write the JSON report to a file instead of stdout")
	syncCmd.Flags().BoolVar(&syncFlags.noValidate, "no-validate", false, "skip the post-run mapping audit")
	syncCmd.Flags().BoolVar(&syncFlags.suggestDeletes, "suggest-deletes", false, "include advisory delete suggestions in the report")

	for _, flag := range []string{"source", "dest", "source-anchor", "dest-anchor"} {
		_ = syncCmd.MarkFlagRequired(flag)
	}
}

func runSync(cmd *cobra.Command, _ []string) error {
	log := logging.Default()

	source, err := graphio.Load(syncFlags.sourceFile)
	if err != nil {
		return fmt.Errorf("loading source tree: %w", err)
	}
	dest, err := graphio.Load(syncFlags.destFile)
	if err != nil {
		return fmt.Errorf("loading destination tree: %w", err)
	}
	log.Info().
		Int("source_persons", len(source.Persons)).
		Int("dest_persons", len(dest.Persons)).
		Msg("trees loaded")

	opts := []kinsync.Option{
		kinsync.WithAnchors(tree.PersonID(syncFlags.sourceAnchor), tree.PersonID(syncFlags.destAnchor)),
		kinsync.WithMatchThreshold(syncFlags.threshold),
		kinsync.WithValidation(!syncFlags.noValidate),
		kinsync.WithDeleteSuggestions(syncFlags.suggestDeletes),
	}

	if oracle, err := loadOracle(); err != nil {
		return err
	} else if oracle != nil {
		opts = append(opts, kinsync.WithOracle(oracle))
	}

	if syncFlags.seedsFile != "" {
		seeds, err := loadSeeds(syncFlags.seedsFile)
		if err != nil {
			return err
		}
		opts = append(opts, kinsync.WithSeeds(seeds))
	}

	var cache *photos.Cache
	if syncFlags.photoCache != "" {
		cache = photos.NewCache()
		if err := cache.Load(syncFlags.photoCache); err != nil {
			return fmt.Errorf("loading photo cache: %w", err)
		}
		opts = append(opts, kinsync.WithPhotoCache(cache))
	}

	result, err := kinsync.Sync(cmd.Context(), source, dest, opts...)
	if err != nil {
		return err
	}

	if cache != nil {
		if err := cache.Save(syncFlags.photoCache); err != nil {
			log.Warn().Err(err).Msg("failed to save photo cache")
		}
	}

	if err := writeReport(result); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, result.Summary())
	return nil
}

// loadOracle builds a variant oracle from the configured CSV files, or
// returns nil when none are given.
func loadOracle() (names.Oracle, error) {
	if syncFlags.givenVariants == "" && syncFlags.surnameVariants == "" {
		return nil, nil
	}
	oracle := names.NewVariantOracle()
	if syncFlags.givenVariants != "" {
		if err := oracle.LoadCSVFile(syncFlags.givenVariants, names.Given); err != nil {
			return nil, fmt.Errorf("loading given-name variants: %w", err)
		}
	}
	if syncFlags.surnameVariants != "" {
		if err := oracle.LoadCSVFile(syncFlags.surnameVariants, names.Surname); err != nil {
			return nil, fmt.Errorf("loading surname variants: %w", err)
		}
	}
	return oracle, nil
}

// loadSeeds reads pre-confirmed mapping pairs from a JSON file.
func loadSeeds(path string) ([]mapping.Pair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	var seeds []mapping.Pair
	if err := json.Unmarshal(data, &seeds); err != nil {
		return nil, errors.WrapParse("json", path, err)
	}
	return seeds, nil
}

// report is the JSON document emitted by sync. The mapping is flattened to
// rows because the internal type does not serialize.
type report struct {
	*reconcile.Result
	Mapping []mappingRow `json:"mapping"`
}

type mappingRow struct {
	SourceID   tree.PersonID `json:"source_id"`
	DestID     tree.PersonID `json:"dest_id"`
	Method     string        `json:"method"`
	Score      float64       `json:"score,omitempty"`
	Confidence float64       `json:"confidence"`
	Iteration  int           `json:"iteration,omitempty"`
}

func mappingRows(m *mapping.Mapping) []mappingRow {
	rows := make([]mappingRow, 0, m.Len())
	for _, pair := range m.Pairs() {
		entry, _ := m.Entry(pair.SourceID)
		row := mappingRow{
			SourceID:   pair.SourceID,
			DestID:     pair.DestID,
			Method:     entry.Method.String(),
			Confidence: entry.Confidence(),
			Iteration:  entry.Iteration,
		}
		if entry.Method == match.MethodFuzzy {
			row.Score = entry.Score
		}
		rows = append(rows, row)
	}
	return rows
}

func writeReport(result *reconcile.Result) error {
	doc := report{Result: result, Mapping: mappingRows(result.Mapping)}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	data = append(data, '\n')

	if syncFlags.output == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(syncFlags.output, data, 0o644); err != nil {
		return errors.WrapIO("write", syncFlags.output, err)
	}
	return nil
}
