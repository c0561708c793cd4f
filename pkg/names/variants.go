package names

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// VariantOracle matches names by normalized equality plus user-supplied
// variant groups. Each CSV row is one equivalence group: every name on the
// row is a variant of every other ("alexander,alex,sasha,саша").
type VariantOracle struct {
	given    map[string]int
	surnames map[string]int
	// group counters keep row ids distinct across AddGroup calls
	givenGroups   int
	surnameGroups int
}

// NewVariantOracle returns an oracle with empty dictionaries. Without any
// loaded groups it behaves exactly like ExactOracle.
func NewVariantOracle() *VariantOracle {
	return &VariantOracle{
		given:    make(map[string]int),
		surnames: make(map[string]int),
	}
}

// AddGroup registers one equivalence group for the role. Names are
// normalized before storage; empty names are ignored.
func (o *VariantOracle) AddGroup(role Role, variants ...string) {
	dict := o.given
	id := o.givenGroups
	if role == Surname {
		dict = o.surnames
		id = o.surnameGroups
	}
	added := false
	for _, v := range variants {
		n := Normalize(v)
		if n == "" {
			continue
		}
		dict[n] = id
		added = true
	}
	if !added {
		return
	}
	if role == Surname {
		o.surnameGroups++
	} else {
		o.givenGroups++
	}
}

// LoadCSV reads variant groups, one group per row, into the given role's
// dictionary. Blank rows and rows with a single entry are skipped.
func (o *VariantOracle) LoadCSV(r io.Reader, role Role) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	for {
		row, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading variant csv: %w", err)
		}
		if len(row) < 2 {
			continue
		}
		o.AddGroup(role, row...)
	}
}

// LoadCSVFile loads variant groups from a CSV file on disk.
func (o *VariantOracle) LoadCSVFile(path string, role Role) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening variant csv %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck // read-only file
	if err := o.LoadCSV(f, role); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Equivalent reports whether two names normalize equal or belong to the same
// variant group for the role.
func (o *VariantOracle) Equivalent(a, b string, role Role) bool {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}
	dict := o.given
	if role == Surname {
		dict = o.surnames
	}
	ga, okA := dict[na]
	gb, okB := dict[nb]
	return okA && okB && ga == gb
}
