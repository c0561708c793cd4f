package diff_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinsync/kinsync/pkg/dates"
	"github.com/kinsync/kinsync/pkg/diff"
	"github.com/kinsync/kinsync/pkg/photos"
	"github.com/kinsync/kinsync/pkg/tree"
)

func fieldNames(diffs []diff.FieldDiff) []string {
	out := make([]string, 0, len(diffs))
	for _, d := range diffs {
		out = append(out, d.Field)
	}
	return out
}

func TestCompareFieldsMissingValues(t *testing.T) {
	src := &tree.Person{
		ID:         "s1",
		GivenName:  "Ivan",
		Surname:    "Petrov",
		Gender:     tree.GenderMale,
		Birth:      dates.NewYear(1885),
		BirthPlace: "Moscow",
	}
	src.Normalize()
	dst := &tree.Person{ID: "d1", GivenName: "Ivan"}
	dst.Normalize()

	diffs := diff.New().CompareFields(src, dst)

	assert.ElementsMatch(t,
		[]string{"surname", "gender", "birth_date", "birth_place"},
		fieldNames(diffs))
}

func TestCompareFieldsNeverDowngrades(t *testing.T) {
	// Source knows less than the destination on every field: no diffs.
	src := &tree.Person{ID: "s1", GivenName: "Ivan", Birth: dates.NewYear(1885)}
	src.Normalize()
	dst := &tree.Person{
		ID:        "d1",
		GivenName: "Ivan Aleksandrovich",
		Surname:   "Petrov",
		Birth:     dates.NewDay(1885, 1, 12),
		Gender:    tree.GenderMale,
	}
	dst.Normalize()

	assert.Empty(t, diff.New().CompareFields(src, dst))
}

func TestCompareFieldsDatePrecisionUpgrade(t *testing.T) {
	src := &tree.Person{ID: "s1", Birth: dates.NewDay(1885, 1, 12)}
	src.Normalize()
	dst := &tree.Person{ID: "d1", Birth: dates.NewYear(1885)}
	dst.Normalize()

	diffs := diff.New().CompareFields(src, dst)

	require.Len(t, diffs, 1)
	assert.Equal(t, "birth_date", diffs[0].Field)
	assert.Equal(t, diff.KindPrecision, diffs[0].Kind)
	assert.Equal(t, "1885-01-12", diffs[0].Source)
	assert.Equal(t, "1885", diffs[0].Dest)
}

func TestCompareFieldsSamePrecisionDifferentFormatting(t *testing.T) {
	srcBirth, err := dates.Parse("12 JAN 1885")
	require.NoError(t, err)
	src := &tree.Person{ID: "s1", Birth: srcBirth}
	src.Normalize()
	dst := &tree.Person{ID: "d1", Birth: dates.NewDay(1885, 1, 12)}
	dst.Normalize()

	// Equal precision never emits a diff, even though the texts differ.
	assert.Empty(t, diff.New().CompareFields(src, dst))
}

func TestCompareFieldsMaidenNameAlreadyFiled(t *testing.T) {
	src := &tree.Person{ID: "s1", MaidenName: "Sokolova"}
	src.Normalize()
	dst := &tree.Person{ID: "d1", Surname: "Sokolova"}
	dst.Normalize()

	// The fact is present on the destination, just filed as the surname.
	assert.Empty(t, diff.New().CompareFields(src, dst))

	other := &tree.Person{ID: "d2", Surname: "Petrova"}
	other.Normalize()
	diffs := diff.New().CompareFields(src, other)
	assert.Equal(t, []string{"maiden_name"}, fieldNames(diffs))
}

func TestCompareFieldsPhotoURLFallback(t *testing.T) {
	src := &tree.Person{ID: "s1", PhotoURLs: []string{"a.jpg", "b.jpg"}}
	src.Normalize()
	dst := &tree.Person{ID: "d1", PhotoURLs: []string{"b.jpg"}}
	dst.Normalize()

	diffs := diff.New().CompareFields(src, dst)

	require.Len(t, diffs, 1)
	assert.Equal(t, "photos", diffs[0].Field)
	assert.Equal(t, "a.jpg", diffs[0].Source)
}

// nearDuplicateComparer reports every source photo as visually identical to
// some destination photo.
type nearDuplicateComparer struct{}

func (nearDuplicateComparer) ComparePhotos(sourceURLs, _ []string) (photos.Comparison, error) {
	var cmp photos.Comparison
	for _, u := range sourceURLs {
		cmp.SimilarPhotos = append(cmp.SimilarPhotos, photos.SimilarPhoto{
			SourceURL: u, DestURL: "existing.jpg", Similarity: 0.99,
		})
	}
	return cmp, nil
}

func TestCompareFieldsSuppressesNearDuplicatePhotos(t *testing.T) {
	src := &tree.Person{ID: "s1", PhotoURLs: []string{"recompressed.jpg"}}
	src.Normalize()
	dst := &tree.Person{ID: "d1", PhotoURLs: []string{"existing.jpg"}}
	dst.Normalize()

	d := diff.New(diff.WithPhotoComparer(nearDuplicateComparer{}))
	assert.Empty(t, d.CompareFields(src, dst))
}

func TestCompareFieldsUsesPhotoCache(t *testing.T) {
	cache := photos.NewCache()
	cache.Put("s1", photos.Comparison{MatchedPhotos: []string{"a.jpg"}})

	src := &tree.Person{ID: "s1", PhotoURLs: []string{"a.jpg"}}
	src.Normalize()
	dst := &tree.Person{ID: "d1"}
	dst.Normalize()

	// The cached comparison says nothing is missing, so no photo diff even
	// though the destination lists no URLs.
	d := diff.New(diff.WithPhotoCache(cache))
	assert.Empty(t, d.CompareFields(src, dst))
}
