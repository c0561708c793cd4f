// Package diff computes the fields where a source person record holds
// information its matched destination record lacks. The policy is strictly
// additive and upgrading, never destructive: the differ proposes what the
// destination is missing, it never proposes removing or overwriting a value
// the destination already has at equal or better precision.
package diff

import (
	"strings"

	"github.com/kinsync/kinsync/pkg/dates"
	"github.com/kinsync/kinsync/pkg/logging"
	"github.com/kinsync/kinsync/pkg/photos"
	"github.com/kinsync/kinsync/pkg/tree"
)

// Kind classifies why a field difference was emitted.
type Kind int

const (
	// KindMissing means the destination has no value for the field.
	KindMissing Kind = iota
	// KindPrecision means both sides have a date but the source's is finer.
	KindPrecision
)

// String returns the kind name.
func (k Kind) String() string {
	if k == KindPrecision {
		return "precision"
	}
	return "missing"
}

// FieldDiff is one field the destination is missing or holds at lower
// precision.
type FieldDiff struct {
	Field  string `json:"field"`
	Kind   Kind   `json:"kind"`
	Source string `json:"source"`
	Dest   string `json:"dest,omitempty"`
}

// Differ computes field diffs for matched person pairs.
type Differ struct {
	photos photos.Comparer
	cache  *photos.Cache
}

// Option configures a Differ.
type Option func(*Differ)

// WithPhotoComparer sets the photo comparison service. Without one the
// differ falls back to plain URL-set comparison.
func WithPhotoComparer(c photos.Comparer) Option {
	return func(d *Differ) {
		if c != nil {
			d.photos = c
		}
	}
}

// WithPhotoCache attaches a comparison cache owned by the caller.
func WithPhotoCache(cache *photos.Cache) Option {
	return func(d *Differ) {
		d.cache = cache
	}
}

// New creates a Differ.
func New(opts ...Option) *Differ {
	d := &Differ{photos: photos.URLComparer{}}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// CompareFields returns the fields where source has information destination
// lacks. Same-or-coarser source values never emit a diff even when the
// literal strings differ in formatting.
func (d *Differ) CompareFields(src, dst *tree.Person) []FieldDiff {
	var diffs []FieldDiff

	diffs = appendStringDiff(diffs, "given_name", src.GivenName, dst.GivenName)
	diffs = appendStringDiff(diffs, "surname", src.Surname, dst.Surname)

	// Maiden name is already present when the destination files it as the
	// last name.
	if src.MaidenName != "" && dst.MaidenName == "" && src.NormMaiden != dst.NormSurname {
		diffs = append(diffs, FieldDiff{Field: "maiden_name", Kind: KindMissing, Source: src.MaidenName})
	}

	diffs = appendStringDiff(diffs, "middle_name", src.MiddleName, dst.MiddleName)
	diffs = appendStringDiff(diffs, "nickname", src.Nickname, dst.Nickname)
	diffs = appendStringDiff(diffs, "suffix", src.Suffix, dst.Suffix)

	if src.Gender != tree.GenderUnknown && dst.Gender == tree.GenderUnknown {
		diffs = append(diffs, FieldDiff{Field: "gender", Kind: KindMissing, Source: src.Gender.String()})
	}

	diffs = appendDateDiff(diffs, "birth_date", src.Birth, dst.Birth)
	diffs = appendStringDiff(diffs, "birth_place", src.BirthPlace, dst.BirthPlace)
	diffs = appendDateDiff(diffs, "death_date", src.Death, dst.Death)
	diffs = appendStringDiff(diffs, "death_place", src.DeathPlace, dst.DeathPlace)
	diffs = appendDateDiff(diffs, "burial_date", src.Burial, dst.Burial)
	diffs = appendStringDiff(diffs, "burial_place", src.BurialPlace, dst.BurialPlace)

	if missing := d.missingPhotos(src, dst); len(missing) > 0 {
		diffs = append(diffs, FieldDiff{
			Field:  "photos",
			Kind:   KindMissing,
			Source: strings.Join(missing, " "),
		})
	}

	return diffs
}

// missingPhotos resolves the photo comparison via cache when available.
func (d *Differ) missingPhotos(src, dst *tree.Person) []string {
	if len(src.PhotoURLs) == 0 {
		return nil
	}
	if d.cache != nil {
		if cmp, ok := d.cache.Get(string(src.ID)); ok {
			return cmp.Missing()
		}
	}
	cmp, err := d.photos.ComparePhotos(src.PhotoURLs, dst.PhotoURLs)
	if err != nil {
		// The photo service is optional: degrade to plain URL comparison
		// rather than failing the diff.
		logging.Warn().Err(err).Str("source_id", string(src.ID)).Msg("photo comparison failed, falling back to URL diff")
		cmp, _ = photos.URLComparer{}.ComparePhotos(src.PhotoURLs, dst.PhotoURLs)
	}
	if d.cache != nil {
		d.cache.Put(string(src.ID), cmp)
	}
	return cmp.Missing()
}

// appendStringDiff emits a diff only when source has a value the destination
// lacks entirely.
func appendStringDiff(diffs []FieldDiff, field, src, dst string) []FieldDiff {
	if src != "" && dst == "" {
		diffs = append(diffs, FieldDiff{Field: field, Kind: KindMissing, Source: src})
	}
	return diffs
}

// appendDateDiff emits a diff when the destination is missing the date, or
// holds it at strictly coarser precision than the source.
func appendDateDiff(diffs []FieldDiff, field string, src, dst *dates.Date) []FieldDiff {
	switch {
	case src == nil:
		return diffs
	case dst == nil:
		return append(diffs, FieldDiff{Field: field, Kind: KindMissing, Source: src.String()})
	case src.Finer(dst):
		return append(diffs, FieldDiff{
			Field:  field,
			Kind:   KindPrecision,
			Source: src.String(),
			Dest:   dst.String(),
		})
	default:
		return diffs
	}
}
