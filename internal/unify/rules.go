package unify

import (
	"strings"

	"github.com/rcsgugs/gugs-db/internal/classify"
)

// Canonical column names, upper-case as matched against source headers.
const (
	ColPos   = "POS"
	ColName  = "NAME"
	ColTime  = "TIME"
	ColSex   = "SEX"
	ColAge   = "AGE"
	ColCat   = "CAT"
	ColLicNo = "LIC NO"
)

// Alias maps source header variants onto one canonical column.
type Alias struct {
	Canonical string   `koanf:"canonical"`
	Variants  []string `koanf:"variants"`
}

// Rules drives column unification.
type Rules struct {
	// ClubMarker matches the header of the club/team column.
	ClubMarker string `koanf:"club_marker"`

	// ClubVariants are matched case-insensitively as substrings of the club
	// cell to keep only the club's runners.
	ClubVariants []string `koanf:"club_variants"`

	// NameCombos lists split-name layouts. The first combo whose columns are
	// all present is joined into NAME.
	NameCombos [][]string `koanf:"name_combos"`

	// Aliases lists, per canonical column, the source variants in priority
	// order after the canonical name itself.
	Aliases []Alias `koanf:"aliases"`
}

// DefaultRules returns the rule table for WPA result sheets.
func DefaultRules() Rules {
	return Rules{
		ClubMarker:   classify.DefaultMarker,
		ClubVariants: []string{"Gugs", "RCS", "Gugulethu"},
		NameCombos: [][]string{
			{"NAME", "SURNAME"},
			{"FIRSTNAME", "LASTNAME"},
			{"NAME", "NAME 2", "NAME 3"},
			{"FIRST NAME", "SURNAME", "SURNAME 2", "SURNAME 3"},
			{"FIRST NAME", "LAST NAME"},
		},
		Aliases: []Alias{
			{Canonical: ColTime, Variants: []string{"FINISH", "GUN FINISH", "NETTIME", "RACETIME", "ELAPSED_TIME", "FINISH TIME"}},
			{Canonical: ColPos, Variants: []string{"POSITION"}},
			{Canonical: "LASTNAME", Variants: []string{"SURNAME", "NAME 2", "LAST NAME"}},
			{Canonical: ColName, Variants: []string{"PARTICIPANT"}},
			{Canonical: ColSex, Variants: []string{"GENDER"}},
			{Canonical: ColLicNo, Variants: []string{"LICENSE", "RACE NO", "RACE NUMBER", "RACENO", "RACENUMBER", "LICENSENR", "LIC"}},
			{Canonical: ColCat, Variants: []string{"CATEGORY"}},
			{Canonical: ColAge, Variants: nil},
		},
	}
}

// variantsFor returns the canonical name followed by its variants.
func (r Rules) variantsFor(canonical string) []string {
	for _, a := range r.Aliases {
		if a.Canonical == canonical {
			return append([]string{a.Canonical}, a.Variants...)
		}
	}
	return []string{canonical}
}

// Merge returns r with the non-empty parts of o applied. Aliases of o replace
// the variants of the same canonical column and add new ones.
func (r Rules) Merge(o Rules) Rules {
	out := Rules{
		ClubMarker:   r.ClubMarker,
		ClubVariants: append([]string(nil), r.ClubVariants...),
		NameCombos:   append([][]string(nil), r.NameCombos...),
		Aliases:      append([]Alias(nil), r.Aliases...),
	}
	if o.ClubMarker != "" {
		out.ClubMarker = o.ClubMarker
	}
	if len(o.ClubVariants) > 0 {
		out.ClubVariants = append([]string(nil), o.ClubVariants...)
	}
	if len(o.NameCombos) > 0 {
		out.NameCombos = make([][]string, len(o.NameCombos))
		for i, combo := range o.NameCombos {
			out.NameCombos[i] = upper(combo)
		}
	}
	for _, a := range o.Aliases {
		alias := Alias{Canonical: strings.ToUpper(strings.TrimSpace(a.Canonical)), Variants: upper(a.Variants)}
		replaced := false
		for i := range out.Aliases {
			if out.Aliases[i].Canonical == alias.Canonical {
				out.Aliases[i] = alias
				replaced = true
				break
			}
		}
		if !replaced {
			out.Aliases = append(out.Aliases, alias)
		}
	}
	return out
}

func upper(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = strings.ToUpper(strings.TrimSpace(n))
	}
	return out
}
