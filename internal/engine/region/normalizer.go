// Package region matches free-text Korean administrative names against the raw
// region labels stored on venues, bridging full names ("경상북도"), their common
// abbreviations ("경북"), and embedded city/county/district names ("경주시" → "경주").
package region

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/rendis/templestay/internal/model"
)

// Alias ties a full administrative name to the short forms users type.
type Alias struct {
	Full   string
	Shorts []string
}

// Aliases lists the first-level divisions. Renamed provinces keep their legacy
// full name as a separate entry with the same short form.
var Aliases = []Alias{
	{Full: "서울특별시", Shorts: []string{"서울", "서울시"}},
	{Full: "부산광역시", Shorts: []string{"부산", "부산시"}},
	{Full: "대구광역시", Shorts: []string{"대구", "대구시"}},
	{Full: "인천광역시", Shorts: []string{"인천", "인천시"}},
	{Full: "광주광역시", Shorts: []string{"광주"}},
	{Full: "대전광역시", Shorts: []string{"대전", "대전시"}},
	{Full: "울산광역시", Shorts: []string{"울산", "울산시"}},
	{Full: "세종특별자치시", Shorts: []string{"세종", "세종시"}},
	{Full: "경기도", Shorts: []string{"경기"}},
	{Full: "강원특별자치도", Shorts: []string{"강원"}},
	{Full: "강원도", Shorts: []string{"강원"}},
	{Full: "충청북도", Shorts: []string{"충북"}},
	{Full: "충청남도", Shorts: []string{"충남"}},
	{Full: "전북특별자치도", Shorts: []string{"전북"}},
	{Full: "전라북도", Shorts: []string{"전북"}},
	{Full: "전라남도", Shorts: []string{"전남"}},
	{Full: "경상북도", Shorts: []string{"경북"}},
	{Full: "경상남도", Shorts: []string{"경남"}},
	{Full: "제주특별자치도", Shorts: []string{"제주", "제주도"}},
}

// subRegionSuffixes are stripped from second-level names: city, county, district.
var subRegionSuffixes = []string{"시", "군", "구"}

// Set is an unordered collection of match tokens.
type Set map[string]struct{}

func (s Set) Add(tokens ...string) {
	for _, t := range tokens {
		s[t] = struct{}{}
	}
}

func (s Set) Has(token string) bool {
	_, ok := s[token]
	return ok
}

// Intersects reports whether s and other share at least one token.
func (s Set) Intersects(other Set) bool {
	small, large := s, other
	if len(small) > len(large) {
		small, large = large, small
	}
	for t := range small {
		if large.Has(t) {
			return true
		}
	}
	return false
}

// Normalize NFC-composes, lower-cases and trims s. Composition matters because
// Hangul typed on some keyboards arrives as decomposed jamo.
func Normalize(s string) string {
	return strings.TrimSpace(strings.ToLower(norm.NFC.String(s)))
}

// Expand returns the query plus every full name and short form related to it.
// An entry is related when its full name or a short form contains the query, or
// when one of its short forms appears inside the query.
func Expand(query string) Set {
	q := Normalize(query)
	out := Set{}
	out.Add(q)
	if q == "" {
		return out
	}
	for _, a := range Aliases {
		if related(a, q) {
			out.Add(a.Full)
			out.Add(a.Shorts...)
		}
	}
	return out
}

func related(a Alias, q string) bool {
	if strings.Contains(a.Full, q) {
		return true
	}
	for _, s := range a.Shorts {
		if strings.Contains(s, q) || strings.Contains(q, s) {
			return true
		}
	}
	return false
}

// lookup resolves a single token against the table by exact full or short name.
func lookup(token string) []Alias {
	var found []Alias
	for _, a := range Aliases {
		if a.Full == token {
			found = append(found, a)
			continue
		}
		for _, s := range a.Shorts {
			if s == token {
				found = append(found, a)
				break
			}
		}
	}
	return found
}

// Canonical resolves a raw label, or its leading field, to the full administrative name.
func Canonical(raw string) (string, bool) {
	fields := strings.Fields(Normalize(raw))
	if len(fields) == 0 {
		return "", false
	}
	found := lookup(fields[0])
	if len(found) == 0 {
		return "", false
	}
	return found[0].Full, true
}

// ExtractSubRegionTokens derives extra match tokens from a stored region label
// such as "경상북도 경주시": the short forms of the administrative name ("경북")
// and the sub-region with its suffix stripped ("경주").
func ExtractSubRegionTokens(rawRegion string) Set {
	out := Set{}
	fields := strings.Fields(Normalize(rawRegion))
	if len(fields) == 0 {
		return out
	}

	found := lookup(fields[0])
	for _, a := range found {
		out.Add(a.Shorts...)
	}

	switch {
	case len(fields) > 1:
		if sub, ok := stripSuffix(fields[1]); ok {
			out.Add(sub)
		}
	case len(found) == 0:
		if sub, ok := stripSuffix(fields[0]); ok {
			out.Add(sub)
		}
	}
	return out
}

func stripSuffix(token string) (string, bool) {
	for _, suffix := range subRegionSuffixes {
		if strings.HasSuffix(token, suffix) && utf8.RuneCountInString(token) > utf8.RuneCountInString(suffix) {
			return strings.TrimSuffix(token, suffix), true
		}
	}
	return "", false
}

// regionTokens is everything a stored region label can match on.
func regionTokens(rawRegion string) Set {
	out := ExtractSubRegionTokens(rawRegion)
	if r := Normalize(rawRegion); r != "" {
		out.Add(r)
	}
	if full, ok := Canonical(rawRegion); ok {
		out.Add(full)
	}
	return out
}

// MatchesRegion reports whether a stored region label satisfies a region filter.
// An empty filter matches everything.
func MatchesRegion(rawRegion, filter string) bool {
	if Normalize(filter) == "" {
		return true
	}
	return regionTokens(rawRegion).Intersects(Expand(filter))
}

// Matches is the free-text venue predicate: name contains the query, or the
// region tokens meet the expanded query, or the address contains the query.
func Matches(v model.Venue, query string) bool {
	q := Normalize(query)
	if q == "" {
		return true
	}
	if strings.Contains(Normalize(v.Name), q) {
		return true
	}
	if regionTokens(v.Region).Intersects(Expand(q)) {
		return true
	}
	return strings.Contains(Normalize(v.Address), q)
}
