package story

import (
	"golang.org/x/text/language"
)

// ChooseLocale picks the best candidate for an ordered preference list.
// For each preferred locale in order it looks for an exact candidate match,
// then for a candidate sharing the base-language subtag. If no preference
// matches at all, the first candidate in package-declared order wins. An
// empty candidate list yields "".
//
// A preference of "fr-CA" therefore selects "fr" from ["en", "fr"] even when
// a later preference would match "en" exactly: preferences are ranked, and a
// base-language hit on a higher-ranked preference beats everything below it.
func ChooseLocale(preference, candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}

	type parsed struct {
		raw  string
		tag  language.Tag
		base language.Base
		ok   bool
	}

	cands := make([]parsed, 0, len(candidates))
	for _, c := range candidates {
		p := parsed{raw: c}
		if tag, err := language.Parse(c); err == nil {
			p.tag = tag
			p.base, _ = tag.Base()
			p.ok = true
		}
		cands = append(cands, p)
	}

	for _, pref := range preference {
		prefTag, err := language.Parse(pref)
		if err != nil {
			continue
		}
		for _, c := range cands {
			if c.ok && c.tag == prefTag {
				return c.raw
			}
		}
		prefBase, _ := prefTag.Base()
		for _, c := range cands {
			if c.ok && c.base == prefBase {
				return c.raw
			}
		}
	}

	return candidates[0]
}

// matchLocale finds the available locale best matching one requested locale:
// exact tag first, then shared base language. Unlike ChooseLocale there is no
// package-order fallback; a miss is a miss.
func matchLocale(requested string, available []string) (string, bool) {
	reqTag, err := language.Parse(requested)
	if err != nil {
		return "", false
	}

	for _, a := range available {
		if tag, err := language.Parse(a); err == nil && tag == reqTag {
			return a, true
		}
	}

	reqBase, _ := reqTag.Base()
	for _, a := range available {
		tag, err := language.Parse(a)
		if err != nil {
			continue
		}
		if base, _ := tag.Base(); base == reqBase {
			return a, true
		}
	}

	return "", false
}
