package grocery

import "strings"

// NameVariants returns the singular/plural spellings of a normalised item name
// other than the name itself. Only the last word is inflected, so
// "green beans" yields "green bean". The rules are deliberately simple English
// suffix rules; anything irregular is left to the caller's exact match.
func NameVariants(name string) []string {
	if name == "" {
		return nil
	}

	head, last := "", name
	if i := strings.LastIndexByte(name, ' '); i >= 0 {
		head, last = name[:i+1], name[i+1:]
	}
	if len(last) < 3 {
		return nil
	}

	var out []string
	add := func(w string) {
		v := head + w
		if w == "" || v == name {
			return
		}
		for _, existing := range out {
			if existing == v {
				return
			}
		}
		out = append(out, v)
	}

	switch {
	case strings.HasSuffix(last, "ss"):
		// "glass" is singular; offer the plural only.
		add(last + "es")
	case strings.HasSuffix(last, "ies") && len(last) > 4:
		add(last[:len(last)-3] + "y")
	case strings.HasSuffix(last, "oes"):
		add(last[:len(last)-2])
		add(last[:len(last)-1])
	case hasAnySuffix(last, "ches", "shes", "xes", "zes", "sses"):
		add(last[:len(last)-2])
	case strings.HasSuffix(last, "s"):
		add(last[:len(last)-1])
	default:
		switch {
		case strings.HasSuffix(last, "y") && !isVowel(last[len(last)-2]):
			add(last[:len(last)-1] + "ies")
		case hasAnySuffix(last, "ch", "sh", "x", "z", "o"):
			add(last + "es")
			add(last + "s")
		default:
			add(last + "s")
		}
	}
	return out
}

// Singular returns the singular form of a normalised name, or the name
// unchanged when it does not look plural.
func Singular(name string) string {
	last := name
	if i := strings.LastIndexByte(name, ' '); i >= 0 {
		last = name[i+1:]
	}
	if !strings.HasSuffix(last, "s") || strings.HasSuffix(last, "ss") {
		return name
	}
	if v := NameVariants(name); len(v) > 0 {
		return v[0]
	}
	return name
}

func hasAnySuffix(s string, suffixes ...string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}

func isVowel(c byte) bool {
	switch c {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}
