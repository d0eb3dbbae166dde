// Package keywords derives the prefix tokens stored in products.searchKeywords.
package keywords

import (
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	maxKeywordLen    = 50
	identifierPrefix = 5
	minWordLen       = 2
)

// ProductFields is the part of a product that feeds its search index.
type ProductFields struct {
	Name            string
	Brand           string
	SKU             string
	HSNCode         string
	CategoryName    string
	SubCategoryName string
	Colors          []string
	Sizes           []string
	ProductTag      string
}

type set map[string]struct{}

func (s set) add(v string) { s[v] = struct{}{} }

// addPrefixes inserts every rune prefix of v up to limit runes (0 = all).
func (s set) addPrefixes(v string, limit int) {
	n := 0
	for i := range v {
		if i == 0 {
			continue
		}
		n++
		if limit > 0 && n > limit {
			return
		}
		s.add(v[:i])
	}
	if limit == 0 || utf8.RuneCountInString(v) <= limit {
		s.add(v)
	}
}

func (s set) sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		if n := utf8.RuneCountInString(k); n < 1 || n > maxKeywordLen {
			continue
		}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Generate lowercases and trims every non-empty field and returns the full
// values plus all of their prefixes.
func Generate(fields ...string) []string {
	s := set{}
	for _, f := range fields {
		v := strings.ToLower(strings.TrimSpace(f))
		if v == "" {
			continue
		}
		s.add(v)
		s.addPrefixes(v, 0)
	}
	return s.sorted()
}

// ForProduct builds the search keywords of a product.
//
// The whole name and each name word contribute all prefixes. Brand, SKU and
// HSN contribute their full value and at most five prefixes. Category,
// subcategory, variant colors and sizes and the tag are indexed whole.
func ForProduct(p ProductFields) []string {
	s := set{}

	name := strings.ToLower(strings.TrimSpace(p.Name))
	if name != "" {
		s.addPrefixes(name, 0)
		for _, word := range strings.Fields(name) {
			if utf8.RuneCountInString(word) < minWordLen {
				continue
			}
			s.addPrefixes(word, 0)
		}
	}

	for _, f := range []string{p.Brand, p.SKU, p.HSNCode} {
		v := strings.ToLower(strings.TrimSpace(f))
		if v == "" {
			continue
		}
		s.add(v)
		s.addPrefixes(v, identifierPrefix)
	}

	whole := []string{p.CategoryName, p.SubCategoryName, p.ProductTag}
	whole = append(whole, p.Colors...)
	whole = append(whole, p.Sizes...)
	for _, f := range whole {
		if v := strings.ToLower(strings.TrimSpace(f)); v != "" {
			s.add(v)
		}
	}

	return s.sorted()
}
