// Package inflect holds the naming helpers used to derive association accessor
// names from model names.
package inflect

import (
	"unicode"
	"unicode/utf8"

	"github.com/jinzhu/inflection"
)

// UppercaseFirst upper-cases the first rune of s.
func UppercaseFirst(s string) string {
	return mapFirst(s, unicode.ToUpper)
}

// LowercaseFirst lower-cases the first rune of s.
func LowercaseFirst(s string) string {
	return mapFirst(s, unicode.ToLower)
}

func mapFirst(s string, f func(rune) rune) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || r == utf8.RuneError {
		return s
	}
	return string(f(r)) + s[size:]
}

// Singularize returns the singular form of an English word.
func Singularize(s string) string {
	return inflection.Singular(s)
}

// Pluralize returns the plural form of an English word.
func Pluralize(s string) string {
	return inflection.Plural(s)
}

// Accessor builds an association method name, e.g. Accessor("get", "Users")
// is "getUsers".
func Accessor(prefix, name string) string {
	return prefix + UppercaseFirst(name)
}

// Names returns the capitalised singular and plural accessor stems for name.
// When name is an explicit alias and keepPlural is set, the alias is used as the
// plural stem unchanged.
func Names(name string, keepPlural bool) (singular, plural string) {
	singular = UppercaseFirst(Singularize(name))
	if keepPlural {
		plural = UppercaseFirst(name)
	} else {
		plural = UppercaseFirst(Pluralize(name))
	}
	return singular, plural
}
