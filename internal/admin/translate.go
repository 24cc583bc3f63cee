package admin

import "strings"

// Translator looks up a UI string. An empty result means "no translation".
type Translator interface {
	T(key string) string
}

// TranslatorFunc adapts a function to Translator.
type TranslatorFunc func(key string) string

// T implements Translator.
func (f TranslatorFunc) T(key string) string { return f(key) }

// Tr translates key, falling back to the literal fallback so missing
// translations never blank out the UI.
func Tr(t Translator, key, fallback string) string {
	if t == nil {
		return fallback
	}
	if s := t.T(key); s != "" {
		return s
	}
	return fallback
}

// Format replaces {name} placeholders in s.
func Format(s string, args map[string]string) string {
	if len(args) == 0 || !strings.Contains(s, "{") {
		return s
	}
	pairs := make([]string, 0, len(args)*2)
	for k, v := range args {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(s)
}
