// Package langmeta provides a shared language metadata registry
// (native names and emoji flags) used for model listings and CLI UI.
package langmeta

import "strings"

// Meta describes language display metadata.
type Meta struct {
	Name string
	Flag string
}

// Registry contains canonical language metadata for the languages the
// translation service and the detector work with, plus common locale
// variants. Unlisted variants are resolved in Resolve() via
// normalization and base fallback.
var Registry = map[string]Meta{
	"bg":    {Name: "Български", Flag: "🇧🇬"},
	"cs":    {Name: "Čeština", Flag: "🇨🇿"},
	"da":    {Name: "Dansk", Flag: "🇩🇰"},
	"de":    {Name: "Deutsch", Flag: "🇩🇪"},
	"de-AT": {Name: "Deutsch (Österreich)", Flag: "🇦🇹"},
	"de-CH": {Name: "Deutsch (Schweiz)", Flag: "🇨🇭"},
	"el":    {Name: "Ελληνικά", Flag: "🇬🇷"},
	"en":    {Name: "English", Flag: "🇺🇸"},
	"en-GB": {Name: "English (UK)", Flag: "🇬🇧"},
	"en-US": {Name: "English (US)", Flag: "🇺🇸"},
	"es":    {Name: "Español", Flag: "🇪🇸"},
	"et":    {Name: "Eesti", Flag: "🇪🇪"},
	"fi":    {Name: "Suomi", Flag: "🇫🇮"},
	"fr":    {Name: "Français", Flag: "🇫🇷"},
	"fr-BE": {Name: "Français (Belgique)", Flag: "🇧🇪"},
	"hr":    {Name: "Hrvatski", Flag: "🇭🇷"},
	"hu":    {Name: "Magyar", Flag: "🇭🇺"},
	"it":    {Name: "Italiano", Flag: "🇮🇹"},
	"lt":    {Name: "Lietuvių", Flag: "🇱🇹"},
	"lv":    {Name: "Latviešu", Flag: "🇱🇻"},
	"nl":    {Name: "Nederlands", Flag: "🇳🇱"},
	"pl":    {Name: "Polski", Flag: "🇵🇱"},
	"pt":    {Name: "Português", Flag: "🇵🇹"},
	"ro":    {Name: "Română", Flag: "🇷🇴"},
	"ru":    {Name: "Русский", Flag: "🇷🇺"},
	"sk":    {Name: "Slovenčina", Flag: "🇸🇰"},
	"sl":    {Name: "Slovenščina", Flag: "🇸🇮"},
	"sv":    {Name: "Svenska", Flag: "🇸🇪"},
	"uk":    {Name: "Українська", Flag: "🇺🇦"},
}

func canonicalize(lang string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if normalized == "" {
		return ""
	}
	parts := strings.Split(normalized, "-")
	parts[0] = strings.ToLower(parts[0])
	if len(parts) >= 2 {
		parts[1] = strings.ToUpper(parts[1])
	}
	return strings.Join(parts, "-")
}

// Resolve returns best-effort language metadata for language codes,
// supporting variants like cs_CZ, cs-CZ, and locale fallbacks.
func Resolve(lang string) Meta {
	if m, ok := Registry[lang]; ok {
		return m
	}
	normalized := canonicalize(lang)
	if m, ok := Registry[normalized]; ok {
		return m
	}
	if parts := strings.SplitN(normalized, "-", 2); len(parts) == 2 {
		if m, ok := Registry[parts[0]]; ok {
			return m
		}
	}
	return Meta{Name: lang, Flag: ""}
}

// PairLabel formats a model pair like "cs-en" for display:
// "🇨🇿 Čeština → 🇺🇸 English". Unknown codes fall back to the raw pair.
func PairLabel(pair string) string {
	parts := strings.SplitN(pair, "-", 2)
	if len(parts) != 2 {
		return pair
	}
	src, tgt := Resolve(parts[0]), Resolve(parts[1])
	return strings.TrimSpace(src.Flag+" "+src.Name) + " → " + strings.TrimSpace(tgt.Flag+" "+tgt.Name)
}
