package domain

import "strings"

// ─── Naming Preferences ─────────────────────────────────────────────────────

// Language is the language the suggested file name should be written in.
// Values outside the known set are passed to the model verbatim.
type Language string

const (
	LanguageEnglish            Language = "en"
	LanguageChineseSimplified  Language = "zh-Hans"
	LanguageChineseTraditional Language = "zh-Hant"
	LanguageJapanese           Language = "ja"
	LanguageKorean             Language = "ko"
	LanguageFrench             Language = "fr"
	LanguageGerman             Language = "de"
	LanguageSpanish            Language = "es"
)

var languageNames = map[Language]string{
	LanguageEnglish:            "English",
	LanguageChineseSimplified:  "Simplified Chinese",
	LanguageChineseTraditional: "Traditional Chinese",
	LanguageJapanese:           "Japanese",
	LanguageKorean:             "Korean",
	LanguageFrench:             "French",
	LanguageGerman:             "German",
	LanguageSpanish:            "Spanish",
}

// DisplayName returns the English name of the language.
func (l Language) DisplayName() string {
	if name, ok := languageNames[l]; ok {
		return name
	}
	return string(l)
}

// Convention is the word-joining rule for English file names.
type Convention string

const (
	ConventionWithSpaces    Convention = "with-spaces"
	ConventionPascalCase    Convention = "pascal-case"
	ConventionCamelCase     Convention = "camel-case"
	ConventionSnakeCase     Convention = "snake-case"
	ConventionKebabCase     Convention = "kebab-case"
	ConventionNotApplicable Convention = "not-applicable"
)

// AllConventions lists the conventions in display order.
var AllConventions = []Convention{
	ConventionWithSpaces,
	ConventionPascalCase,
	ConventionCamelCase,
	ConventionSnakeCase,
	ConventionKebabCase,
	ConventionNotApplicable,
}

var conventionRules = map[Convention]string{
	ConventionWithSpaces:    `Separate words with single spaces and capitalize them naturally, e.g. "Quarterly Sales Report".`,
	ConventionPascalCase:    `Join words without separators and capitalize every word, e.g. "QuarterlySalesReport".`,
	ConventionCamelCase:     `Join words without separators, lowercase the first word and capitalize the rest, e.g. "quarterlySalesReport".`,
	ConventionSnakeCase:     `Use lowercase words joined by underscores, e.g. "quarterly_sales_report".`,
	ConventionKebabCase:     `Use lowercase words joined by hyphens, e.g. "quarterly-sales-report".`,
	ConventionNotApplicable: `No specific naming convention applies; use whatever is most natural for the language.`,
}

// Rule returns the textual rule for the convention. Unknown conventions
// fall back to the not-applicable rule.
func (c Convention) Rule() string {
	if rule, ok := conventionRules[c]; ok {
		return rule
	}
	return conventionRules[ConventionNotApplicable]
}

// NamingPreferences shapes the prompt. Never validated beyond presence.
type NamingPreferences struct {
	Language          Language   `json:"naming_language"`
	Convention        Convention `json:"naming_convention"`
	CustomInstruction string     `json:"custom_instruction"`
}

// EffectiveConvention returns the convention that applies to the language.
// Conventions only mean something for English names.
func (p NamingPreferences) EffectiveConvention() Convention {
	if p.EffectiveLanguage() != LanguageEnglish {
		return ConventionNotApplicable
	}
	if _, ok := conventionRules[p.Convention]; !ok {
		return ConventionNotApplicable
	}
	return p.Convention
}

// EffectiveLanguage returns the language, defaulting to English when unset.
func (p NamingPreferences) EffectiveLanguage() Language {
	if strings.TrimSpace(string(p.Language)) == "" {
		return LanguageEnglish
	}
	return p.Language
}
