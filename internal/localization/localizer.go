package localization

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Localizer translates message codes to display strings and back.
// A nil Localizer is valid and maps every code to itself.
type Localizer struct {
	locale   string
	messages map[string]string
	reverse  map[string]string
}

type messageFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

// New builds a Localizer from an in-memory table.
func New(locale string, messages map[string]string) *Localizer {
	l := &Localizer{
		locale:   locale,
		messages: make(map[string]string, len(messages)),
		reverse:  make(map[string]string, len(messages)),
	}
	for code, text := range messages {
		l.messages[code] = text
		l.reverse[normalize(text)] = code
	}
	return l
}

// Parse decodes a yaml message table.
func Parse(data []byte) (*Localizer, error) {
	var mf messageFile
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("failed to parse localization file: %w", err)
	}
	if mf.Locale == "" {
		mf.Locale = "en_IN"
	}
	return New(mf.Locale, mf.Messages), nil
}

// Load reads a yaml message table from disk.
func Load(path string) (*Localizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read localization file %s: %w", path, err)
	}
	return Parse(data)
}

// Locale returns the configured locale.
func (l *Localizer) Locale() string {
	if l == nil {
		return ""
	}
	return l.locale
}

// Localize returns the display text for code, or code itself when unknown.
func (l *Localizer) Localize(code string) string {
	if l == nil {
		return code
	}
	if text, ok := l.messages[code]; ok {
		return text
	}
	return code
}

// Delocalize maps display text back to its code. Matching ignores case and
// surrounding whitespace; unknown text is returned trimmed.
func (l *Localizer) Delocalize(text string) string {
	trimmed := strings.TrimSpace(text)
	if l == nil {
		return trimmed
	}
	if code, ok := l.reverse[normalize(trimmed)]; ok {
		return code
	}
	return trimmed
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
