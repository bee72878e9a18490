package notify

import (
	"fmt"
	"os"
	"slices"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// DefaultLanguage is used for workers without a language or with one the
// catalog has no text for.
const DefaultLanguage = "en"

var defaultActivation = map[string]string{
	"en": "Congratulations, you are added to the Health Network Programme!" +
		" You can now make free calls and SMSs to other practitioners in the programme.",
	"sw": "HONGERA! umefanikiwa kujiunga na Mtandao wa watumishi wa Afya" +
		" nchini.Sasa unaweza kuongea na kutuma SMS BURE.",
}

// TODO: replace the sw deactivation text once a Swahili translation is provided.
var defaultDeactivation = map[string]string{
	"en": "You have been removed from the Health Network Programme and" +
		" may no longer make free calls and SMSs to practitioners in the programme.",
	"sw": "You have been removed from the Health Network Programme and" +
		" may no longer make free calls and SMSs to practitioners in the programme.",
}

// Catalog holds the closed user group notification texts by language.
type Catalog struct {
	activation   messageSet
	deactivation messageSet
}

type catalogFile struct {
	Activation   map[string]string `yaml:"activation"`
	Deactivation map[string]string `yaml:"deactivation"`
}

type messageSet struct {
	texts   []string
	matcher language.Matcher
}

func newMessageSet(texts map[string]string) messageSet {
	codes := make([]string, 0, len(texts))
	for code := range texts {
		if code != DefaultLanguage {
			codes = append(codes, code)
		}
	}
	slices.Sort(codes)
	codes = append([]string{DefaultLanguage}, codes...)

	tags := make([]language.Tag, len(codes))
	ordered := make([]string, len(codes))
	for i, code := range codes {
		tags[i] = language.Make(code)
		ordered[i] = texts[code]
	}
	return messageSet{texts: ordered, matcher: language.NewMatcher(tags)}
}

func (m messageSet) lookup(lang string) string {
	if lang == "" {
		return m.texts[0]
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return m.texts[0]
	}
	_, idx, conf := m.matcher.Match(tag)
	if conf == language.No || idx >= len(m.texts) || m.texts[idx] == "" {
		return m.texts[0]
	}
	return m.texts[idx]
}

// NewCatalog returns the built-in texts.
func NewCatalog() *Catalog {
	return &Catalog{
		activation:   newMessageSet(defaultActivation),
		deactivation: newMessageSet(defaultDeactivation),
	}
}

// LoadCatalog reads text overrides from a YAML file of the form
//
//	activation:
//	  sw: "..."
//	deactivation:
//	  sw: "..."
//
// Languages missing from the file keep the built-in texts. An empty path
// returns the built-in catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return NewCatalog(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sms catalog: %w", err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse sms catalog: %w", err)
	}
	return &Catalog{
		activation:   newMessageSet(merge(defaultActivation, file.Activation)),
		deactivation: newMessageSet(merge(defaultDeactivation, file.Deactivation)),
	}, nil
}

func merge(base, overrides map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(overrides))
	for code, text := range base {
		out[code] = text
	}
	for code, text := range overrides {
		if text != "" {
			out[code] = text
		}
	}
	return out
}

// Activation returns the text sent when a worker joins the closed user group.
func (c *Catalog) Activation(lang string) string {
	return c.activation.lookup(lang)
}

// Deactivation returns the text sent when a worker leaves the closed user group.
func (c *Catalog) Deactivation(lang string) string {
	return c.deactivation.lookup(lang)
}
