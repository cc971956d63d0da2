package planner

import (
	"fmt"
	"sort"
	"strings"

	"activity-planner/internal/sunrise"
)

const DefaultLanguage = "pt"

// ActivityResponse is what a plan request returns. Sunrise and Sunset are
// the provider strings untouched; only the activity texts are shortened.
type ActivityResponse struct {
	Sunrise    string   `json:"sunrise"`
	Sunset     string   `json:"sunset"`
	DayLength  string   `json:"day_length"`
	Activities []string `json:"activities"`
}

type activityTexts struct {
	sunrise string // takes the sunrise time
	midday  string
	sunset  string // takes the sunset time
	night   string
}

var texts = map[string]activityTexts{
	"pt": {
		sunrise: "Caminhada ao nascer do sol às %s",
		midday:  "Piquenique durante o dia",
		sunset:  "Fotografia ao pôr do sol às %s",
		night:   "Observação de estrelas após o pôr do sol",
	},
	"en": {
		sunrise: "Sunrise walk at %s",
		midday:  "Picnic during the day",
		sunset:  "Sunset photography at %s",
		night:   "Stargazing after sunset",
	},
}

// Languages lists the supported activity languages.
func Languages() []string {
	out := make([]string, 0, len(texts))
	for lang := range texts {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// IsSupportedLanguage reports whether lang has activity texts.
func IsSupportedLanguage(lang string) bool {
	_, ok := texts[strings.ToLower(strings.TrimSpace(lang))]
	return ok
}

// Composer turns sun data into the activity response.
type Composer struct {
	texts activityTexts
}

func NewComposer(language string) (*Composer, error) {
	lang := strings.ToLower(strings.TrimSpace(language))
	if lang == "" {
		lang = DefaultLanguage
	}
	t, ok := texts[lang]
	if !ok {
		return nil, fmt.Errorf("unsupported activity language %q (supported: %s)",
			language, strings.Join(Languages(), ", "))
	}
	return &Composer{texts: t}, nil
}

// Compose has no side effects; the same input always yields the same response.
func (c *Composer) Compose(data sunrise.Data) *ActivityResponse {
	return &ActivityResponse{
		Sunrise:   data.Sunrise,
		Sunset:    data.Sunset,
		DayLength: data.DayLength,
		Activities: []string{
			fmt.Sprintf(c.texts.sunrise, StripSeconds(data.Sunrise)),
			c.texts.midday,
			fmt.Sprintf(c.texts.sunset, StripSeconds(data.Sunset)),
			c.texts.night,
		},
	}
}

// StripSeconds turns "2:08:55 PM" into "2:08 PM". Anything not shaped like
// "<h>:<mm>[:...] <marker>" is returned unchanged.
func StripSeconds(value string) string {
	parts := strings.Fields(value)
	if len(parts) != 2 {
		return value
	}

	clock, marker := parts[0], parts[1]
	fields := strings.Split(clock, ":")
	if len(fields) < 2 {
		return value
	}

	return fields[0] + ":" + fields[1] + " " + marker
}
