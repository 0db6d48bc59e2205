// Package notice renders the localized system notices shown in a room.
package notice

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/weiawesome/wes-io-live/turn-service/internal/domain"
)

// DefaultLocale is the language rooms speak unless configured otherwise.
const DefaultLocale = "es"

// Message keys double as the English text.
var keys = map[domain.NoticeKind]string{
	domain.NoticeJoined:     "%s joined the room",
	domain.NoticeLeft:       "%s left the room",
	domain.NoticeStopped:    "%s stopped writing",
	domain.NoticeWriterLeft: "%s left the room and released the turn",
	domain.NoticeInactivity: "The turn of %s was released due to inactivity",
}

var translations = map[language.Tag]map[domain.NoticeKind]string{
	language.Spanish: {
		domain.NoticeJoined:     "%s se unió a la sala",
		domain.NoticeLeft:       "%s dejó la sala",
		domain.NoticeStopped:    "%s dejó de escribir",
		domain.NoticeWriterLeft: "%s salió de la sala y liberó el turno",
		domain.NoticeInactivity: "Se liberó el turno de %s por inactividad",
	},
}

// supported lists the catalog locales; the first is the fallback for
// unmatched requests.
var supported = []language.Tag{language.Spanish, language.English}

var matcher = language.NewMatcher(supported)

// Catalog formats notices for one locale.
type Catalog struct {
	tag     language.Tag
	printer *message.Printer
}

// New returns a catalog for the closest supported match to locale.
func New(locale string) (*Catalog, error) {
	requested, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("parse locale %q: %w", locale, err)
	}

	builder, err := buildCatalog()
	if err != nil {
		return nil, err
	}

	_, index, _ := matcher.Match(requested)
	tag := supported[index]

	return &Catalog{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(builder)),
	}, nil
}

// MustNew is New for package-level defaults and tests.
func MustNew(locale string) *Catalog {
	c, err := New(locale)
	if err != nil {
		panic(err)
	}
	return c
}

func buildCatalog() (*catalog.Builder, error) {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for _, key := range keys {
		if err := b.SetString(language.English, key, key); err != nil {
			return nil, fmt.Errorf("set %q: %w", key, err)
		}
	}
	for tag, msgs := range translations {
		for kind, msg := range msgs {
			if err := b.SetString(tag, keys[kind], msg); err != nil {
				return nil, fmt.Errorf("set %s %q: %w", tag, kind, err)
			}
		}
	}
	return b, nil
}

// Locale returns the resolved locale.
func (c *Catalog) Locale() string {
	return c.tag.String()
}

// Notice renders kind naming displayName. Unknown kinds render empty.
func (c *Catalog) Notice(kind domain.NoticeKind, displayName string) string {
	key, ok := keys[kind]
	if !ok {
		return ""
	}
	return c.printer.Sprintf(key, displayName)
}
