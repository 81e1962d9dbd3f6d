// Package mobiledoc reads and writes the markdown card of Ghost's
// mobiledoc post format. Only documents made of a single markdown card
// are supported; anything produced by the Koenig editor's other cards is
// rejected rather than partially edited.
package mobiledoc

import (
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	apperrors "github.com/alexjbarnes/ghost-sync/internal/errors"
)

// Version is the mobiledoc format version this package reads and writes.
const Version = "0.3.1"

const (
	cardNameKoenig = "markdown"
	cardNameLegacy = "card-markdown"

	// sectionTypeMarkup is a paragraph-like section; sectionTypeCard
	// references an entry in "cards".
	sectionTypeMarkup = 1
	sectionTypeCard   = 10

	markdownPath = "cards.0.1.markdown"
)

// empty is the seed document for new posts: one legacy markdown card with
// an empty body and a single section pointing at it.
const empty = `{"version":"` + Version + `","markups":[],"atoms":[],"cards":[["card-markdown",{"cardName":"card-markdown","markdown":""}]],"sections":[[10,0]]}`

// Initialize returns an empty document with a single markdown card.
func Initialize() string {
	return empty
}

// HasOnlyMarkdownCard reports whether doc consists of exactly one markdown
// card and nothing else. Empty markup sections ([1, "p", []]) are ignored.
// Malformed input yields false.
func HasOnlyMarkdownCard(doc string) bool {
	if !gjson.Valid(doc) {
		return false
	}

	root := gjson.Parse(doc)

	cards := root.Get("cards")
	if !cards.IsArray() {
		return false
	}

	cardList := cards.Array()
	if len(cardList) != 1 || !cardList[0].IsArray() {
		return false
	}

	card := cardList[0].Array()
	if len(card) < 2 {
		return false
	}

	if name := card[0]; name.Type != gjson.String || (name.Str != cardNameKoenig && name.Str != cardNameLegacy) {
		return false
	}

	if !card[1].IsObject() || card[1].Get("markdown").Type != gjson.String {
		return false
	}

	sections := root.Get("sections")
	if !sections.IsArray() {
		return false
	}

	var nonEmpty []gjson.Result

	for _, s := range sections.Array() {
		if !s.IsArray() {
			return false
		}

		if !isEmptySection(s) {
			nonEmpty = append(nonEmpty, s)
		}
	}

	if len(nonEmpty) != 1 {
		return false
	}

	only := nonEmpty[0].Array()

	return len(only) >= 2 &&
		only[0].Type == gjson.Number && only[0].Int() == sectionTypeCard &&
		only[1].Type == gjson.Number && only[1].Int() == 0
}

func isEmptySection(s gjson.Result) bool {
	parts := s.Array()
	if len(parts) != 3 {
		return false
	}

	return parts[0].Type == gjson.Number && parts[0].Int() == sectionTypeMarkup &&
		parts[2].IsArray() && len(parts[2].Array()) == 0
}

// ToMarkdown returns the markdown held by doc's only card.
func ToMarkdown(doc string) (string, error) {
	if !HasOnlyMarkdownCard(doc) {
		return "", apperrors.ErrUnsupportedDocument
	}

	return gjson.Get(doc, markdownPath).Str, nil
}

// InsertMarkdown returns a copy of doc whose markdown card holds markdown.
// The previous card body is replaced entirely.
func InsertMarkdown(markdown, doc string) (string, error) {
	if !HasOnlyMarkdownCard(doc) {
		return "", apperrors.ErrUnsupportedDocument
	}

	out, err := sjson.Set(doc, markdownPath, markdown)
	if err != nil {
		return "", apperrors.ErrUnsupportedDocument
	}

	return out, nil
}

// FromMarkdown returns a new document holding markdown.
func FromMarkdown(markdown string) string {
	// Initialize always passes HasOnlyMarkdownCard.
	out, _ := InsertMarkdown(markdown, Initialize())
	return out
}
