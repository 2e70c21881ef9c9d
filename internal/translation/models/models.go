package models

import (
	"strings"

	"github.com/google/uuid"

	dErrors "lokal/pkg/domain-errors"
)

// DefaultLangID is the language a resource's first translation is filed under.
const DefaultLangID = "default"

// MaxLangIDLength matches the lang_id column width.
const MaxLangIDLength = 10

// Translation is one localized text of a TextResource. Values are snapshots;
// the owning aggregate is the only place a translation changes.
type Translation struct {
	id     int64
	sid    string
	langID string
	text   string
}

// ID is the persistence-assigned id, zero until the owning resource is saved.
func (t Translation) ID() int64      { return t.id }
func (t Translation) Sid() string    { return t.sid }
func (t Translation) LangID() string { return t.langID }
func (t Translation) Text() string   { return t.text }

// RestoreTranslation rebuilds a persisted translation. Stores only.
func RestoreTranslation(id int64, sid, langID, text string) Translation {
	return Translation{id: id, sid: sid, langID: langID, text: text}
}

// TextResource is the aggregate root for one localizable string.
//
// Invariants:
//   - sid is non-blank and never changes
//   - at most one translation per langID, compared case-insensitively
//   - translations change only through AddOrUpdateTranslation
type TextResource struct {
	id           uuid.UUID
	sid          string
	translations []*Translation
}

// New creates a resource with a fresh id and no translations.
func New(sid string) (*TextResource, error) {
	if strings.TrimSpace(sid) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "sid is required")
	}
	return &TextResource{id: uuid.New(), sid: sid}, nil
}

// Restore rebuilds a persisted aggregate. Stores only.
func Restore(id uuid.UUID, sid string, translations []Translation) *TextResource {
	r := &TextResource{id: id, sid: sid, translations: make([]*Translation, 0, len(translations))}
	for _, t := range translations {
		r.translations = append(r.translations, &t)
	}
	return r
}

func (r *TextResource) ID() uuid.UUID { return r.id }
func (r *TextResource) Sid() string   { return r.sid }

// Translations returns a copy of the owned translations.
func (r *TextResource) Translations() []Translation {
	out := make([]Translation, 0, len(r.translations))
	for _, t := range r.translations {
		out = append(out, *t)
	}
	return out
}

// Translation looks up a translation by case-insensitive langID.
func (r *TextResource) Translation(langID string) (Translation, bool) {
	if t := r.find(langID); t != nil {
		return *t, true
	}
	return Translation{}, false
}

// AddOrUpdateTranslation overwrites the text for langID in place, keeping its
// id, or appends a new translation bound to this resource's sid.
func (r *TextResource) AddOrUpdateTranslation(langID, text string) error {
	if strings.TrimSpace(langID) == "" {
		return dErrors.New(dErrors.CodeValidation, "langId is required")
	}
	if len(langID) > MaxLangIDLength {
		return dErrors.New(dErrors.CodeValidation, "langId must be at most 10 characters")
	}
	if existing := r.find(langID); existing != nil {
		existing.text = text
		return nil
	}
	r.translations = append(r.translations, &Translation{sid: r.sid, langID: langID, text: text})
	return nil
}

// AssignTranslationID records the id persistence gave the translation for
// langID. Stores only.
func (r *TextResource) AssignTranslationID(langID string, id int64) {
	if t := r.find(langID); t != nil {
		t.id = id
	}
}

func (r *TextResource) find(langID string) *Translation {
	for _, t := range r.translations {
		if strings.EqualFold(t.langID, langID) {
			return t
		}
	}
	return nil
}
