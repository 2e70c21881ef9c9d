package handler

import (
	"strings"

	"lokal/internal/translation/models"
	dErrors "lokal/pkg/domain-errors"
)

// TranslationDTO is one localized text on the wire.
type TranslationDTO struct {
	LangID string `json:"langId"`
	Text   string `json:"text"`
}

// TextResourceDTO is a resource and all of its translations on the wire.
type TextResourceDTO struct {
	Sid          string           `json:"sid"`
	Translations []TranslationDTO `json:"translations"`
}

// CreateRequest is the body of POST /api/translations.
type CreateRequest struct {
	Sid         string `json:"sid"`
	DefaultText string `json:"defaultText"`
}

const reservedSid = "sids"

func (r *CreateRequest) Validate() error {
	r.Sid = strings.TrimSpace(r.Sid)
	if r.Sid == "" {
		return dErrors.New(dErrors.CodeValidation, "sid is required")
	}
	// GET /api/translations/sids lists sids, so a resource by that name
	// could never be fetched.
	if r.Sid == reservedSid {
		return dErrors.New(dErrors.CodeValidation, "sid \"sids\" is reserved")
	}
	return nil
}

// UpdateRequest is the body of PUT /api/translations/{sid}/{langId}.
type UpdateRequest struct {
	Text *string `json:"text"`
}

func (r *UpdateRequest) Validate() error {
	if r.Text == nil {
		return dErrors.New(dErrors.CodeValidation, "text is required")
	}
	return nil
}

// FromResource maps an aggregate to its wire form.
func FromResource(res *models.TextResource) TextResourceDTO {
	translations := res.Translations()
	dto := TextResourceDTO{Sid: res.Sid(), Translations: make([]TranslationDTO, 0, len(translations))}
	for _, t := range translations {
		dto.Translations = append(dto.Translations, TranslationDTO{LangID: t.LangID(), Text: t.Text()})
	}
	return dto
}

// FromResources maps a list of aggregates.
func FromResources(resources []*models.TextResource) []TextResourceDTO {
	out := make([]TextResourceDTO, 0, len(resources))
	for _, res := range resources {
		out = append(out, FromResource(res))
	}
	return out
}
