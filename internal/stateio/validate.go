package stateio

import (
	"strings"
	"unicode/utf8"

	"stateflow.dev/stateflow/internal/domain"
	apperrors "stateflow.dev/stateflow/internal/pkg/errors"
)

// Field-level validation codes.
const (
	fieldRequired = "REQUIRED"
	fieldTooLong  = "TOO_LONG"
)

type validator struct {
	errs []apperrors.FieldError
}

func (v *validator) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.errs = append(v.errs, apperrors.FieldError{Field: field, Code: fieldRequired})
	}
}

func (v *validator) maxLen(field, value string, limit int) {
	if utf8.RuneCountInString(value) > limit {
		v.errs = append(v.errs, apperrors.FieldError{
			Field:   field,
			Code:    fieldTooLong,
			Message: "exceeds maximum length",
		})
	}
}

func (v *validator) label(field, value string) {
	v.required(field, value)
	v.maxLen(field, strings.TrimSpace(value), domain.MaxLabelLength)
}

func (v *validator) err() error {
	if len(v.errs) == 0 {
		return nil
	}
	return apperrors.ErrValidation(v.errs...)
}

func validateTermInput(label, description string) error {
	var v validator
	v.label("label", label)
	v.maxLen("description", strings.TrimSpace(description), domain.MaxDescriptionLength)
	return v.err()
}

func validateTermPatch(id string, patch domain.TermPatch) error {
	var v validator
	v.required("id", id)
	if patch.Label != nil {
		v.label("label", *patch.Label)
	}
	if patch.Description != nil {
		v.maxLen("description", strings.TrimSpace(*patch.Description), domain.MaxDescriptionLength)
	}
	return v.err()
}

func validateStateInput(in domain.StateInput) error {
	var v validator
	v.required("project_id", in.ProjectID)
	v.required("name", in.Name)
	v.maxLen("name", strings.TrimSpace(in.Name), domain.MaxStateNameLength)
	return v.err()
}

func validateStatePatch(id string, patch domain.StatePatch) error {
	var v validator
	v.required("id", id)
	if patch.Name != nil {
		v.required("name", *patch.Name)
		v.maxLen("name", strings.TrimSpace(*patch.Name), domain.MaxStateNameLength)
	}
	return v.err()
}
