package blogdesk

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	MsgSlugRequired     = "Slug is required"
	MsgTitleRequired    = "Title is required"
	MsgMarkdownRequired = "Markdown is required"
)

// FieldErrors holds one optional message per post field. A nil field is valid.
type FieldErrors struct {
	Slug     *string `json:"slug"`
	Title    *string `json:"title"`
	Markdown *string `json:"markdown"`
}

// Validation is the result of checking a PostForm.
type Validation struct {
	HasErrors bool        `json:"hasErrors"`
	Errors    FieldErrors `json:"errors"`
}

// Validate checks that slug, title and markdown are present.
//
// Only empty strings are rejected. A value made of whitespace counts as present, which matches how
// the admin forms have always behaved; callers that want trimming must do it before validating.
func Validate(form PostForm) Validation {
	err := validation.ValidateStruct(&form,
		validation.Field(&form.Slug, validation.Required.Error(MsgSlugRequired)),
		validation.Field(&form.Title, validation.Required.Error(MsgTitleRequired)),
		validation.Field(&form.Markdown, validation.Required.Error(MsgMarkdownRequired)),
	)

	var result Validation
	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) {
		return result
	}

	result.Errors.Slug = fieldMessage(fieldErrs, "slug")
	result.Errors.Title = fieldMessage(fieldErrs, "title")
	result.Errors.Markdown = fieldMessage(fieldErrs, "markdown")
	result.HasErrors = result.Errors.Slug != nil || result.Errors.Title != nil || result.Errors.Markdown != nil

	return result
}

func fieldMessage(errs validation.Errors, key string) *string {
	err, ok := errs[key]
	if !ok || err == nil {
		return nil
	}
	msg := err.Error()
	return &msg
}
