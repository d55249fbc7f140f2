//go:build property

package blogdesk_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/hypergopher/blogdesk"
)

func TestValidateProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	field := gen.OneGenOf(gen.Const(""), gen.AnyString(), gen.AlphaString())

	properties.Property("a field has an error exactly when it is empty", prop.ForAll(
		func(slug, title, markdown string) bool {
			v := blogdesk.Validate(blogdesk.PostForm{Slug: slug, Title: title, Markdown: markdown})
			return (v.Errors.Slug != nil) == (slug == "") &&
				(v.Errors.Title != nil) == (title == "") &&
				(v.Errors.Markdown != nil) == (markdown == "")
		},
		field, field, field,
	))

	properties.Property("hasErrors is the OR of the field errors", prop.ForAll(
		func(slug, title, markdown string) bool {
			v := blogdesk.Validate(blogdesk.PostForm{Slug: slug, Title: title, Markdown: markdown})
			return v.HasErrors == (v.Errors.Slug != nil || v.Errors.Title != nil || v.Errors.Markdown != nil)
		},
		field, field, field,
	))

	properties.Property("validation is deterministic", prop.ForAll(
		func(slug, title, markdown string) bool {
			form := blogdesk.PostForm{Slug: slug, Title: title, Markdown: markdown}
			a, b := blogdesk.Validate(form), blogdesk.Validate(form)
			return a.HasErrors == b.HasErrors &&
				(a.Errors.Slug == nil) == (b.Errors.Slug == nil) &&
				(a.Errors.Title == nil) == (b.Errors.Title == nil) &&
				(a.Errors.Markdown == nil) == (b.Errors.Markdown == nil)
		},
		field, field, field,
	))

	properties.TestingRun(t)
}
