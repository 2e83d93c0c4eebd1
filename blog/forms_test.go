package blog

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmailPostFormValidate(t *testing.T) {
	valid := url.Values{
		"name":  {" Ann "},
		"email": {"ann@example.com"},
		"to":    {"bob@example.com"},
	}
	form := ParseEmailPostForm(valid)
	assert.Equal(t, "Ann", form.Name)
	assert.Empty(t, form.Validate(), "comments are optional")

	errs := ParseEmailPostForm(url.Values{}).Validate()
	assert.Equal(t, FormErrors{
		"name":  "This field is required.",
		"email": "This field is required.",
		"to":    "This field is required.",
	}, errs)

	form.Name = strings.Repeat("x", 26)
	form.To = "not-an-email"
	errs = form.Validate()
	assert.Equal(t, "Ensure this value has at most 25 characters.", errs["name"])
	assert.Equal(t, "Enter a valid email address.", errs["to"])
	assert.False(t, errs.Has("email"))
}

func TestCommentFormValidate(t *testing.T) {
	form := ParseCommentForm(url.Values{
		"name":  {"Ann"},
		"email": {"ann@example.com"},
		"body":  {"Nice post"},
	})
	assert.Empty(t, form.Validate())

	c := form.Comment(7)
	assert.Equal(t, int64(7), c.PostID)
	assert.True(t, c.Active)
	assert.Equal(t, "Nice post", c.Body)

	form.Body = "   "
	form = ParseCommentForm(url.Values{"name": {form.Name}, "email": {"nope"}, "body": {form.Body}})
	errs := form.Validate()
	assert.True(t, errs.Has("email"))
	assert.True(t, errs.Has("body"), "whitespace-only body is empty")
	assert.False(t, errs.Has("name"))

	form.Name = strings.Repeat("n", 81)
	assert.Equal(t, "Ensure this value has at most 80 characters.", form.Validate()["name"])
}

func TestSearchFormValidate(t *testing.T) {
	assert.True(t, SearchForm{}.Validate().Has("query"))
	assert.Empty(t, SearchForm{Query: "go"}.Validate())
}
