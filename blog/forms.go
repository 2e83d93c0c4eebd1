package blog

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// FormErrors maps a form field name to a human readable message.
type FormErrors map[string]string

func (fe FormErrors) Has(field string) bool {
	_, ok := fe[field]
	return ok
}

// EmailPostForm is the share-by-email form.
type EmailPostForm struct {
	Name     string `form:"name" validate:"required,max=25"`
	Email    string `form:"email" validate:"required,email"`
	To       string `form:"to" validate:"required,email"`
	Comments string `form:"comments"`
}

func ParseEmailPostForm(v url.Values) EmailPostForm {
	return EmailPostForm{
		Name:     strings.TrimSpace(v.Get("name")),
		Email:    strings.TrimSpace(v.Get("email")),
		To:       strings.TrimSpace(v.Get("to")),
		Comments: strings.TrimSpace(v.Get("comments")),
	}
}

func (f EmailPostForm) Validate() FormErrors {
	return validateForm(f, map[string]string{
		"Name": "name", "Email": "email", "To": "to", "Comments": "comments",
	})
}

// CommentForm is the comment submission form.
type CommentForm struct {
	Name  string `form:"name" validate:"required,max=80"`
	Email string `form:"email" validate:"required,email"`
	Body  string `form:"body" validate:"required"`
}

func ParseCommentForm(v url.Values) CommentForm {
	return CommentForm{
		Name:  strings.TrimSpace(v.Get("name")),
		Email: strings.TrimSpace(v.Get("email")),
		Body:  strings.TrimSpace(v.Get("body")),
	}
}

func (f CommentForm) Validate() FormErrors {
	return validateForm(f, map[string]string{"Name": "name", "Email": "email", "Body": "body"})
}

// Comment builds an active comment for postID from a validated form.
func (f CommentForm) Comment(postID int64) *Comment {
	return &Comment{PostID: postID, Name: f.Name, Email: f.Email, Body: f.Body, Active: true}
}

// SearchForm is the search box.
type SearchForm struct {
	Query string `form:"query" validate:"required"`
}

func (f SearchForm) Validate() FormErrors {
	return validateForm(f, map[string]string{"Query": "query"})
}

func validateForm(form any, fields map[string]string) FormErrors {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return FormErrors{"__all__": err.Error()}
	}
	out := make(FormErrors, len(verrs))
	for _, fe := range verrs {
		name, ok := fields[fe.StructField()]
		if !ok {
			name = strings.ToLower(fe.StructField())
		}
		out[name] = fieldMessage(fe)
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
	}
	return "Invalid value."
}
