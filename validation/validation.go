// Package validation turns raw request input into trimmed, sanitized payloads or
// structured field errors. Every function here is pure.
package validation

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/cppla/madickblog/models"
	"github.com/cppla/madickblog/utils"
)

// Length limits, counted in runes. The struct tags below reach them through the
// title_len, content_len and comment_len aliases.
const (
	MaxTitleLength   = 255
	MaxContentLength = 50000
	MaxCommentLength = 10000
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterAlias("title_len", "max="+strconv.Itoa(MaxTitleLength))
	v.RegisterAlias("content_len", "max="+strconv.Itoa(MaxContentLength))
	v.RegisterAlias("comment_len", "max="+strconv.Itoa(MaxCommentLength))
	return v
}

// PostInput is the raw create/edit payload.
type PostInput struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category string `json:"category"`
}

// CommentInput is the raw comment payload.
type CommentInput struct {
	Content string `json:"content"`
}

// Post is a validated post payload.
type Post struct {
	Title    string `json:"title" validate:"required,title_len"`
	Content  string `json:"content" validate:"required,content_len"`
	Category string `json:"category"`
}

// Comment is a validated comment payload.
type Comment struct {
	Content string `json:"content" validate:"required,comment_len"`
}

// ValidatePost trims and sanitizes a post payload. The title is checked before the
// content. An empty category resolves to the first entry of categories; any other
// value must match one of them, ignoring case.
func ValidatePost(in PostInput, categories []string) (Post, error) {
	out := Post{
		Title:   clean(in.Title, utils.SanitizeText),
		Content: clean(in.Content, utils.Sanitize),
	}
	if err := check(out); err != nil {
		return Post{}, err
	}

	category, err := resolveCategory(in.Category, categories)
	if err != nil {
		return Post{}, err
	}
	out.Category = category
	return out, nil
}

// ValidateComment trims and sanitizes comment content.
func ValidateComment(in CommentInput) (Comment, error) {
	out := Comment{Content: clean(in.Content, utils.Sanitize)}
	if err := check(out); err != nil {
		return Comment{}, err
	}
	return out, nil
}

// ParseID parses a positive base-10 identifier.
func ParseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 || id > uint64(^uint(0)) {
		return 0, models.NewInvalidIdentifierError(raw)
	}
	return uint(id), nil
}

func clean(raw string, sanitize func(string) string) string {
	return strings.TrimSpace(sanitize(strings.TrimSpace(raw)))
}

func resolveCategory(raw string, categories []string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if len(categories) == 0 {
			return "", nil
		}
		return categories[0], nil
	}
	for _, c := range categories {
		if strings.EqualFold(c, raw) {
			return c, nil
		}
	}
	return "", models.NewInvalidFieldError("category", "unknown category "+strconv.Quote(raw))
}

// check runs the struct rules and converts the first violation into an AppError.
func check(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return models.NewInternalError("validation failed", err)
	}
	fe := verrs[0]
	switch fe.ActualTag() {
	case "required":
		return models.NewMissingFieldError(fe.Field())
	case "max":
		return models.NewInvalidFieldError(fe.Field(), fe.Field()+" must be at most "+fe.Param()+" characters")
	default:
		return models.NewInvalidFieldError(fe.Field(), fe.Field()+" is invalid")
	}
}
