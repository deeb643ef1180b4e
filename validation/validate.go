package validation

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/spgsite/cms-api/models"

	"gopkg.in/go-playground/validator.v9"
)

// validate is shared by all validation functions, validator.Validate caches struct information
var validate *validator.Validate

// validateOnce guards the initialization of validate
var validateOnce sync.Once

// validateSlug ensures a string is a slug, see models.SlugExp.
// Only works with fields which are strings.
func validateSlug(fl validator.FieldLevel) bool {
	return models.SlugExp.MatchString(fl.Field().String())
}

// validateImageURL ensures a string is an absolute http(s) URL or a data URL
// holding an image. Only works with fields which are strings.
func validateImageURL(fl validator.FieldLevel) bool {
	s := fl.Field().String()

	if strings.HasPrefix(s, "data:") {
		return strings.HasPrefix(s, "data:image/") && strings.Contains(s, ";base64,")
	}

	u, err := url.Parse(s)
	if err != nil {
		return false
	}

	return (u.Scheme == "http" || u.Scheme == "https") && len(u.Host) > 0
}

// getValidator returns the validator with custom validations registered
func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterValidation("slug", validateSlug)
		validate.RegisterValidation("image_url", validateImageURL)
	})

	return validate
}

// ValidateCategory ensures that a Category's data meets all constraints
func ValidateCategory(category models.Category) error {
	return getValidator().Struct(category)
}

// ValidateContent ensures that a Content's data meets all constraints
func ValidateContent(content models.Content) error {
	return getValidator().Struct(content)
}

// ValidateSliderImage ensures that a SliderImage's data meets all constraints
func ValidateSliderImage(image models.SliderImage) error {
	return getValidator().Struct(image)
}

// ValidateUser ensures that a User's data meets all constraints
func ValidateUser(user models.User) error {
	return getValidator().Struct(user)
}

// Message turns a validation error into a short text for API clients, ex.,
// "Title is required, Slug is not a valid slug"
func Message(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}

	msgs := []string{}
	for _, fieldErr := range fieldErrs {
		switch fieldErr.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fieldErr.Field()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters",
				fieldErr.Field(), fieldErr.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is not a valid %s",
				fieldErr.Field(), strings.ReplaceAll(fieldErr.Tag(), "_", " ")))
		}
	}

	return strings.Join(msgs, ", ")
}
