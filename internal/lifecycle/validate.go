package lifecycle

import (
	"fmt"
	"html"
	"reflect"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"

	apperrors "github.com/aawaaz/ticket-server/internal/errors"
	"github.com/aawaaz/ticket-server/internal/models"
)

const (
	MaxAttachmentBytes = 5 << 20
	MaxResponseRunes   = 5000
)

var allowedAttachmentTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

var (
	validate  *validator.Validate
	stripTags = bluemonday.StrictPolicy()
)

func init() {
	validate = validator.New()

	// Report fields by their JSON names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Entity-encoded markup can nest; text still changing after this many
// passes is returned escaped.
const maxCleanPasses = 6

// CleanText strips markup and surrounding whitespace from user-entered text.
// Entities are decoded, and the result is sanitized again until stable so
// encoded tags never come back as live markup.
func CleanText(s string) string {
	for i := 0; i < maxCleanPasses; i++ {
		cleaned := html.UnescapeString(stripTags.Sanitize(s))
		if cleaned == s {
			return strings.TrimSpace(s)
		}
		s = cleaned
	}
	return strings.TrimSpace(stripTags.Sanitize(s))
}

// NormalizeContent cleans every free-text field of c in place and validates
// the result. The returned error is a ValidationError naming the first
// offending field.
func NormalizeContent(c *models.TicketContent) error {
	c.Title = CleanText(c.Title)
	c.Description = CleanText(c.Description)
	return validateStruct(c)
}

// NormalizeResponse cleans an admin response. An empty result is not an
// error: callers treat it as "no response supplied".
func NormalizeResponse(text string) (string, error) {
	cleaned := CleanText(text)
	if n := len([]rune(cleaned)); n > MaxResponseRunes {
		return "", apperrors.NewValidationError("response",
			fmt.Sprintf("response must be at most %d characters long", MaxResponseRunes))
	}
	return cleaned, nil
}

// NormalizeGlobalStatus cleans and validates a banner publish request.
func NormalizeGlobalStatus(in *models.GlobalStatusInput) error {
	in.Message = CleanText(in.Message)
	if in.Message == "" {
		return apperrors.NewValidationError("message", "message is required")
	}
	return validateStruct(in)
}

// AttachmentInfo describes an accepted upload.
type AttachmentInfo struct {
	ContentType string
	Extension   string
	Size        int
}

// InspectAttachment enforces the upload rules: JPEG or PNG only, at most
// MaxAttachmentBytes, and the bytes must actually be of the declared type.
func InspectAttachment(data []byte, declared string) (AttachmentInfo, error) {
	contentType := strings.ToLower(strings.TrimSpace(strings.SplitN(declared, ";", 2)[0]))
	if contentType == "image/jpg" {
		contentType = "image/jpeg"
	}

	if len(data) == 0 {
		return AttachmentInfo{}, apperrors.NewValidationError("attachment", "attachment is empty")
	}
	if len(data) > MaxAttachmentBytes {
		return AttachmentInfo{}, apperrors.NewValidationError("attachment", "file size must be less than 5MB")
	}
	ext, ok := allowedAttachmentTypes[contentType]
	if !ok {
		return AttachmentInfo{}, apperrors.NewValidationError("attachment", "only JPG and PNG images are allowed")
	}
	if detected := mimetype.Detect(data); !detected.Is(contentType) {
		return AttachmentInfo{}, apperrors.NewValidationError("attachment",
			fmt.Sprintf("file content is %s, not %s", detected.String(), contentType))
	}

	return AttachmentInfo{ContentType: contentType, Extension: ext, Size: len(data)}, nil
}

func validateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok || len(validationErrors) == 0 {
		return apperrors.NewValidationError("", err.Error())
	}

	fe := validationErrors[0]
	return apperrors.NewValidationError(fe.Field(), fieldErrorMessage(fe))
}

func fieldErrorMessage(fe validator.FieldError) string {
	field := fe.Field()
	param := fe.Param()

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
