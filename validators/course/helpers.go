package courseValidator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var (
	validate = newValidator()

	unsafeText = regexp.MustCompile(`[<>{}]`)
	slugFormat = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("safetext", func(fl validator.FieldLevel) bool {
		return !unsafeText.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugFormat.MatchString(fl.Field().String())
	})
	return v
}

// checkStruct validates reqData and returns a field -> message map, empty
// when valid.
func checkStruct(reqData interface{}) map[string]string {
	out := make(map[string]string)
	err := validate.Struct(reqData)
	if err == nil {
		return out
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		out["body"] = "Invalid request body!"
		return out
	}
	for _, fe := range fieldErrs {
		field := fe.Field()
		if _, seen := out[field]; seen {
			continue
		}
		out[field] = fieldMessage(fe)
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	label := strings.ToUpper(fe.Field()[:1]) + fe.Field()[1:]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required!", label)
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at least %s item(s)!", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s characters long!", label, fe.Param())
	case "max":
		return fmt.Sprintf("%s must not exceed %s characters!", label, fe.Param())
	case "safetext":
		return fmt.Sprintf("%s contains invalid characters (e.g., <, >, {, })!", label)
	case "slug":
		return fmt.Sprintf("%s may only contain lowercase letters, digits and dashes!", label)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s!", label, fe.Param())
	case "uuid":
		return fmt.Sprintf("%s must contain valid ids!", label)
	case "unique":
		return fmt.Sprintf("%s must not contain duplicates!", label)
	default:
		return fmt.Sprintf("%s is invalid!", label)
	}
}

// paramUUID reads a UUID route parameter. A non-empty message means the
// parameter is missing or malformed.
func paramUUID(c *fiber.Ctx, name, label string) (uuid.UUID, string) {
	raw := strings.TrimSpace(c.Params(name))
	if raw == "" {
		return uuid.Nil, label + " is required in the URL!"
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, "Invalid " + label + "!"
	}
	return id, ""
}
