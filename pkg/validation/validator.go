package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// Metric names accepted in analysis.metrics and by the query API
	MetricNames = []string{"degree", "betweenness", "eigenvector", "bridging", "closeness", "pagerank"}

	// Upper bound on ranking sizes served by the API
	MaxTopLimit = 1000
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Report field names the way they appear in config files and requests
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"mapstructure", "json"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return fld.Name
	})
}

// TopRequest is a ranking query from the API
type TopRequest struct {
	Metric string `json:"metric" validate:"required,oneof=degree betweenness eigenvector bridging closeness pagerank"`
	Limit  int    `json:"limit" validate:"gte=1,lte=1000"`
}

// ValidateTopRequest validates a ranking query
func ValidateTopRequest(req *TopRequest) error {
	if req == nil {
		return errors.New("top request cannot be nil")
	}
	return Struct(req)
}

// Struct validates a tagged struct and returns the first failure in a
// readable form, using the namespace of the failing field.
func Struct(v any) error {
	if err := validate.Struct(v); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := fieldPath(e.Namespace())
		param := e.Param()

		switch e.Tag() {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min", "gte":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "max", "lte":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "gt":
			return fmt.Errorf("%s: must be greater than %s", field, param)
		case "lt":
			return fmt.Errorf("%s: must be less than %s", field, param)
		case "oneof":
			return fmt.Errorf("%s: %v must be one of [%s]", field, e.Value(), param)
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
		}
	}

	return err
}

// fieldPath drops the root struct name from a validator namespace
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}
