package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields under the names clients send.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name, _, _ := strings.Cut(field.Tag.Get(tag), ",")
			if name != "" && name != "-" {
				return name
			}
		}
		return field.Name
	})
	return v
}

// fieldErrors maps a validation failure to {field: message}. It returns nil
// when err is not a validation error.
func fieldErrors(err error) map[string]string {
	var invalid validator.ValidationErrors
	if !errors.As(err, &invalid) {
		return nil
	}

	out := make(map[string]string, len(invalid))
	for _, fe := range invalid {
		out[fe.Field()] = describe(fe)
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "excludesall":
		return "contains invalid characters"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

func respondValidation(ctx context.Context, w http.ResponseWriter, errs map[string]string) {
	respondJSON(ctx, w, http.StatusBadRequest, envelope{"ok": false, "errors": errs})
}

// decodeJSON reads a JSON body into dst and validates it, writing the 400
// response itself. It reports whether the handler may continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	return decodeBody(w, r, dst) && validStruct(r.Context(), w, dst)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(r.Context(), w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func validStruct(ctx context.Context, w http.ResponseWriter, dst any) bool {
	if err := validate.Struct(dst); err != nil {
		if errs := fieldErrors(err); errs != nil {
			respondValidation(ctx, w, errs)
			return false
		}
		respondError(ctx, w, http.StatusBadRequest, "invalid request")
		return false
	}
	return true
}
