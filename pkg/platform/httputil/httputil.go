// Package httputil holds the JSON request/response helpers shared by handlers.
package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	dErrors "github.com/alangunning/nomulus/pkg/domain-errors"
)

const maxBodyBytes = 1 << 20

// Validatable is implemented by request bodies with rules beyond struct tags.
type Validatable interface {
	Validate() error
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared struct validator. Field names in messages use
// the json tag so they match what the client sent.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
		validate = v
	})
	return validate
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err's domain code onto a status and a {error, error_description}
// body. Internal errors never expose their description.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := map[string]string{"error": string(code)}
	var de *dErrors.Error
	if code != dErrors.CodeInternal && errors.As(err, &de) {
		body["error_description"] = de.Message
	}
	WriteJSON(w, dErrors.HTTPStatus(code), body)
}

// DecodeJSON decodes a size-limited body into T, rejecting unknown fields, then
// runs struct-tag validation and T's own Validate method when it has one.
func DecodeJSON[T any](r *http.Request) (*T, error) {
	var req T
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, dErrors.New(dErrors.CodeBadRequest, "request body is required")
		}
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body")
	}
	if err := Validator().Struct(&req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return nil, dErrors.New(dErrors.CodeValidation, fe.Field()+" failed "+fe.Tag()+" validation")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid request")
	}
	if v, ok := any(&req).(Validatable); ok {
		if err := v.Validate(); err != nil {
			return nil, err
		}
	}
	return &req, nil
}
