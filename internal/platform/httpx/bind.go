package httpx

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/landbook/landbook/internal/shared"
)

// Bind decodes the JSON body into target and validates it.
func Bind(r *http.Request, v *validator.Validate, target any) error {
	if err := DecodeJSON(r, target); err != nil {
		return shared.Wrapf(shared.ErrValidation, "invalid request body: %v", err)
	}
	if v == nil {
		return nil
	}
	return Validate(v, target)
}

// BindOptional is Bind for endpoints whose body may be empty.
func BindOptional(r *http.Request, v *validator.Validate, target any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return validateIfSet(v, target)
	}
	if err := DecodeJSON(r, target); err != nil && !errors.Is(err, io.EOF) {
		return shared.Wrapf(shared.ErrValidation, "invalid request body: %v", err)
	}
	return validateIfSet(v, target)
}

func validateIfSet(v *validator.Validate, target any) error {
	if v == nil {
		return nil
	}
	return Validate(v, target)
}

// Validate runs struct validation and converts failures to domain errors.
// A missing required field is reported as MissingField.
func Validate(v *validator.Validate, target any) error {
	err := v.Struct(target)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return shared.Wrap(shared.ErrValidation, err.Error())
	}
	msgs := make([]string, 0, len(verrs))
	missing := false
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			missing = true
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	base := shared.ErrValidation
	if missing {
		base = shared.ErrMissingField
	}
	return shared.Wrap(base, strings.Join(msgs, "; "))
}

// IDParam parses a positive int64 path parameter.
func IDParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.Wrapf(shared.ErrValidation, "invalid %s %q", name, raw)
	}
	return id, nil
}

// QueryInt reads an integer query parameter, returning def when absent.
func QueryInt(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, shared.Wrapf(shared.ErrValidation, "invalid %s %q", name, raw)
	}
	return v, nil
}

// QueryInt64 reads an optional int64 query parameter.
func QueryInt64(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, shared.Wrapf(shared.ErrValidation, "invalid %s %q", name, raw)
	}
	return v, nil
}

// QueryDate reads an optional YYYY-MM-DD query parameter.
func QueryDate(r *http.Request, name string) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(shared.DateLayout, raw)
	if err != nil {
		return nil, shared.Wrapf(shared.ErrValidation, "invalid %s %q, expected YYYY-MM-DD", name, raw)
	}
	return &t, nil
}

// PageFromQuery reads page/perPage query parameters.
func PageFromQuery(r *http.Request) shared.PageRequest {
	page, _ := QueryInt(r, "page", 1)
	perPage, _ := QueryInt(r, "perPage", 0)
	return shared.PageRequest{Page: page, PerPage: perPage}
}
