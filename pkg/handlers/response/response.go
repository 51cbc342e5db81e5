// Package response writes the JSON envelopes shared by all HTTP handlers.
package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/chris/library-ledger/pkg/apperrors"
	"github.com/chris/library-ledger/pkg/models"
	"github.com/go-playground/validator/v10"
	"github.com/oapi-codegen/runtime"
)

// UserHeader carries the acting user of a mutating request.
const UserHeader = "X-User-ID"

var validate = validator.New()

type envelope struct {
	Success    bool               `json:"success"`
	Data       any                `json:"data,omitempty"`
	Pagination *models.Pagination `json:"pagination,omitempty"`
}

type errorBody struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// JSON writes a success envelope around data.
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, envelope{Success: true, Data: data})
}

// Page writes a success envelope around one page of results.
func Page(w http.ResponseWriter, data any, p models.Pagination) {
	write(w, http.StatusOK, envelope{Success: true, Data: data, Pagination: &p})
}

// Error writes the error envelope with the status matching the error's kind.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusOf(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "path", r.URL.Path, "error", err)
	}
	write(w, status, errorBody{
		Code:    string(apperrors.CodeOf(err)),
		Message: apperrors.MessageOf(err),
	})
}

// StatusOf maps an error kind onto an HTTP status.
func StatusOf(err error) int {
	switch apperrors.KindOf(err) {
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindInvalidInput:
		return http.StatusBadRequest
	case apperrors.KindConflict:
		return http.StatusConflict
	case apperrors.KindTransient:
		return http.StatusServiceUnavailable
	case apperrors.KindUnexpected:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

func write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

// UserID returns the acting user from the request header.
func UserID(r *http.Request) (string, error) {
	userID := r.Header.Get(UserHeader)
	if userID == "" {
		return "", apperrors.Invalid("%s header is required", UserHeader)
	}
	return userID, nil
}

// Decode reads a JSON body into dst and validates it.
func Decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.Invalid("invalid request body: %v", err)
	}
	return Validate(dst)
}

// Validate runs the struct's validate tags.
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return apperrors.Invalid("field %s failed on %s", fe.Field(), fe.Tag())
		}
		return apperrors.Invalid("invalid request: %v", err)
	}
	return nil
}

// Query binds an optional form style query parameter into dest.
func Query(q url.Values, name string, dest any) error {
	if err := runtime.BindQueryParameter("form", true, false, name, q, dest); err != nil {
		return apperrors.Invalid("invalid query parameter %s: %v", name, err)
	}
	return nil
}

// PageRequest binds and validates the page and limit query parameters.
func PageRequest(q url.Values) (models.PageRequest, error) {
	var page, limit *int
	if err := Query(q, "page", &page); err != nil {
		return models.PageRequest{}, err
	}
	if err := Query(q, "limit", &limit); err != nil {
		return models.PageRequest{}, err
	}

	p := models.PageRequest{Page: models.DefaultPage, Limit: models.DefaultLimit}
	if page != nil {
		p.Page = *page
	}
	if limit != nil {
		p.Limit = *limit
	}
	if err := Validate(p); err != nil {
		return models.PageRequest{}, fmt.Errorf("invalid pagination: %w", err)
	}
	return p, nil
}
