package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/ayo6706/fcy-position/internal/api/middleware"
	"github.com/ayo6706/fcy-position/internal/api/problem"
	"github.com/ayo6706/fcy-position/internal/apperrors"
	"github.com/ayo6706/fcy-position/internal/domain"
	"github.com/ayo6706/fcy-position/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var validate = newValidator()

// newValidator reports failures under the json field names clients send.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// RespondJSON writes a JSON response.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// RespondError writes an error response.
func RespondError(w http.ResponseWriter, r *http.Request, status int, problemType, message string, opts ...problem.Option) {
	if problemType != "" && problemType != "about:blank" && !strings.HasPrefix(problemType, "http") {
		problemType = problem.Type(problemType)
	}
	problem.Write(w, r, status, problemType, http.StatusText(status), message, opts...)
}

// respondServiceError maps the engine's error taxonomy onto problem documents.
// Unclassified errors are logged and reported as 500 without detail.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error, op string) {
	var transition *apperrors.TransitionError
	switch {
	case errors.As(err, &transition):
		RespondError(w, r, http.StatusConflict, "workflow/invalid-transition", transition.Error())
	case errors.Is(err, apperrors.ErrValidation):
		RespondError(w, r, http.StatusBadRequest, "request/validation-failed", err.Error())
	case errors.Is(err, apperrors.ErrNotFound):
		RespondError(w, r, http.StatusNotFound, "resource/not-found", err.Error())
	case errors.Is(err, apperrors.ErrDuplicate):
		RespondError(w, r, http.StatusConflict, "resource/duplicate", err.Error())
	case errors.Is(err, apperrors.ErrStateConflict):
		RespondError(w, r, http.StatusConflict, "workflow/state-conflict", err.Error())
	case errors.Is(err, apperrors.ErrPermission):
		RespondError(w, r, http.StatusForbidden, "auth/insufficient-permissions", err.Error())
	case errors.Is(err, apperrors.ErrDependencyMissing):
		zap.L().Error(op+" failed on missing dependency", zap.Error(err))
		RespondError(w, r, http.StatusInternalServerError, "config/dependency-missing", err.Error())
	default:
		zap.L().Error(op+" failed", zap.Error(err), zap.String("trace_id", middleware.TraceIDFromContext(r.Context())))
		RespondError(w, r, http.StatusInternalServerError, "internal-server-error", "unexpected server error")
	}
}

func requestActor(w http.ResponseWriter, r *http.Request) (models.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return models.Actor{}, false
	}
	return actor, true
}

// decodeBody decodes a JSON body into dst and runs struct validation.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		params := invalidParams(err)
		RespondError(w, r, http.StatusBadRequest, "request/validation-failed", validationMessage(params, err),
			problem.WithInvalidParams(params))
		return false
	}
	return true
}

func invalidParams(err error) []problem.FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	params := make([]problem.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		params = append(params, problem.FieldError{Field: fe.Field(), Reason: fe.Tag()})
	}
	return params
}

func validationMessage(params []problem.FieldError, err error) string {
	if len(params) == 0 {
		return err.Error()
	}
	parts := make([]string, 0, len(params))
	for _, p := range params {
		parts = append(parts, p.Field+" failed "+p.Reason)
	}
	return strings.Join(parts, "; ")
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-"+name, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// queryDate reads a YYYY-MM-DD query parameter, defaulting to today in UTC.
func queryDate(w http.ResponseWriter, r *http.Request, name string) (time.Time, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return domain.Day(time.Now().UTC()), true
	}
	d, err := domain.ParseDay(raw)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-date", "date must be YYYY-MM-DD")
		return time.Time{}, false
	}
	return d, true
}

func parseDate(w http.ResponseWriter, r *http.Request, raw string) (time.Time, bool) {
	d, err := domain.ParseDay(raw)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-date", "date must be YYYY-MM-DD")
		return time.Time{}, false
	}
	return d, true
}

func parseDecimal(w http.ResponseWriter, r *http.Request, field, raw string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-"+field, field+" must be a decimal string")
		return decimal.Zero, false
	}
	return d, true
}

func parseOptionalDecimal(w http.ResponseWriter, r *http.Request, field string, raw *string) (*decimal.Decimal, bool) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, true
	}
	d, ok := parseDecimal(w, r, field, *raw)
	if !ok {
		return nil, false
	}
	return &d, true
}
