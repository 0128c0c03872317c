package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "feeddiff/internal/errors"
	"feeddiff/internal/feed"
	"feeddiff/internal/infrastructure"
)

// ValidationMiddleware validates request envelopes and decoded parameters
type ValidationMiddleware struct {
	validator    *validator.Validate
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	maxBodySize  int64
}

// NewValidationMiddleware creates a new validation middleware. A maxBodySize
// of zero or less disables the size check.
func NewValidationMiddleware(maxBodySize int64, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ValidationMiddleware {
	if logger == nil {
		logger = slog.Default()
	}

	v := validator.New()
	v.RegisterValidation("filename", isValidFilename)
	v.RegisterValidation("feedext", isFeedExtension)

	// Use query/json tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"query", "json"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	return &ValidationMiddleware{
		validator:    v,
		logger:       infrastructure.WithComponent(logger, "validation_middleware"),
		errorHandler: errorHandler,
		maxBodySize:  maxBodySize,
	}
}

// LimitBody rejects declared oversized bodies with 413 and caps the rest
func (m *ValidationMiddleware) LimitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.maxBodySize > 0 {
			if r.ContentLength > m.maxBodySize {
				m.logger.WarnContext(r.Context(), "request body too large",
					slog.Int64("size", r.ContentLength),
					slog.Int64("max_size", m.maxBodySize))
				m.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
					http.StatusRequestEntityTooLarge,
					"PAYLOAD_TOO_LARGE",
					"Request body exceeds maximum allowed size",
					map[string]interface{}{
						"max_size": m.maxBodySize,
						"size":     r.ContentLength,
					},
				))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, m.maxBodySize)
		}
		next.ServeHTTP(w, r)
	})
}

// MaxBodySize returns the configured body limit
func (m *ValidationMiddleware) MaxBodySize() int64 {
	return m.maxBodySize
}

// ValidateStruct validates a struct and returns validation errors
func (m *ValidationMiddleware) ValidateStruct(v interface{}) error {
	err := m.validator.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apierrors.InvalidRequestWithError(err)
	}

	validationErrors := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		validationErrors = append(validationErrors, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: formatValidationError(fe),
		})
	}
	return apierrors.NewValidationErrors(validationErrors)
}

// ContentTypeValidator ensures requests with a body have an allowed content type
func ContentTypeValidator(errHandler *apierrors.ErrorHandler, contentTypes ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodDelete || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			contentType := r.Header.Get("Content-Type")
			if contentType == "" {
				errHandler.HandleError(w, r, apierrors.New(
					http.StatusBadRequest,
					"MISSING_CONTENT_TYPE",
					"Content-Type header is required",
				))
				return
			}

			for _, allowed := range contentTypes {
				if strings.HasPrefix(contentType, allowed) {
					next.ServeHTTP(w, r)
					return
				}
			}

			errHandler.HandleError(w, r, apierrors.NewWithDetails(
				http.StatusUnsupportedMediaType,
				"UNSUPPORTED_MEDIA_TYPE",
				"Unsupported content type",
				map[string]interface{}{
					"content_type": contentType,
					"allowed":      contentTypes,
				},
			))
		})
	}
}

// DecodeQuery copies query parameters into the fields of dst tagged with
// `query:"name"` and validates the result. Only string, int and bool fields
// are supported.
func (m *ValidationMiddleware) DecodeQuery(values url.Values, dst interface{}) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("DecodeQuery needs a struct pointer, got %T", dst)
	}
	rv = rv.Elem()
	rt := rv.Type()

	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		name := field.Tag.Get("query")
		if name == "" || !values.Has(name) {
			continue
		}
		raw := values.Get(name)

		fv := rv.Field(i)
		switch fv.Kind() {
		case reflect.String:
			fv.SetString(raw)
		case reflect.Int, reflect.Int64:
			var n int64
			if _, err := fmt.Sscanf(raw, "%d", &n); err != nil {
				return apierrors.ErrValidation(name, fmt.Sprintf("%s must be a valid integer", name))
			}
			fv.SetInt(n)
		case reflect.Bool:
			switch strings.ToLower(raw) {
			case "1", "true", "yes":
				fv.SetBool(true)
			case "0", "false", "no", "":
				fv.SetBool(false)
			default:
				return apierrors.ErrValidation(name, fmt.Sprintf("%s must be a boolean", name))
			}
		}
	}

	return m.ValidateStruct(dst)
}

// formatValidationError formats validation error messages
func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "uuid", "uuid4":
		return fmt.Sprintf("%s must be a valid UUID", field)
	case "filename":
		return fmt.Sprintf("%s must be a valid filename", field)
	case "feedext":
		return fmt.Sprintf("%s must be a .csv, .txt, .xlsx or .xlsm file", field)
	case "boolean":
		return fmt.Sprintf("%s must be a boolean", field)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}

// isValidFilename rejects empty names, paths and overlong names
func isValidFilename(fl validator.FieldLevel) bool {
	filename := fl.Field().String()
	if filename == "" {
		return false
	}
	if strings.Contains(filename, "..") || strings.ContainsAny(filename, `/\`) {
		return false
	}
	return len(filename) <= 255
}

// isFeedExtension accepts the file extensions the feed loader reads
func isFeedExtension(fl validator.FieldLevel) bool {
	return feed.SupportedExtension(fl.Field().String())
}
