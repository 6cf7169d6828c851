package middleware

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mrops-br/catalog-api/internal/domain"
	"github.com/mrops-br/catalog-api/internal/infrastructure/http/pipeline"
	"github.com/mrops-br/catalog-api/internal/infrastructure/http/response"
)

// APIKeyHeader carries the shared secret checked by Authenticate.
const APIKeyHeader = "x-api-key"

// LogRequest records method, URL and arrival time of every request. It never stops the pipeline.
func LogRequest(x *pipeline.Exchange) pipeline.Result {
	x.Logger.InfoContext(x.Context(), "Incoming request",
		slog.String("method", x.Request.Method),
		slog.String("url", x.Request.URL.RequestURI()),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339Nano)),
	)
	return pipeline.Continue()
}

// ParseJSONBody decodes a JSON object body into the exchange. Requests without a
// body, or with a non-JSON content type, pass through untouched.
func ParseJSONBody(maxBytes int64) pipeline.Stage {
	return func(x *pipeline.Exchange) pipeline.Result {
		r := x.Request
		if r.Body == nil || r.Body == http.NoBody || !isJSONContent(r.Header.Get("Content-Type")) {
			return pipeline.Continue()
		}

		body, err := io.ReadAll(http.MaxBytesReader(x.Writer, r.Body, maxBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return pipeline.Fail(domain.NewOperational("Request body too large", http.StatusRequestEntityTooLarge))
			}
			return pipeline.Fail(domain.NewBadRequest("Unable to read request body"))
		}
		if len(bytes.TrimSpace(body)) == 0 {
			return pipeline.Continue()
		}

		var fields map[string]json.RawMessage
		if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
			x.Logger.DebugContext(x.Context(), "Rejected request body", slog.Any("error", err))
			return pipeline.Fail(domain.NewBadRequest("Malformed JSON body"))
		}

		x.RawBody = body
		x.Fields = fields
		return pipeline.Continue()
	}
}

// isJSONContent treats a missing content type as JSON.
func isJSONContent(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// Authenticate requires the x-api-key header to match apiKey.
func Authenticate(apiKey string) pipeline.Stage {
	secret := []byte(apiKey)

	return func(x *pipeline.Exchange) pipeline.Result {
		supplied := x.Request.Header.Get(APIKeyHeader)
		if supplied == "" {
			return pipeline.Fail(domain.NewUnauthorized("API key required"))
		}
		if subtle.ConstantTimeCompare([]byte(supplied), secret) != 1 {
			x.Logger.WarnContext(x.Context(), "Rejected request with invalid API key",
				slog.String("method", x.Request.Method),
				slog.String("path", x.Request.URL.Path),
			)
			return pipeline.Fail(domain.NewForbidden("Invalid API key"))
		}
		return pipeline.Continue()
	}
}

var validate = validator.New()

// fieldRule checks one top-level body field. check receives the raw JSON value,
// which is never null.
type fieldRule struct {
	field   string
	message string
	check   func(raw json.RawMessage) bool
}

var productRules = []fieldRule{
	{field: "name", message: "Name must be a non-empty string.", check: nonEmptyString},
	{field: "description", message: "Description must be a non-empty string.", check: nonEmptyString},
	{field: "price", message: "Price must be a non-negative number.", check: nonNegativeNumber},
	{field: "category", message: "Category must be a non-empty string.", check: nonEmptyString},
	{field: "inStock", message: "inStock must be a boolean.", check: isBoolean},
}

// ValidateProduct checks the product payload and answers 400 with every violation
// found. With partial set, only the fields present in the body are checked.
func ValidateProduct(partial bool) pipeline.Stage {
	return func(x *pipeline.Exchange) pipeline.Result {
		details := productViolations(x.Fields, partial)
		if len(details) == 0 {
			return pipeline.Continue()
		}

		x.Logger.WarnContext(x.Context(), "Validation errors occurred", slog.Any("details", details))
		response.ValidationFailed(x.Writer, details)
		return pipeline.Respond()
	}
}

func productViolations(fields map[string]json.RawMessage, partial bool) []string {
	var details []string
	for _, rule := range productRules {
		raw, present := fields[rule.field]
		if !present {
			if !partial {
				details = append(details, rule.message)
			}
			continue
		}
		if isNull(raw) || !rule.check(raw) {
			details = append(details, rule.message)
		}
	}
	return details
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func nonEmptyString(raw json.RawMessage) bool {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return false
	}
	return validate.Var(strings.TrimSpace(s), "required") == nil
}

func nonNegativeNumber(raw json.RawMessage) bool {
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return false
	}
	return validate.Var(n, "gte=0") == nil
}

func isBoolean(raw json.RawMessage) bool {
	var b bool
	return json.Unmarshal(raw, &b) == nil
}
