// Package handler exposes the assessment pipeline over API Gateway (Lambda)
// and plain net/http.
package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"aml-triage/internal/ingest"
	"aml-triage/internal/usecase"
)

const (
	correlationHeader     = "X-Correlation-Id"
	fileField             = "file"
	defaultMaxUploadBytes = 10 << 20
	healthPath            = "/healthz"
	allowedMethods        = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
)

type UseCase interface {
	Assess(ctx context.Context, in usecase.AssessInput) (usecase.AssessOutput, error)
}

type Handler struct {
	uc             UseCase
	logger         *slog.Logger
	maxUploadBytes int64
}

type Option func(*Handler)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithMaxUploadBytes caps the request body size. Non-positive values keep the
// default.
func WithMaxUploadBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

type healthResponse struct {
	Status string `json:"status"`
}

// request and response are the transport-neutral forms shared by Handle and
// ServeHTTP.
type request struct {
	method  string
	path    string
	headers http.Header
	body    []byte
}

type response struct {
	status  int
	headers http.Header
	body    []byte
}

func NewHandler(uc UseCase, opts ...Option) (*Handler, error) {
	if uc == nil {
		return nil, errors.New("handler: usecase must not be nil")
	}
	h := &Handler{uc: uc, logger: slog.Default(), maxUploadBytes: defaultMaxUploadBytes}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Handle serves an API Gateway proxy event.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	headers := make(http.Header, len(event.Headers))
	for k, v := range event.Headers {
		headers.Set(k, v)
	}
	for k, vs := range event.MultiValueHeaders {
		if headers.Get(k) != "" {
			continue
		}
		for _, v := range vs {
			headers.Add(k, v)
		}
	}

	req := request{method: event.HTTPMethod, path: event.Path, headers: headers, body: []byte(event.Body)}
	var decodeErr error
	if event.IsBase64Encoded {
		req.body, decodeErr = base64.StdEncoding.DecodeString(event.Body)
	}

	var res response
	if decodeErr != nil {
		res = h.prepare(ctx, req, func(ctx context.Context, logger *slog.Logger) (int, any) {
			return h.failure(ctx, logger, &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "invalid_base64_body", Err: decodeErr})
		})
	} else {
		res = h.serve(ctx, req)
	}

	out := events.APIGatewayProxyResponse{
		StatusCode: res.status,
		Headers:    make(map[string]string, len(res.headers)),
		Body:       string(res.body),
	}
	for k, vs := range res.headers {
		out.Headers[k] = strings.Join(vs, ", ")
	}
	return out, nil
}

// ServeHTTP serves the same routes for the local server.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := request{method: r.Method, path: r.URL.Path, headers: r.Header}

	var readErr error
	if r.Body != nil {
		req.body, readErr = io.ReadAll(io.LimitReader(r.Body, h.maxUploadBytes+1))
	}

	var res response
	if readErr != nil {
		res = h.prepare(r.Context(), req, func(ctx context.Context, logger *slog.Logger) (int, any) {
			return h.failure(ctx, logger, &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "unreadable_body", Err: readErr})
		})
	} else {
		res = h.serve(r.Context(), req)
	}

	for k, vs := range res.headers {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(res.status)
	if len(res.body) > 0 {
		_, _ = w.Write(res.body)
	}
}

func (h *Handler) serve(ctx context.Context, req request) response {
	return h.prepare(ctx, req, func(ctx context.Context, logger *slog.Logger) (int, any) {
		switch req.method {
		case http.MethodOptions:
			return http.StatusNoContent, nil
		case http.MethodGet:
			if strings.HasSuffix(req.path, healthPath) {
				return http.StatusOK, healthResponse{Status: "ok"}
			}
		case http.MethodPost:
			if strings.HasSuffix(req.path, AssessmentPath) {
				return h.assess(ctx, logger, req)
			}
			if !strings.HasSuffix(req.path, healthPath) {
				return http.StatusNotFound, errorResponse{Error: "NOT_FOUND", Detail: fmt.Sprintf("no route for %s %s", req.method, req.path)}
			}
		}
		return http.StatusMethodNotAllowed, errorResponse{Error: "METHOD_NOT_ALLOWED", Detail: fmt.Sprintf("method %s is not supported", req.method)}
	})
}

// prepare sets the correlation and CORS headers and encodes the payload
// returned by fn.
func (h *Handler) prepare(ctx context.Context, req request, fn func(context.Context, *slog.Logger) (int, any)) response {
	correlationID := strings.TrimSpace(req.headers.Get(correlationHeader))
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	logger := h.logger.With("correlation_id", correlationID)

	res := response{headers: make(http.Header)}
	res.headers.Set(correlationHeader, correlationID)
	setCORSHeaders(res.headers, req.headers)

	status, payload := fn(ctx, logger)
	res.status = status
	if payload == nil {
		return res
	}
	body, err := json.Marshal(payload)
	if err != nil {
		logger.ErrorContext(ctx, "failed to encode response", "err", err)
		res.status = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse{Error: string(usecase.ErrorInternal), Detail: "failed to encode response"})
	}
	res.headers.Set("Content-Type", "application/json")
	res.body = body
	return res
}

func (h *Handler) assess(ctx context.Context, logger *slog.Logger, req request) (int, any) {
	upload, err := h.readUpload(req)
	if err != nil {
		return h.failure(ctx, logger, err)
	}

	out, err := h.uc.Assess(ctx, usecase.AssessInput{File: upload})
	if err != nil {
		return h.failure(ctx, logger, err)
	}
	logger.InfoContext(ctx, "assessment completed", "kind", out.Kind.String(), "transactions", len(out.Assessments))
	return http.StatusOK, out.Assessments
}

// readUpload returns the "file" part of a multipart body, or nil when the
// request carried none.
func (h *Handler) readUpload(req request) (*ingest.Upload, error) {
	if int64(len(req.body)) > h.maxUploadBytes {
		return nil, &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "body_too_large",
			Err: fmt.Errorf("request body exceeds %d bytes", h.maxUploadBytes)}
	}
	if len(req.body) == 0 {
		return nil, nil
	}

	mediaType, params, err := mime.ParseMediaType(req.headers.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") || params["boundary"] == "" {
		return nil, &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "not_multipart",
			Err: errors.New("request body must be multipart/form-data")}
	}

	mr := multipart.NewReader(bytes.NewReader(req.body), params["boundary"])
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		if err != nil {
			return nil, &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "invalid_multipart", Err: err}
		}
		if part.FormName() != fileField {
			_ = part.Close()
			continue
		}
		content, err := io.ReadAll(part)
		_ = part.Close()
		if err != nil {
			return nil, &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "invalid_multipart", Err: err}
		}
		return &ingest.Upload{Filename: part.FileName(), Content: content}, nil
	}
}

func (h *Handler) failure(ctx context.Context, logger *slog.Logger, err error) (int, any) {
	code := usecase.CodeOf(err)
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, "assessment failed", "code", code, "err", err)
	} else {
		logger.WarnContext(ctx, "request rejected", "code", code, "err", err)
	}
	return status, errorResponse{Error: string(code), Detail: detailFor(code, err)}
}

func statusFor(code usecase.ErrorCode) int {
	switch code {
	case usecase.ErrorNoInput, usecase.ErrorInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func detailFor(code usecase.ErrorCode, err error) string {
	if code == usecase.ErrorNoInput {
		return "No file or text provided. Upload a CSV or text file in the \"file\" form field."
	}
	var ue *usecase.Error
	if errors.As(err, &ue) {
		if ue.Err != nil {
			return ue.Err.Error()
		}
		return ue.Reason
	}
	return "internal error"
}

// setCORSHeaders allows every origin, method and header.
func setCORSHeaders(dst, reqHeaders http.Header) {
	if origin := reqHeaders.Get("Origin"); origin != "" {
		dst.Set("Access-Control-Allow-Origin", origin)
		dst.Set("Access-Control-Allow-Credentials", "true")
		dst.Add("Vary", "Origin")
	} else {
		dst.Set("Access-Control-Allow-Origin", "*")
	}
	dst.Set("Access-Control-Allow-Methods", allowedMethods)
	if requested := reqHeaders.Get("Access-Control-Request-Headers"); requested != "" {
		dst.Set("Access-Control-Allow-Headers", requested)
	} else {
		dst.Set("Access-Control-Allow-Headers", "*")
	}
}
