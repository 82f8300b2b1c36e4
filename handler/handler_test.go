package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/require"

	"aml-triage/internal/domain"
	"aml-triage/internal/ingest"
	"aml-triage/internal/usecase"
)

type stubUseCase struct {
	out    usecase.AssessOutput
	err    error
	in     usecase.AssessInput
	called bool
}

func (s *stubUseCase) Assess(_ context.Context, in usecase.AssessInput) (usecase.AssessOutput, error) {
	s.called = true
	s.in = in
	if s.err != nil {
		return usecase.AssessOutput{}, s.err
	}
	if in.File == nil {
		return usecase.AssessOutput{}, &usecase.Error{Code: usecase.ErrorNoInput, Reason: "no_input_provided", Err: ingest.ErrNoInput}
	}
	return s.out, nil
}

func multipartBody(t *testing.T, field, filename, content string) (string, []byte) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("note", "ignored"))
	if field != "" {
		fw, err := w.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return w.FormDataContentType(), buf.Bytes()
}

func makeEvent(t *testing.T, filename, content string) events.APIGatewayProxyRequest {
	t.Helper()
	ct, body := multipartBody(t, "file", filename, content)
	return events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       AssessmentPath,
		Headers:    map[string]string{"Content-Type": ct},
		Body:       string(body),
	}
}

func parseBody[T any](t *testing.T, body string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	return v
}

var sampleAssessment = domain.TransactionAssessment{
	TransactionID:      "T1",
	ExtractedEntities:  []any{"A", "B"},
	EntityType:         []any{"Corporation", "Individual"},
	RiskScore:          7.5,
	SupportingEvidence: "sanctions list",
	ConfidenceScore:    0.8,
	Reason:             "listed",
}

func TestNewHandler_ValidatesDependency(t *testing.T) {
	_, err := NewHandler(nil)
	require.Error(t, err)
}

func TestHandle_HappyPath(t *testing.T) {
	uc := &stubUseCase{out: usecase.AssessOutput{Kind: ingest.KindCSV, Assessments: []domain.TransactionAssessment{sampleAssessment}}}
	h, err := NewHandler(uc)
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), makeEvent(t, "batch.csv", "id,from\n1,a\n"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "batch.csv", uc.in.File.Filename)
	require.Equal(t, "id,from\n1,a\n", string(uc.in.File.Content))

	require.JSONEq(t, `[{
		"transactionID": "T1",
		"extractedEntities": ["A", "B"],
		"entityType": ["Corporation", "Individual"],
		"riskScore": 7.5,
		"supportingEvidence": "sanctions list",
		"confidenceScore": 0.8,
		"reason": "listed"
	}]`, resp.Body)
	require.Equal(t, "application/json", resp.Headers["Content-Type"])
	require.NotEmpty(t, resp.Headers["X-Correlation-Id"])
	require.Equal(t, "*", resp.Headers["Access-Control-Allow-Origin"])
}

func TestHandle_Base64Body(t *testing.T) {
	uc := &stubUseCase{out: usecase.AssessOutput{Assessments: []domain.TransactionAssessment{}}}
	h, err := NewHandler(uc)
	require.NoError(t, err)

	event := makeEvent(t, "notes.txt", "Acme paid Jane")
	event.Body = base64.StdEncoding.EncodeToString([]byte(event.Body))
	event.IsBase64Encoded = true

	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Acme paid Jane", string(uc.in.File.Content))
	require.Equal(t, "[]", resp.Body)
}

func TestHandle_InvalidBase64(t *testing.T) {
	uc := &stubUseCase{}
	h, err := NewHandler(uc)
	require.NoError(t, err)

	event := makeEvent(t, "a.csv", "x")
	event.Body = "%%%"
	event.IsBase64Encoded = true

	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.False(t, uc.called)
	require.Equal(t, string(usecase.ErrorInvalidInput), parseBody[errorResponse](t, resp.Body).Error)
}

func TestHandle_NoFile(t *testing.T) {
	uc := &stubUseCase{}
	h, err := NewHandler(uc)
	require.NoError(t, err)

	ct, body := multipartBody(t, "", "", "")
	resp, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       AssessmentPath,
		Headers:    map[string]string{"content-type": ct},
		Body:       string(body),
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Nil(t, uc.in.File)

	out := parseBody[errorResponse](t, resp.Body)
	require.Equal(t, string(usecase.ErrorNoInput), out.Error)
	require.Contains(t, out.Detail, "No file or text provided")
}

func TestHandle_EmptyBodyIsNoInput(t *testing.T) {
	h, err := NewHandler(&stubUseCase{})
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodPost, Path: AssessmentPath})
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, string(usecase.ErrorNoInput), parseBody[errorResponse](t, resp.Body).Error)
}

func TestHandle_NotMultipart(t *testing.T) {
	uc := &stubUseCase{}
	h, err := NewHandler(uc)
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       AssessmentPath,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       `{"file":"x"}`,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.False(t, uc.called)
	require.Equal(t, string(usecase.ErrorInvalidInput), parseBody[errorResponse](t, resp.Body).Error)
}

func TestHandle_BodyTooLarge(t *testing.T) {
	uc := &stubUseCase{}
	h, err := NewHandler(uc, WithMaxUploadBytes(64))
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), makeEvent(t, "big.csv", string(bytes.Repeat([]byte("a,b\n"), 100))))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.False(t, uc.called)
}

func TestHandle_MapsUseCaseErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
		detail string
	}{
		{name: "invalid input", err: &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "csv_parse_error", Err: errors.New("bad quote")}, status: http.StatusBadRequest, code: string(usecase.ErrorInvalidInput), detail: "bad quote"},
		{name: "model response", err: &usecase.Error{Code: usecase.ErrorInvalidModelResponse, Reason: "invalid_model_response"}, status: http.StatusInternalServerError, code: string(usecase.ErrorInvalidModelResponse), detail: "invalid_model_response"},
		{name: "normalization", err: &usecase.Error{Code: usecase.ErrorNormalizationFailed, Reason: "normalization_failed", Err: errors.New(`missing field "sender"`)}, status: http.StatusInternalServerError, code: string(usecase.ErrorNormalizationFailed), detail: `missing field "sender"`},
		{name: "assessment", err: &usecase.Error{Code: usecase.ErrorAssessmentFailed, Reason: "invalid_ai_response"}, status: http.StatusInternalServerError, code: string(usecase.ErrorAssessmentFailed), detail: "invalid_ai_response"},
		{name: "projection", err: &usecase.Error{Code: usecase.ErrorProjectionFailed, Reason: "missing_transaction_details"}, status: http.StatusInternalServerError, code: string(usecase.ErrorProjectionFailed), detail: "missing_transaction_details"},
		{name: "upstream", err: &usecase.Error{Code: usecase.ErrorUpstream, Reason: "llm_error"}, status: http.StatusInternalServerError, code: string(usecase.ErrorUpstream), detail: "llm_error"},
		{name: "empty batch", err: &usecase.Error{Code: usecase.ErrorInternal, Reason: "no_structured_data", Err: errors.New("No structured data found")}, status: http.StatusInternalServerError, code: string(usecase.ErrorInternal), detail: "No structured data found"},
		{name: "unexpected", err: errors.New("boom"), status: http.StatusInternalServerError, code: string(usecase.ErrorInternal), detail: "internal error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			uc := &stubUseCase{err: tc.err}
			h, err := NewHandler(uc)
			require.NoError(t, err)

			resp, err := h.Handle(context.Background(), makeEvent(t, "a.csv", "id,from\n1,a\n"))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)

			out := parseBody[errorResponse](t, resp.Body)
			require.Equal(t, tc.code, out.Error)
			require.Equal(t, tc.detail, out.Detail)
		})
	}
}

func TestHandle_UsesProvidedCorrelationID_CaseInsensitive(t *testing.T) {
	uc := &stubUseCase{out: usecase.AssessOutput{Assessments: []domain.TransactionAssessment{}}}
	h, err := NewHandler(uc)
	require.NoError(t, err)

	event := makeEvent(t, "a.txt", "x")
	event.Headers["x-correlation-id"] = "corr-123"
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, "corr-123", resp.Headers["X-Correlation-Id"])
}

func TestHandle_Preflight(t *testing.T) {
	h, err := NewHandler(&stubUseCase{})
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodOptions,
		Path:       AssessmentPath,
		Headers: map[string]string{
			"Origin":                         "https://ui.example.com",
			"Access-Control-Request-Headers": "content-type,x-custom",
		},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Empty(t, resp.Body)
	require.Equal(t, "https://ui.example.com", resp.Headers["Access-Control-Allow-Origin"])
	require.Equal(t, "true", resp.Headers["Access-Control-Allow-Credentials"])
	require.Equal(t, "content-type,x-custom", resp.Headers["Access-Control-Allow-Headers"])
	require.Contains(t, resp.Headers["Access-Control-Allow-Methods"], "POST")
}

func TestHandle_MethodNotAllowed(t *testing.T) {
	h, err := NewHandler(&stubUseCase{})
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodDelete, Path: AssessmentPath})
	require.NoError(t, err)
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHandle_PostOnlyAssessesAssessmentPath(t *testing.T) {
	cases := []struct {
		name   string
		path   string
		status int
	}{
		{name: "health", path: "/healthz", status: http.StatusMethodNotAllowed},
		{name: "unknown", path: "/entity/other", status: http.StatusNotFound},
		{name: "stage prefix", path: "/prod" + AssessmentPath, status: http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			uc := &stubUseCase{out: usecase.AssessOutput{Assessments: []domain.TransactionAssessment{}}}
			h, err := NewHandler(uc)
			require.NoError(t, err)

			event := makeEvent(t, "a.csv", "id,from\n1,a\n")
			event.Path = tc.path
			resp, err := h.Handle(context.Background(), event)
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)
			require.Equal(t, tc.status == http.StatusOK, uc.called)
		})
	}
}

func TestRouter_PostHealthDoesNotAssess(t *testing.T) {
	uc := &stubUseCase{}
	h, err := NewHandler(uc)
	require.NoError(t, err)

	ct, body := multipartBody(t, "file", "batch.csv", "id,from\n1,a\n")
	req := httptest.NewRequest(http.MethodPost, "/healthz", bytes.NewReader(body))
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	NewRouter(nil, h).ServeHTTP(rec, req)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.False(t, uc.called)
}

func TestRouter_AssessmentAndHealth(t *testing.T) {
	uc := &stubUseCase{out: usecase.AssessOutput{Assessments: []domain.TransactionAssessment{sampleAssessment}}}
	h, err := NewHandler(uc)
	require.NoError(t, err)
	srv := httptest.NewServer(NewRouter(nil, h))
	defer srv.Close()

	ct, body := multipartBody(t, "file", "batch.csv", "id,from\n1,a\n")
	res, err := http.Post(srv.URL+AssessmentPath, ct, bytes.NewReader(body))
	require.NoError(t, err)
	defer func() { _ = res.Body.Close() }()
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.NotEmpty(t, res.Header.Get("X-Correlation-Id"))

	var got []domain.TransactionAssessment
	require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
	require.Len(t, got, 1)
	require.Equal(t, "T1", got[0].TransactionID)

	health, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer func() { _ = health.Body.Close() }()
	require.Equal(t, http.StatusOK, health.StatusCode)

	var status healthResponse
	require.NoError(t, json.NewDecoder(health.Body).Decode(&status))
	require.Equal(t, "ok", status.Status)
}

func TestRouter_NoFileIs400(t *testing.T) {
	h, err := NewHandler(&stubUseCase{})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, AssessmentPath, nil)
	rec := httptest.NewRecorder()
	NewRouter(nil, h).ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, string(usecase.ErrorNoInput), parseBody[errorResponse](t, rec.Body.String()).Error)
}
