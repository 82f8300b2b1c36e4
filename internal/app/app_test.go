package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"aml-triage/internal/config"
	"aml-triage/internal/ingest"
	"aml-triage/internal/usecase"
)

func testConfig(llmURL, searchURL, sentimentURL, rulesPath string) config.Config {
	return config.Config{
		LLM:       config.LLMConfig{BaseURL: llmURL, Model: "test-model", APIKey: "llm-key", Timeout: 5 * time.Second},
		Search:    config.SearchConfig{BaseURL: searchURL, Timeout: 5 * time.Second},
		Sentiment: config.SentimentConfig{BaseURL: sentimentURL, Model: "sst2", APIKey: "hf-key", Timeout: 5 * time.Second},
		RulesPath: rulesPath,
	}
}

func TestNewParamStore_NoPrefix(t *testing.T) {
	getter, err := NewParamStore(context.Background(), config.Config{})
	require.NoError(t, err)
	require.Nil(t, getter)
}

func TestNewService_RequiresKeyOrParamStore(t *testing.T) {
	cfg := testConfig("http://llm", "http://search", "http://hf", "")
	cfg.LLM.APIKey = ""
	_, err := NewService(cfg, nil, nil)
	require.Error(t, err)
}

func TestNewService_EndToEnd(t *testing.T) {
	llm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer llm-key", r.Header.Get("Authorization"))

		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		prompt := req.Messages[0].Content

		answer := `{"transaction_id":"TX-1","sender":"Acme Ltd","receiver":"Jane Doe","amount":"99.5","transaction_details":"fees"}`
		if strings.Contains(prompt, "anti-money-laundering") {
			require.Contains(t, prompt, "CUSTOM RULES")
			answer = "```json\n" + `{"Transaction details":{"transaction_id":"TX-1","from":"Acme Ltd","to":"Jane Doe"},"riskRating":3,"riskRationale":"clean","riskRationaleSources":"none","averageConfidenceScore":0.9,"EntityType":["Corporation","Individual"]}` + "\n```"
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": answer}}},
		})
	}))
	defer llm.Close()

	searchSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "Jane Doe" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"RelatedTopics":[{"Text":"Acme","snippet":"Acme is a supplier"}]}`))
	}))
	defer searchSrv.Close()

	var classified string
	hf := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Inputs string `json:"inputs"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		classified = body.Inputs
		_, _ = w.Write([]byte(`[[{"label":"POSITIVE","score":0.9}]]`))
	}))
	defer hf.Close()

	rulesPath := filepath.Join(t.TempDir(), "rules.txt")
	require.NoError(t, os.WriteFile(rulesPath, []byte("CUSTOM RULES"), 0o600))

	svc, err := NewService(testConfig(llm.URL, searchSrv.URL, hf.URL, rulesPath), nil, nil)
	require.NoError(t, err)

	out, err := svc.Assess(context.Background(), ingestUpload("one.txt", "Acme Ltd paid Jane Doe 99.50"))
	require.NoError(t, err)
	require.Len(t, out.Assessments, 1)
	require.Equal(t, "TX-1", out.Assessments[0].TransactionID)
	require.Equal(t, float64(3), out.Assessments[0].RiskScore)
	require.Equal(t, "Acme is a supplier no data available", classified)
}

func ingestUpload(name, content string) usecase.AssessInput {
	return usecase.AssessInput{File: &ingest.Upload{Filename: name, Content: []byte(content)}}
}
