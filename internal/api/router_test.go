package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"careguard/internal/api/handlers"
	"careguard/internal/config"
	"careguard/internal/domain/models"
	"careguard/internal/domain/services"
	"careguard/internal/infrastructure/storage"
	"careguard/pkg/logger"
)

func testLogger() *logger.Logger {
	return &logger.Logger{Logger: zerolog.Nop()}
}

// newTestServer wires the full handler stack over a file store and starts
// an httptest server. Redis, the scheduler and the event bus stay nil, the
// same shape a minimal file-backend deployment runs with.
func newTestServer(t *testing.T, apiKey string) (*httptest.Server, *storage.FileStore) {
	t.Helper()
	log := testLogger()

	cfg := &config.Config{}
	cfg.App.Version = "test"
	cfg.Auth.APIKey = apiKey
	cfg.Detection.LexiconDir = t.TempDir()
	cfg.Detection.PhishingThreshold = 0.7
	cfg.Alerting = config.AlertingConfig{Enabled: true}
	cfg.Export.Dir = t.TempDir()
	cfg.Export.Format = "json"

	store, err := storage.NewFileStore(t.TempDir(), log)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	lexicons := services.NewLexiconStore(cfg.Detection.LexiconDir, log)
	emotion := services.NewEmotionScorer(lexicons.Emotion(), log)
	phishing := services.NewPhishingScorer(lexicons.Phishing(), nil, cfg.Detection.PhishingThreshold, log)
	trends := services.NewTrendAggregator(store, log)
	alerts := services.NewAlertEngine(store, trends, nil, cfg.Alerting, log)
	assistant := services.NewAssistant(emotion, phishing, alerts, store, nil, nil, log)
	exporter := services.NewExporter(store, cfg.Export.Dir, log)

	h := handlers.NewHandlers(handlers.Dependencies{
		Config:    cfg,
		Store:     store,
		Lexicons:  lexicons,
		Emotion:   emotion,
		Phishing:  phishing,
		Trends:    trends,
		Alerts:    alerts,
		Assistant: assistant,
		Exporter:  exporter,
		Logger:    log,
	})

	srv := httptest.NewServer(NewRouter(cfg, h, nil, log).Setup())
	t.Cleanup(srv.Close)
	return srv, store
}

func postJSON(t *testing.T, url string, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func getJSON(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRouter_EmotionEndpointAnalyzesAndPersists(t *testing.T) {
	srv, store := newTestServer(t, "")

	resp := postJSON(t, srv.URL+"/api/v1/analyze/emotion", `{"text":"오늘은 정말 행복한 하루였어요"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d, want 200", resp.StatusCode)
	}

	var record models.EmotionRecord
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if record.DominantEmotion != "기쁨" {
		t.Fatalf("DominantEmotion=%q, want 기쁨", record.DominantEmotion)
	}
	if record.Category != models.CategoryPositive {
		t.Fatalf("Category=%q, want positive", record.Category)
	}
	if record.Confidence != 1.0 {
		t.Fatalf("Confidence=%v, want 1.0", record.Confidence)
	}

	raw, err := store.ReadDay(context.Background(), storage.CategoryEmotions, record.Timestamp)
	if err != nil {
		t.Fatalf("ReadDay: %v", err)
	}
	if len(raw) != 1 {
		t.Fatalf("persisted %d emotion records, want 1", len(raw))
	}
}

func TestRouter_PhishingEndpointFlagsVoicePhishing(t *testing.T) {
	srv, _ := newTestServer(t, "")

	resp := postJSON(t, srv.URL+"/api/v1/analyze/phishing", `{"text":"지금 당장 OTP 번호를 알려주세요. 계좌에 문제가 생겼습니다."}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d, want 200", resp.StatusCode)
	}

	var verdict models.PhishingVerdict
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !verdict.IsPhishing {
		t.Fatalf("IsPhishing=false, want true")
	}
	if verdict.RiskLevel != models.RiskHigh {
		t.Fatalf("RiskLevel=%q, want high", verdict.RiskLevel)
	}
}

func TestRouter_ConversationEndpointHandlesEmptyTranscript(t *testing.T) {
	srv, _ := newTestServer(t, "")

	resp := postJSON(t, srv.URL+"/api/v1/analyze/conversation", `{"messages":[]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d, want 200", resp.StatusCode)
	}

	var analysis models.ConversationAnalysis
	if err := json.NewDecoder(resp.Body).Decode(&analysis); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if analysis.OverallEmotion != models.CategoryNeutral {
		t.Fatalf("OverallEmotion=%q, want neutral", analysis.OverallEmotion)
	}
}

func TestRouter_ValidationFailures(t *testing.T) {
	srv, _ := newTestServer(t, "")

	cases := []struct {
		name string
		do   func() *http.Response
	}{
		{"empty text", func() *http.Response {
			return postJSON(t, srv.URL+"/api/v1/analyze/emotion", `{"text":""}`)
		}},
		{"malformed body", func() *http.Response {
			return postJSON(t, srv.URL+"/api/v1/analyze/emotion", `{"text":`)
		}},
		{"days out of range", func() *http.Response {
			return getJSON(t, srv.URL+"/api/v1/trends/daily?days=500")
		}},
		{"days not a number", func() *http.Response {
			return getJSON(t, srv.URL+"/api/v1/trends/daily?days=abc")
		}},
	}
	for _, tc := range cases {
		if resp := tc.do(); resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: status=%d, want 400", tc.name, resp.StatusCode)
		}
	}
}

func TestRouter_AlertsListEmptyStore(t *testing.T) {
	srv, _ := newTestServer(t, "")

	resp := getJSON(t, srv.URL+"/api/v1/alerts")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d, want 200", resp.StatusCode)
	}

	var body struct {
		Alerts []*models.Alert `json:"alerts"`
		Count  int             `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Count != 0 || body.Alerts == nil || len(body.Alerts) != 0 {
		t.Fatalf("body=%+v, want empty alerts array with count 0", body)
	}
}

func TestRouter_AlertCheckRunsCleanOnEmptyStore(t *testing.T) {
	srv, _ := newTestServer(t, "")

	resp := postJSON(t, srv.URL+"/api/v1/alerts/check", `{}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d, want 200", resp.StatusCode)
	}

	var body struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Count != 0 {
		t.Fatalf("count=%d, want 0 alerts from an empty store", body.Count)
	}
}

func TestRouter_LexiconEndpointServesDefaults(t *testing.T) {
	srv, _ := newTestServer(t, "")

	resp := getJSON(t, srv.URL+"/api/v1/lexicons/emotion")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d, want 200", resp.StatusCode)
	}

	var lexicon models.EmotionLexicon
	if err := json.NewDecoder(resp.Body).Decode(&lexicon); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(lexicon.Emotions["기쁨"]) == 0 {
		t.Fatalf("기쁨 keyword list empty, want defaults")
	}
	if len(lexicon.NegationWords) == 0 {
		t.Fatalf("negation word list empty, want defaults")
	}
}

func TestRouter_APIKeyAuth(t *testing.T) {
	srv, _ := newTestServer(t, "sekrit")

	// health stays open
	if resp := getJSON(t, srv.URL+"/health"); resp.StatusCode != http.StatusOK {
		t.Fatalf("health status=%d, want 200 without credentials", resp.StatusCode)
	}

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic sekrit", http.StatusUnauthorized},
		{"wrong key", "Bearer nope", http.StatusUnauthorized},
		{"valid key", "Bearer sekrit", http.StatusOK},
	}
	for _, tc := range cases {
		req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/alerts", nil)
		if err != nil {
			t.Fatalf("%s: new request: %v", tc.name, err)
		}
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("%s: do request: %v", tc.name, err)
		}
		resp.Body.Close()
		if resp.StatusCode != tc.want {
			t.Fatalf("%s: status=%d, want %d", tc.name, resp.StatusCode, tc.want)
		}
	}
}

func TestRouter_HealthAndReady(t *testing.T) {
	srv, _ := newTestServer(t, "")

	resp := getJSON(t, srv.URL+"/health")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status=%d, want 200", resp.StatusCode)
	}
	var health struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.Status != "healthy" || health.Version != "test" {
		t.Fatalf("health=%+v, want healthy/test", health)
	}

	resp = getJSON(t, srv.URL+"/ready")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ready status=%d, want 200", resp.StatusCode)
	}
	var ready struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ready); err != nil {
		t.Fatalf("decode ready: %v", err)
	}
	if ready.Status != "ready" {
		t.Fatalf("ready status=%q, want ready", ready.Status)
	}
	if ready.Checks["store"] != "healthy" {
		t.Fatalf("store check=%q, want healthy", ready.Checks["store"])
	}
}

func TestRouter_WebSocketEndpointUnavailableWithoutHub(t *testing.T) {
	srv, _ := newTestServer(t, "")

	resp := getJSON(t, fmt.Sprintf("%s/api/v1/ws", srv.URL))
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status=%d, want 503 when no hub is wired", resp.StatusCode)
	}
}
