package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/noteloop/internal/classify"
	"github.com/dgallion1/noteloop/internal/config"
	"github.com/dgallion1/noteloop/internal/notes"
	"github.com/dgallion1/noteloop/internal/rewrite"
	"github.com/dgallion1/noteloop/internal/session"
	"github.com/dgallion1/noteloop/internal/synth"
)

func fakeEmbedding(_ context.Context, text string) ([]float32, error) {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "halfway"):
		return []float32{0.5, 0.8660254, 0}, nil
	case strings.Contains(t, "marketing"), strings.Contains(t, "ads"):
		return []float32{1, 0, 0}, nil
	default:
		return []float32{0, 1, 0}, nil
	}
}

type fakeSynth struct{}

func (fakeSynth) Synthesize(_ context.Context, mode synth.Mode, req synth.Request) (synth.Result, error) {
	if mode == synth.ModeCreate {
		return synth.Result{Heading: "Launch", Body: "- " + req.Chunk}, nil
	}
	return synth.Result{
		Heading: req.Heading,
		Body:    strings.TrimSpace(req.SectionBody) + "\n- " + req.Chunk,
	}, nil
}

type fakeTranscriber struct {
	text string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ string, _ io.Reader) (string, error) {
	return f.text, nil
}

type testEnv struct {
	server    *Server
	registry  *session.Registry
	processor *session.Processor
}

func newTestEnv(t *testing.T, cfg config.Config, transcription string) *testEnv {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	if cfg.DefaultProject == "" {
		cfg.DefaultProject = "demo"
	}
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = 1 << 20
	}
	if cfg.TranscribeTimeout == 0 {
		cfg.TranscribeTimeout = time.Second
	}

	store := notes.NewStore(t.TempDir())
	classifier := classify.New(fakeEmbedding, 0.65, 0.35, log)
	rewriter := rewrite.New(fakeSynth{}, log)
	registry := session.NewRegistry(store, classifier, rewriter, log)

	results := session.NewResultStore(time.Hour, 100)
	processor := session.NewProcessor(registry, results, 16, log)
	ctx, cancel := context.WithCancel(context.Background())
	processor.Start(ctx)
	t.Cleanup(func() {
		cancel()
		processor.Stop()
	})

	if err := registry.Get(cfg.DefaultProject).Import(context.Background(), "# demo\n\n## Marketing\n\n- Plan to use ads\n"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	srv := NewServer(registry, processor, &fakeTranscriber{text: transcription}, log, cfg)
	return &testEnv{server: srv, registry: registry, processor: processor}
}

func doJSON(t *testing.T, srv http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 && strings.Contains(rec.Header().Get("Content-Type"), "json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, out
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, config.Config{}, "")
	rec, out := doJSON(t, env.server, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK || out["status"] != "ok" {
		t.Fatalf("expected ok, got %d %v", rec.Code, out)
	}
}

func TestAuth_RequiredWhenConfigured(t *testing.T) {
	env := newTestEnv(t, config.Config{APIKey: "secret"}, "")

	rec, _ := doJSON(t, env.server, http.MethodGet, "/api/notes", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/notes", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec2 := httptest.NewRecorder()
	env.server.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", rec2.Code)
	}

	// Health stays public.
	rec3, _ := doJSON(t, env.server, http.MethodGet, "/health", nil)
	if rec3.Code != http.StatusOK {
		t.Fatalf("expected public health, got %d", rec3.Code)
	}
}

func TestProcess_ConfidentChunk(t *testing.T) {
	env := newTestEnv(t, config.Config{}, "")
	rec, out := doJSON(t, env.server, http.MethodPost, "/api/process", processRequest{Text: "double the ads budget"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if out["status"] != "success" || out["action"] != "update" {
		t.Fatalf("expected success/update, got %v", out)
	}
}

func TestProcess_EmptyTextRejected(t *testing.T) {
	env := newTestEnv(t, config.Config{}, "")
	rec, out := doJSON(t, env.server, http.MethodPost, "/api/process", processRequest{Text: "  "})
	if rec.Code != http.StatusBadRequest || out["status"] != "error" {
		t.Fatalf("expected 400 error, got %d %v", rec.Code, out)
	}
}

func TestPendingLifecycle(t *testing.T) {
	env := newTestEnv(t, config.Config{}, "")

	_, out := doJSON(t, env.server, http.MethodPost, "/api/process", processRequest{Text: "halfway related thought"})
	if out["status"] != "pending" {
		t.Fatalf("expected pending, got %v", out)
	}
	pendingID, _ := out["pending_id"].(string)
	if pendingID == "" {
		t.Fatal("expected pending_id")
	}

	_, list := doJSON(t, env.server, http.MethodGet, "/api/pending", nil)
	if entries, _ := list["pending"].([]any); len(entries) != 1 {
		t.Fatalf("expected 1 pending entry, got %v", list)
	}

	rec, res := doJSON(t, env.server, http.MethodPost, "/api/pending/"+pendingID, resolveRequest{Action: session.ActionApprove})
	if rec.Code != http.StatusOK || res["status"] != "success" {
		t.Fatalf("expected applied, got %d %v", rec.Code, res)
	}

	rec2, res2 := doJSON(t, env.server, http.MethodPost, "/api/pending/"+pendingID, resolveRequest{Action: session.ActionReject})
	if rec2.Code != http.StatusNotFound || res2["status"] != "not_found" {
		t.Fatalf("expected not_found on second resolve, got %d %v", rec2.Code, res2)
	}
}

func TestResolve_UnknownAction(t *testing.T) {
	env := newTestEnv(t, config.Config{}, "")
	_, out := doJSON(t, env.server, http.MethodPost, "/api/process", processRequest{Text: "halfway related thought"})
	pendingID, _ := out["pending_id"].(string)

	rec, _ := doJSON(t, env.server, http.MethodPost, "/api/pending/"+pendingID, resolveRequest{Action: "merge"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown action, got %d", rec.Code)
	}
}

func TestNotes_ReturnsSections(t *testing.T) {
	env := newTestEnv(t, config.Config{}, "")
	rec, out := doJSON(t, env.server, http.MethodGet, "/api/notes", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if out["project"] != "demo" {
		t.Errorf("expected project demo, got %v", out["project"])
	}
	sections, _ := out["sections"].([]any)
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %v", out["sections"])
	}
}

func TestClearAndExport(t *testing.T) {
	env := newTestEnv(t, config.Config{}, "")
	doJSON(t, env.server, http.MethodPost, "/api/process", processRequest{Text: "more ads spend"})

	rec, out := doJSON(t, env.server, http.MethodPost, "/api/clear", clearRequest{})
	if rec.Code != http.StatusOK || out["status"] != "success" {
		t.Fatalf("expected clear success, got %d %v", rec.Code, out)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/export", nil)
	rec2 := httptest.NewRecorder()
	env.server.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec2.Code)
	}
	if ct := rec2.Header().Get("Content-Type"); !strings.Contains(ct, "text/markdown") {
		t.Errorf("expected markdown content type, got %q", ct)
	}
	if rec2.Body.String() != notes.InitialContent("demo") {
		t.Errorf("expected reset content, got %q", rec2.Body.String())
	}
}

func multipartBody(t *testing.T, field, filename string, data []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		w.WriteField(k, v)
	}
	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write(data)
	w.Close()
	return &buf, w.FormDataContentType()
}

func TestImport_MarkdownFile(t *testing.T) {
	env := newTestEnv(t, config.Config{}, "")

	body, ct := multipartBody(t, "file", "seed.md", []byte("# demo\n\n## Roadmap\n\n- q3 plans\n"), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/import", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	content, _ := env.registry.Get("demo").Content()
	if !strings.Contains(content, "## Roadmap") {
		t.Errorf("expected imported section, got %q", content)
	}
}

func TestImport_UnsupportedExtension(t *testing.T) {
	env := newTestEnv(t, config.Config{}, "")
	body, ct := multipartBody(t, "file", "seed.exe", []byte("x"), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/import", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAudio_QueuesTranscription(t *testing.T) {
	env := newTestEnv(t, config.Config{}, "double the ads budget")

	body, ct := multipartBody(t, "audio", "note.webm", []byte("fake-audio"), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/audio", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var out map[string]any
	json.Unmarshal(rec.Body.Bytes(), &out)
	if out["status"] != "queued" || out["transcription"] != "double the ads budget" {
		t.Fatalf("unexpected queue response %v", out)
	}
	if _, ok := out["queue_depth"]; !ok {
		t.Error("expected queue_depth in queue response")
	}
	requestID, _ := out["request_id"].(string)
	if requestID == "" {
		t.Fatal("expected request_id")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		rec2, status := doJSON(t, env.server, http.MethodGet, "/api/queue/status/"+requestID, nil)
		if rec2.Code != http.StatusOK {
			t.Fatalf("status poll: %d", rec2.Code)
		}
		if status["status"] == "completed" {
			break
		}
		if status["status"] == "failed" {
			t.Fatalf("request failed: %v", status)
		}
		if time.Now().After(deadline) {
			t.Fatalf("request never completed: %v", status)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestQueueStatus_UnknownRequest(t *testing.T) {
	env := newTestEnv(t, config.Config{}, "")
	rec, _ := doJSON(t, env.server, http.MethodGet, "/api/queue/status/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestStream_SendsInitSnapshotFirst(t *testing.T) {
	env := newTestEnv(t, config.Config{}, "")
	ts := httptest.NewServer(env.server)
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("stream request: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected event stream, got %q", ct)
	}

	scanner := bufio.NewScanner(resp.Body)
	var payload string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: ") {
			payload = strings.TrimPrefix(line, "data: ")
			break
		}
	}
	if payload == "" {
		t.Fatal("no event received")
	}

	var init map[string]any
	if err := json.Unmarshal([]byte(payload), &init); err != nil {
		t.Fatalf("decode init: %v", err)
	}
	if init["type"] != "init" {
		t.Errorf("expected init event first, got %v", init["type"])
	}
	if init["project"] != "demo" {
		t.Errorf("expected project demo, got %v", init["project"])
	}
	if fmt.Sprintf("%v", init["content"]) == "" {
		t.Error("expected content in init event")
	}

	// Events committed after the snapshot arrive on the same stream.
	if _, err := env.registry.Get("demo").ProcessChunk(context.Background(), "maybe cut the ads spend"); err != nil {
		t.Fatalf("process: %v", err)
	}
	payload = ""
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: ") {
			payload = strings.TrimPrefix(line, "data: ")
			break
		}
	}
	var ev map[string]any
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		t.Fatalf("decode event %q: %v", payload, err)
	}
	if ev["type"] != "pending_update" {
		t.Errorf("expected pending_update after init, got %v", ev["type"])
	}
}
