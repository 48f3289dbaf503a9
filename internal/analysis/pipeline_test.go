package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"golang.org/x/time/rate"

	"equity-backend/internal/rag"
	"equity-backend/internal/session"
)

type fakeAnswerer struct {
	queries  []string
	failWhen string
	onAnswer func()
}

func (f *fakeAnswerer) Answer(ctx context.Context, sessionID, query string, focus rag.Focus, custom string) (rag.Answer, error) {
	f.queries = append(f.queries, query)
	if f.onAnswer != nil {
		f.onAnswer()
	}
	if f.failWhen != "" && strings.Contains(query, f.failWhen) {
		return rag.Answer{}, errors.New("model unavailable")
	}
	return rag.Answer{
		Text:            "Raw analysis for: " + query,
		RemoteCitations: []string{"doc.pdf: relevant excerpt"},
	}, nil
}

type fakeSynth struct {
	prompt  string
	payload json.RawMessage
	err     error
}

func (f *fakeSynth) Synthesize(ctx context.Context, model, prompt string) (json.RawMessage, error) {
	f.prompt = prompt
	if f.err != nil {
		return nil, f.err
	}
	return f.payload, nil
}

// synthesizedDoc mimics what the synthesis model returns: all text fields
// filled, perspective entries present, sources empty.
func synthesizedDoc(t *testing.T) json.RawMessage {
	t.Helper()
	doc := ResultDocument{}
	doc.Sections.General.Title = "General Equity Assessment"
	doc.Sections.General.Summary = "The document appears to address equity broadly."
	for _, p := range Perspectives {
		doc.Perspectives = append(doc.Perspectives, PerspectiveEntry{
			Group:   p.GroupName,
			General: PerspectiveNarrative{Title: p.GroupName + " Perspective", Narrative: "It suggests that..."},
		})
	}
	doc.Overall.Title = "Overall Summary & Recommendations"
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal synthesized doc: %v", err)
	}
	return raw
}

func newTestPipeline(t *testing.T, engine *fakeAnswerer, synth *fakeSynth) *Pipeline {
	t.Helper()
	return &Pipeline{
		Sessions:       session.NewRegistry(),
		Engine:         engine,
		Synth:          synth,
		Artifacts:      NewStore(t.TempDir()),
		SynthesisModel: "gpt-4o-mini",
		Limiter:        rate.NewLimiter(rate.Inf, 1),
	}
}

func registerCompletedUpload(t *testing.T, p *Pipeline, sessionID string) string {
	t.Helper()
	temp := filepath.Join(t.TempDir(), "staged.pdf")
	if err := os.WriteFile(temp, []byte("pdf"), 0o644); err != nil {
		t.Fatalf("write temp: %v", err)
	}
	p.Sessions.Register(sessionID, "report.pdf")
	p.Sessions.Update(sessionID, func(r *session.Record) {
		r.UploadStatus = session.UploadCompleted
		r.TempFilePath = temp
		r.SizeKB = 12
	})
	return temp
}

func TestPipelineHappyPath(t *testing.T) {
	engine := &fakeAnswerer{}
	synth := &fakeSynth{payload: synthesizedDoc(t)}
	p := newTestPipeline(t, engine, synth)
	temp := registerCompletedUpload(t, p, "s1")

	p.Run(context.Background(), "s1")

	// 4 focus areas plus 3 perspectives x (general + 4 dimensions).
	if len(engine.queries) != 19 {
		t.Fatalf("expected 19 retrieval calls, got %d", len(engine.queries))
	}
	if !strings.Contains(synth.prompt, "RAW ANALYSIS TEXT FOR: GENERAL") {
		t.Fatal("synthesis prompt should label raw analyses")
	}
	if !strings.Contains(synth.prompt, `"general_equity_assessment"`) {
		t.Fatal("synthesis prompt should carry the JSON skeleton")
	}

	rec, ok := p.Sessions.Get("s1")
	if !ok {
		t.Fatal("session gone")
	}
	if rec.AnalysisStatus != session.AnalysisCompleted {
		t.Fatalf("unexpected status %q (err=%q)", rec.AnalysisStatus, rec.AnalysisError)
	}
	if rec.ResultPath == "" || rec.CachedResult == nil {
		t.Fatal("result path and cache should be recorded")
	}
	if rec.TempFilePath != "" {
		t.Fatal("temp path should be cleared")
	}
	if _, err := os.Stat(temp); !os.IsNotExist(err) {
		t.Fatalf("staged file should be deleted, stat err=%v", err)
	}

	var doc ResultDocument
	if err := json.Unmarshal(rec.CachedResult, &doc); err != nil {
		t.Fatalf("cached result not valid JSON: %v", err)
	}
	if doc.Document.Filename != "report.pdf" || doc.Document.SizeKB != 12 {
		t.Fatalf("document metadata not assigned: %+v", doc.Document)
	}
	if len(doc.Sections.General.Sources) != 1 || doc.Sections.General.Sources[0].Type != "openai" {
		t.Fatalf("general sources not injected: %+v", doc.Sections.General.Sources)
	}
	if len(doc.Overall.Sources) != 1 || doc.Overall.Sources[0].Data != doc.Sections.General.Sources[0].Data {
		t.Fatal("overall summary should reuse the general assessment's sources")
	}
	for _, entry := range doc.Perspectives {
		if len(entry.General.Sources) != 1 || len(entry.Recognitional.Sources) != 1 {
			t.Fatalf("perspective %q missing injected sources", entry.Group)
		}
	}

	// The persisted artifact must reload into the exact structure that
	// was cached on the record.
	saved, err := p.Artifacts.Load("s1")
	if err != nil {
		t.Fatalf("load artifact: %v", err)
	}
	var reloaded ResultDocument
	if err := json.Unmarshal(saved, &reloaded); err != nil {
		t.Fatalf("unmarshal persisted artifact: %v", err)
	}
	if !reflect.DeepEqual(reloaded, doc) {
		t.Fatalf("persisted artifact drifted from cached result:\n%+v\nvs\n%+v", reloaded, doc)
	}
}

func TestPipelineSupersededRunLeavesReplacementUntouched(t *testing.T) {
	p := newTestPipeline(t, nil, &fakeSynth{payload: synthesizedDoc(t)})
	engine := &fakeAnswerer{}
	var newTemp string
	engine.onAnswer = func() {
		// The user replaces the document while the analysis is running.
		if len(engine.queries) == 3 {
			newTemp = registerCompletedUpload(t, p, "s1")
			p.Sessions.Update("s1", func(r *session.Record) { r.SizeKB = 99 })
		}
	}
	p.Engine = engine
	oldTemp := registerCompletedUpload(t, p, "s1")

	p.Run(context.Background(), "s1")

	if len(engine.queries) >= 19 {
		t.Fatalf("superseded run should stop early, made %d calls", len(engine.queries))
	}
	rec, ok := p.Sessions.Get("s1")
	if !ok {
		t.Fatal("replacement record missing")
	}
	if rec.AnalysisStatus != session.AnalysisPending {
		t.Fatalf("stale run must not touch the replacement's analysis, got %q (err=%q)", rec.AnalysisStatus, rec.AnalysisError)
	}
	if rec.CachedResult != nil || rec.ResultPath != "" {
		t.Fatal("stale run must not attach its result to the replacement")
	}
	if rec.SizeKB != 99 {
		t.Fatalf("replacement record overwritten: %+v", rec)
	}
	if rec.TempFilePath != newTemp {
		t.Fatalf("replacement temp path clobbered: %q", rec.TempFilePath)
	}
	if _, err := os.Stat(newTemp); err != nil {
		t.Fatalf("replacement staged file must survive: %v", err)
	}
	// The stale run still owns its own staged file.
	if _, err := os.Stat(oldTemp); !os.IsNotExist(err) {
		t.Fatalf("stale staged file should be deleted, stat err=%v", err)
	}
	if _, err := p.Artifacts.Load("s1"); err == nil {
		t.Fatal("stale run must not persist an artifact")
	}
}

func TestPipelineUnitFailureYieldsIncompleteNotice(t *testing.T) {
	engine := &fakeAnswerer{failWhen: "vulnerable groups"}
	synth := &fakeSynth{payload: synthesizedDoc(t)}
	p := newTestPipeline(t, engine, synth)
	registerCompletedUpload(t, p, "s1")

	p.Run(context.Background(), "s1")

	// All units still run despite the failure.
	if len(engine.queries) != 19 {
		t.Fatalf("expected 19 retrieval calls, got %d", len(engine.queries))
	}
	if synth.prompt != "" {
		t.Fatal("synthesis must be skipped when a unit failed")
	}

	rec, _ := p.Sessions.Get("s1")
	if rec.AnalysisStatus != session.AnalysisCompleted {
		t.Fatalf("incomplete notice should still complete, got %q", rec.AnalysisStatus)
	}
	var doc ResultDocument
	if err := json.Unmarshal(rec.CachedResult, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !strings.Contains(doc.Sections.General.Summary, "raw analyses failed") {
		t.Fatalf("expected failure notice, got %q", doc.Sections.General.Summary)
	}
	if len(doc.Perspectives) != 0 {
		t.Fatal("incomplete notice should carry no perspective entries")
	}
	// Sources from the units that succeeded are still attached.
	if len(doc.Sections.General.Sources) != 1 {
		t.Fatalf("general sources should survive, got %+v", doc.Sections.General.Sources)
	}
}

func TestPipelineSynthesisErrorFails(t *testing.T) {
	engine := &fakeAnswerer{}
	synth := &fakeSynth{err: errors.New("service unavailable")}
	p := newTestPipeline(t, engine, synth)
	registerCompletedUpload(t, p, "s1")

	p.Run(context.Background(), "s1")

	rec, _ := p.Sessions.Get("s1")
	if rec.AnalysisStatus != session.AnalysisFailed {
		t.Fatalf("expected failed status, got %q", rec.AnalysisStatus)
	}
	if !strings.Contains(rec.AnalysisError, "service unavailable") {
		t.Fatalf("expected error detail, got %q", rec.AnalysisError)
	}
}

func TestPipelineMalformedSynthesisDegrades(t *testing.T) {
	engine := &fakeAnswerer{}
	synth := &fakeSynth{payload: json.RawMessage(`{"document": [not json`)}
	p := newTestPipeline(t, engine, synth)
	registerCompletedUpload(t, p, "s1")

	p.Run(context.Background(), "s1")

	rec, _ := p.Sessions.Get("s1")
	if rec.AnalysisStatus != session.AnalysisCompleted {
		t.Fatalf("malformed synthesis should degrade to a notice, got %q", rec.AnalysisStatus)
	}
	var doc ResultDocument
	if err := json.Unmarshal(rec.CachedResult, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !strings.Contains(doc.Sections.General.Summary, "JSON formatting failed") {
		t.Fatalf("expected formatting notice, got %q", doc.Sections.General.Summary)
	}
}

func TestPipelineDiscardsOrphanedResult(t *testing.T) {
	p := newTestPipeline(t, nil, &fakeSynth{payload: synthesizedDoc(t)})
	engine := &fakeAnswerer{}
	engine.onAnswer = func() {
		// The session ends mid-analysis.
		if len(engine.queries) == 3 {
			p.Sessions.Remove("s1")
		}
	}
	p.Engine = engine
	registerCompletedUpload(t, p, "s1")

	p.Run(context.Background(), "s1")

	if _, ok := p.Sessions.Get("s1"); ok {
		t.Fatal("session should stay removed")
	}
	if _, err := p.Artifacts.Load("s1"); err == nil {
		t.Fatal("orphaned artifact should be discarded")
	}
}

func TestPipelineSkipsWhenAlreadyRunning(t *testing.T) {
	engine := &fakeAnswerer{}
	p := newTestPipeline(t, engine, &fakeSynth{payload: synthesizedDoc(t)})
	registerCompletedUpload(t, p, "s1")
	p.Sessions.Update("s1", func(r *session.Record) { r.AnalysisStatus = session.AnalysisInProgress })

	p.Run(context.Background(), "s1")

	if len(engine.queries) != 0 {
		t.Fatal("a running analysis must not be restarted")
	}
}

func TestPipelineCancelledContext(t *testing.T) {
	engine := &fakeAnswerer{}
	p := newTestPipeline(t, engine, &fakeSynth{payload: synthesizedDoc(t)})
	registerCompletedUpload(t, p, "s1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.Run(ctx, "s1")

	rec, _ := p.Sessions.Get("s1")
	if rec.AnalysisStatus != session.AnalysisFailed {
		t.Fatalf("expected failed status on cancellation, got %q", rec.AnalysisStatus)
	}
}
