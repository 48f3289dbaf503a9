package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"equity-backend/internal/extract"
	"equity-backend/internal/llm"
	"equity-backend/internal/rag"
	"equity-backend/internal/session"
	"equity-backend/internal/shared/telemetry"
)

// Answerer runs one hybrid retrieval query for a session.
type Answerer interface {
	Answer(ctx context.Context, sessionID, query string, focus rag.Focus, custom string) (rag.Answer, error)
}

// Pipeline runs the full multi-pass equity analysis for a session as a
// background task: one retrieval call per focus area, one per perspective
// angle, then a synthesis pass that folds the raw texts into the
// structured report.
type Pipeline struct {
	Sessions  *session.Registry
	Engine    Answerer
	Synth     llm.Synthesizer
	Artifacts *Store

	SynthesisModel string
	// Limiter paces consecutive generation calls to stay under provider
	// rate limits.
	Limiter *rate.Limiter
}

// unit is one retrieval pass of the pipeline.
type unit struct {
	key   string
	query string
	focus rag.Focus
}

func buildUnits() []unit {
	var units []unit
	for _, focus := range rag.FocusAreas {
		units = append(units, unit{
			key:   string(focus),
			query: rag.AnalysisQuery(focus.Description()),
			focus: focus,
		})
	}
	// Perspective passes reuse the general focus; the angle lives in the
	// query text itself.
	for _, p := range Perspectives {
		units = append(units, unit{
			key:   "perspective_" + p.Key() + "_general",
			query: rag.AnalysisQuery(p.Description),
			focus: rag.FocusGeneral,
		})
		for _, dim := range dimensions {
			units = append(units, unit{
				key:   "perspective_" + p.Key() + "_" + dim,
				query: rag.AnalysisQuery(p.Dimensions[dim]),
				focus: rag.FocusGeneral,
			})
		}
	}
	return units
}

// errSuperseded stops a run whose upload has been replaced mid-flight.
var errSuperseded = errors.New("analysis superseded by a new upload")

// Run executes the analysis for the session and records the outcome in
// the registry. It is designed to run in its own goroutine: every exit
// path leaves the session's analysis status terminal and removes the
// staged upload file. The upload id captured at the start fences every
// registry write: a replacement upload mints a new id, turning this
// run's remaining writes into no-ops so it can never mark the new
// document's analysis with the old document's result.
func (p *Pipeline) Run(ctx context.Context, sessionID string) {
	rec, ok := p.Sessions.Get(sessionID)
	if !ok {
		telemetry.Error("analysis.session.missing", map[string]any{"session_id": sessionID})
		return
	}
	uploadID := rec.UploadID

	claimed := false
	p.Sessions.Update(sessionID, func(r *session.Record) {
		if r.UploadID != uploadID || r.AnalysisStatus == session.AnalysisInProgress {
			return
		}
		claimed = true
		r.AnalysisStatus = session.AnalysisInProgress
		r.AnalysisError = ""
		r.ResultPath = ""
		r.CachedResult = nil
	})
	if !claimed {
		telemetry.Warn("analysis.already_running", map[string]any{"session_id": sessionID})
		return
	}

	// The staged file belongs to this run's upload (its path carries the
	// upload id), so removing it can never hit a replacement's file.
	tempPath := rec.TempFilePath
	defer func() {
		if tempPath == "" {
			return
		}
		if err := os.Remove(tempPath); err != nil && !os.IsNotExist(err) {
			telemetry.Warn("analysis.temp_file.remove_failed", map[string]any{"session_id": sessionID, "err": err.Error()})
		}
		p.update(sessionID, uploadID, func(r *session.Record) { r.TempFilePath = "" })
	}()

	title := rec.FileName
	if tempPath != "" {
		title = extract.Title(tempPath, rec.FileName)
	}
	meta := DocumentMeta{
		Filename:      rec.FileName,
		Title:         title,
		SizeKB:        rec.SizeKB,
		UploadDateUTC: rec.UploadedAt.Format(time.RFC3339),
	}

	p.update(sessionID, uploadID, func(r *session.Record) { r.Title = title })
	telemetry.Info("analysis.started", map[string]any{"session_id": sessionID, "file_name": rec.FileName})

	raw, err := p.collect(ctx, sessionID, uploadID)
	if err != nil {
		p.fail(sessionID, uploadID, err)
		return
	}

	doc, err := p.synthesize(ctx, meta, raw)
	if err != nil {
		p.fail(sessionID, uploadID, err)
		return
	}
	injectSources(doc, raw)

	path, err := p.Artifacts.Save(sessionID, doc)
	if err != nil {
		p.fail(sessionID, uploadID, err)
		return
	}
	cached, err := json.Marshal(doc)
	if err != nil {
		p.fail(sessionID, uploadID, err)
		return
	}

	// The session can disappear or be replaced while the pipeline runs
	// (explicit end or replacement upload). A stale result has no reader;
	// discard it instead of resurrecting it onto the record.
	updated := p.update(sessionID, uploadID, func(r *session.Record) {
		r.AnalysisStatus = session.AnalysisCompleted
		r.ResultPath = path
		r.CachedResult = cached
	})
	if !updated {
		telemetry.Warn("analysis.result.discarded", map[string]any{"session_id": sessionID})
		if _, exists := p.Sessions.Get(sessionID); !exists {
			p.Artifacts.Remove(sessionID)
		}
		return
	}
	telemetry.Info("analysis.completed", map[string]any{"session_id": sessionID, "result_path": path})
}

// update applies fn only while the session still belongs to this run's
// upload, reporting whether the write was applied.
func (p *Pipeline) update(sessionID, uploadID string, fn func(*session.Record)) bool {
	applied := false
	p.Sessions.Update(sessionID, func(r *session.Record) {
		if r.UploadID != uploadID {
			return
		}
		applied = true
		fn(r)
	})
	return applied
}

// collect runs every retrieval unit, pacing between calls. A failed unit
// is recorded and the pipeline continues; only context cancellation or a
// replacement upload stops it early.
func (p *Pipeline) collect(ctx context.Context, sessionID, uploadID string) (map[string]rawAnalysis, error) {
	raw := make(map[string]rawAnalysis)
	for _, u := range buildUnits() {
		if rec, ok := p.Sessions.Get(sessionID); !ok || rec.UploadID != uploadID {
			return nil, errSuperseded
		}
		if p.Limiter != nil {
			if err := p.Limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("analysis cancelled: %w", err)
			}
		} else if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("analysis cancelled: %w", err)
		}

		ans, err := p.Engine.Answer(ctx, sessionID, u.query, u.focus, "")
		if err != nil {
			telemetry.Error("analysis.unit.failed", map[string]any{
				"session_id": sessionID,
				"unit":       u.key,
				"err":        err.Error(),
			})
			raw[u.key] = rawAnalysis{
				Text:          "ANALYSIS FAILED: " + err.Error(),
				Failed:        true,
				RemoteSources: ans.RemoteCitations,
			}
			continue
		}
		raw[u.key] = rawAnalysis{Text: ans.Text, RemoteSources: ans.RemoteCitations}
		telemetry.Info("analysis.unit.completed", map[string]any{
			"session_id": sessionID,
			"unit":       u.key,
			"citations":  len(ans.RemoteCitations),
		})
	}
	return raw, nil
}

// synthesize folds the raw texts into the structured report. If any unit
// failed, synthesis is skipped and an incomplete-notice document is
// produced instead; a malformed synthesis response likewise degrades to a
// notice document rather than an error, so partial sources still reach
// the user.
func (p *Pipeline) synthesize(ctx context.Context, meta DocumentMeta, raw map[string]rawAnalysis) (*ResultDocument, error) {
	for _, unit := range raw {
		if unit.Failed {
			return incompleteDocument(meta,
				"One or more raw analyses failed during text generation. See logs for details.",
				"Due to incomplete raw analysis generation."), nil
		}
	}

	payload, err := p.Synth.Synthesize(ctx, p.SynthesisModel, formatterPrompt(raw))
	if err != nil {
		return nil, fmt.Errorf("synthesize analysis: %w", err)
	}

	var doc ResultDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		telemetry.Error("analysis.synthesis.malformed", map[string]any{"err": err.Error()})
		return incompleteDocument(meta,
			fmt.Sprintf("JSON formatting failed: %v. Raw analyses might be incomplete or malformed.", err),
			"Due to JSON formatting failure."), nil
	}
	doc.Document = meta
	return &doc, nil
}

func formatterPrompt(raw map[string]rawAnalysis) string {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var texts strings.Builder
	for _, k := range keys {
		label := strings.ToUpper(strings.ReplaceAll(k, "_", " "))
		fmt.Fprintf(&texts, "\n--- RAW ANALYSIS TEXT FOR: %s ---\n%s\n", label, raw[k].Text)
	}

	var b strings.Builder
	b.WriteString(`You are an expert data structurer and equity analyst. Your task is to populate the provided JSON structure.
All generated content in the JSON must be derived **ONLY** from the raw analysis texts provided below.
Crucially, all summary, narrative, and description fields must use an **indicative, tentative, or suggestive tone**.
Avoid definitive or authoritative statements. Employ phrases like "This may indicate...", "It suggests that...",
"A potential interpretation is...", "It appears to...", "Could be seen as...", "There is an indication that...",
"The document seems to...", "It might imply...", etc.

**Instructions:**
1.  Carefully read all provided raw text analyses.
2.  Fill in every "..." placeholder in the JSON skeleton with **detailed and comprehensive** information synthesized from these analysis texts. Do not over-summarize; preserve key details and nuanced interpretations.
3.  Ensure all content strictly adheres to the schema and the required indicative tone.
4.  **DO NOT ADD ANY SOURCE INFORMATION OR CITATIONS TO THE TEXT FIELDS OR THE 'sources' ARRAYS.** The 'sources' arrays in the JSON skeleton will be populated separately afterwards.
5.  Specifically for the general_equity_assessment within analysis_sections, break down the 'general' raw analysis into the sub-fields for each of the four equity dimensions (Recognitional, Procedural, Distributional, Structural). For each dimension, aim to identify both "positive_findings" and "concerns" if discernible, and provide a "conclusion". If information is not provided for a sub-field, use "Not explicitly indicated by the document." or similar indicative phrasing.
6.  For the equity_analysis_by_perspective array, create an entry for each perspective mentioned in the raw analyses (e.g., Policy Makers, Residents, Farmers/Business Owners). For each perspective entry:
    *   Populate the group name (e.g., "Policy Makers").
    *   Fill the general_equity_assessment (title and narrative) using the corresponding raw analysis text. The title should reflect the group's perspective.
    *   Fill the individual equity dimension descriptions (recognitional_equity, procedural_equity, distributional_equity, structural_equity) using the specific raw analysis texts for that dimension and group.
7.  Ensure the output is a single, valid JSON object and nothing else.

**JSON SKELETON TO POPULATE (Text fields only):**
`)
	b.WriteString(skeletonJSON)
	b.WriteString("\n\n**RAW TEXT ANALYSES TO USE:**\n")
	b.WriteString(texts.String())
	return b.String()
}

func (p *Pipeline) fail(sessionID, uploadID string, err error) {
	telemetry.Error("analysis.failed", map[string]any{"session_id": sessionID, "err": err.Error()})
	p.update(sessionID, uploadID, func(r *session.Record) {
		r.AnalysisStatus = session.AnalysisFailed
		r.AnalysisError = err.Error()
	})
}
