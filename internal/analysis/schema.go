package analysis

// Source is one supporting excerpt attached to a result section. Only
// remote document-search excerpts become sources; framework context chunks
// are prompt grounding and are never cited.
type Source struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

const sourceTypeRemote = "openai"

// DocumentMeta describes the analyzed upload.
type DocumentMeta struct {
	Filename      string `json:"filename"`
	Title         string `json:"title"`
	SizeKB        int64  `json:"size_kb"`
	UploadDateUTC string `json:"upload_date_utc"`
}

// DimensionFinding is the per-dimension breakdown inside the general
// assessment.
type DimensionFinding struct {
	Title            string `json:"title"`
	PositiveFindings string `json:"positive_findings"`
	Concerns         string `json:"concerns"`
	Conclusion       string `json:"conclusion"`
}

// GeneralAssessment covers the document as a whole, broken down by the
// four equity dimensions.
type GeneralAssessment struct {
	Title          string           `json:"title"`
	Summary        string           `json:"summary"`
	Sources        []Source         `json:"sources"`
	Recognitional  DimensionFinding `json:"recognitional_equity"`
	Procedural     DimensionFinding `json:"procedural_equity"`
	Distributional DimensionFinding `json:"distributional_equity"`
	Structural     DimensionFinding `json:"structural_equity"`
}

// VulnerableGroupsAnalysis reports who is affected and how.
type VulnerableGroupsAnalysis struct {
	Title                     string   `json:"title"`
	Summary                   string   `json:"summary"`
	IdentifiedGroupsAndImpact string   `json:"identified_groups_and_impacts"`
	EquityAssessmentSummary   string   `json:"equity_assessment_summary"`
	Conclusion                string   `json:"conclusion"`
	Sources                   []Source `json:"sources"`
}

// SeverityImpactAnalysis grades impacts by severity.
type SeverityImpactAnalysis struct {
	Title                       string   `json:"title"`
	Summary                     string   `json:"summary"`
	HighSeverityImpacts         string   `json:"high_severity_impacts"`
	ModerateSeverityImpacts     string   `json:"moderate_severity_impacts"`
	EquityImplicationsOfImpacts string   `json:"equity_implications_of_impacts"`
	Conclusion                  string   `json:"conclusion"`
	Sources                     []Source `json:"sources"`
}

// MitigationStrategiesAnalysis assesses proposed remedies.
type MitigationStrategiesAnalysis struct {
	Title                string   `json:"title"`
	Summary              string   `json:"summary"`
	IdentifiedStrategies string   `json:"identified_strategies"`
	EquityAssessment     string   `json:"equity_assessment"`
	Conclusion           string   `json:"conclusion"`
	Sources              []Source `json:"sources"`
}

// AnalysisSections groups the four standard focus-area sections.
type AnalysisSections struct {
	General              GeneralAssessment            `json:"general_equity_assessment"`
	VulnerableGroups     VulnerableGroupsAnalysis     `json:"vulnerable_groups_analysis"`
	SeverityImpact       SeverityImpactAnalysis       `json:"severity_impact_analysis"`
	MitigationStrategies MitigationStrategiesAnalysis `json:"mitigation_strategies_analysis"`
}

// PerspectiveNarrative is the general assessment seen from one
// stakeholder group.
type PerspectiveNarrative struct {
	Title     string   `json:"title"`
	Narrative string   `json:"narrative"`
	Sources   []Source `json:"sources"`
}

// PerspectiveDimension is one equity dimension seen from one stakeholder
// group.
type PerspectiveDimension struct {
	Description string   `json:"description"`
	Sources     []Source `json:"sources"`
}

// PerspectiveEntry is the full per-group breakdown.
type PerspectiveEntry struct {
	Group          string               `json:"group"`
	General        PerspectiveNarrative `json:"general_equity_assessment"`
	Recognitional  PerspectiveDimension `json:"recognitional_equity"`
	Procedural     PerspectiveDimension `json:"procedural_equity"`
	Distributional PerspectiveDimension `json:"distributional_equity"`
	Structural     PerspectiveDimension `json:"structural_equity"`
}

// OverallSummary closes the report with gaps, strengths and
// recommendations.
type OverallSummary struct {
	Title              string   `json:"title"`
	KeyEquityGaps      string   `json:"key_equity_gaps"`
	KeyEquityStrengths string   `json:"key_equity_strengths"`
	Recommendations    string   `json:"recommendations"`
	Sources            []Source `json:"sources"`
}

// ResultDocument is the complete structured analysis artifact.
type ResultDocument struct {
	Document     DocumentMeta       `json:"document"`
	Sections     AnalysisSections   `json:"analysis_sections"`
	Perspectives []PerspectiveEntry `json:"equity_analysis_by_perspective"`
	Overall      OverallSummary     `json:"overall_summary_and_recommendations"`
}

// skeletonJSON is the shape the synthesis model fills in. Sources arrays
// stay empty; they are populated afterwards from the raw retrieval
// results, never by the model.
const skeletonJSON = `{
  "document": {
    "filename": "...",
    "title": "...",
    "size_kb": 0,
    "upload_date_utc": "..."
  },
  "analysis_sections": {
    "general_equity_assessment": {
      "title": "General Equity Assessment",
      "summary": "...",
      "sources": [],
      "recognitional_equity": { "title": "Recognitional Equity", "positive_findings": "...", "concerns": "...", "conclusion": "..." },
      "procedural_equity": { "title": "Procedural Equity", "positive_findings": "...", "concerns": "...", "conclusion": "..." },
      "distributional_equity": { "title": "Distributional Equity", "positive_findings": "...", "concerns": "...", "conclusion": "..." },
      "structural_equity": { "title": "Structural Equity", "positive_findings": "...", "concerns": "...", "conclusion": "..." }
    },
    "vulnerable_groups_analysis": {
      "title": "Vulnerable Groups Analysis",
      "summary": "...",
      "identified_groups_and_impacts": "...",
      "equity_assessment_summary": "...",
      "conclusion": "...",
      "sources": []
    },
    "severity_impact_analysis": {
      "title": "Severity of Impact Analysis",
      "summary": "...",
      "high_severity_impacts": "...",
      "moderate_severity_impacts": "...",
      "equity_implications_of_impacts": "...",
      "conclusion": "...",
      "sources": []
    },
    "mitigation_strategies_analysis": {
      "title": "Mitigation Strategies Analysis",
      "summary": "...",
      "identified_strategies": "...",
      "equity_assessment": "...",
      "conclusion": "...",
      "sources": []
    }
  },
  "equity_analysis_by_perspective": [
    {
      "group": "...",
      "general_equity_assessment": {
        "title": "...",
        "narrative": "...",
        "sources": []
      },
      "recognitional_equity": { "description": "...", "sources": [] },
      "procedural_equity": { "description": "...", "sources": [] },
      "distributional_equity": { "description": "...", "sources": [] },
      "structural_equity": { "description": "...", "sources": [] }
    }
  ],
  "overall_summary_and_recommendations": {
    "title": "Overall Summary & Recommendations",
    "key_equity_gaps": "...",
    "key_equity_strengths": "...",
    "recommendations": "...",
    "sources": []
  }
}`

// incompleteDocument is the artifact produced when one or more raw
// analyses failed and full synthesis is skipped.
func incompleteDocument(meta DocumentMeta, summary, gaps string) *ResultDocument {
	doc := &ResultDocument{Document: meta}
	doc.Sections.General.Title = "General Equity Assessment"
	doc.Sections.General.Summary = summary
	doc.Sections.VulnerableGroups.Title = "Vulnerable Groups Analysis"
	doc.Sections.SeverityImpact.Title = "Severity of Impact Analysis"
	doc.Sections.MitigationStrategies.Title = "Mitigation Strategies Analysis"
	doc.Perspectives = []PerspectiveEntry{}
	doc.Overall.Title = "Overall Summary & Recommendations"
	doc.Overall.KeyEquityGaps = gaps
	return doc
}
