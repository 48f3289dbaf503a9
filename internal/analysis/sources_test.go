package analysis

import "testing"

func TestInjectSourcesTolerantOfMissingPerspective(t *testing.T) {
	doc := &ResultDocument{}
	// Synthesis produced only one of the three perspective entries.
	doc.Perspectives = []PerspectiveEntry{{Group: "Residents"}}

	raw := map[string]rawAnalysis{
		"general":                         {Text: "ok", RemoteSources: []string{"doc.pdf: a"}},
		"perspective_residents_general":   {Text: "ok", RemoteSources: []string{"doc.pdf: b"}},
		"perspective_policy_makers_general": {Text: "ok", RemoteSources: []string{"doc.pdf: c"}},
	}
	injectSources(doc, raw)

	if len(doc.Sections.General.Sources) != 1 {
		t.Fatalf("general sources not injected: %+v", doc.Sections.General.Sources)
	}
	if len(doc.Perspectives[0].General.Sources) != 1 || doc.Perspectives[0].General.Sources[0].Data != "doc.pdf: b" {
		t.Fatalf("resident sources not injected: %+v", doc.Perspectives[0].General.Sources)
	}
	// Sections with no matching raw unit still render as empty arrays.
	if doc.Sections.VulnerableGroups.Sources == nil {
		t.Fatal("missing units should leave empty, non-nil source lists")
	}
	if doc.Perspectives[0].Recognitional.Sources == nil {
		t.Fatal("dimension without raw unit should have empty source list")
	}
}

func TestInjectSourcesNeverEmitsLocalType(t *testing.T) {
	doc := &ResultDocument{}
	raw := map[string]rawAnalysis{
		"general": {Text: "ok", RemoteSources: []string{"doc.pdf: excerpt"}},
	}
	injectSources(doc, raw)
	for _, s := range doc.Sections.General.Sources {
		if s.Type != "openai" {
			t.Fatalf("unexpected source type %q", s.Type)
		}
	}
}
