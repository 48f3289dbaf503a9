package analysis

// rawAnalysis is the outcome of one retrieval unit before synthesis.
type rawAnalysis struct {
	Text          string
	Failed        bool
	RemoteSources []string
}

func toSources(remote []string) []Source {
	out := make([]Source, 0, len(remote))
	for _, data := range remote {
		out = append(out, Source{Type: sourceTypeRemote, Data: data})
	}
	return out
}

// injectSources copies the remote retrieval excerpts into the structured
// document after synthesis. The model never writes sources; this keeps
// citations verbatim and excludes framework context chunks entirely. The
// overall summary reuses the general assessment's sources since it has no
// retrieval unit of its own.
func injectSources(doc *ResultDocument, raw map[string]rawAnalysis) {
	targets := map[string]*[]Source{
		"general":               &doc.Sections.General.Sources,
		"vulnerable_groups":     &doc.Sections.VulnerableGroups.Sources,
		"severity_of_impact":    &doc.Sections.SeverityImpact.Sources,
		"mitigation_strategies": &doc.Sections.MitigationStrategies.Sources,
	}

	for _, p := range Perspectives {
		entry := findPerspective(doc, p.GroupName)
		if entry == nil {
			continue
		}
		targets["perspective_"+p.Key()+"_general"] = &entry.General.Sources
		targets["perspective_"+p.Key()+"_recognitional"] = &entry.Recognitional.Sources
		targets["perspective_"+p.Key()+"_procedural"] = &entry.Procedural.Sources
		targets["perspective_"+p.Key()+"_distributional"] = &entry.Distributional.Sources
		targets["perspective_"+p.Key()+"_structural"] = &entry.Structural.Sources
	}

	for key, target := range targets {
		if unit, ok := raw[key]; ok {
			*target = toSources(unit.RemoteSources)
		} else if *target == nil {
			*target = []Source{}
		}
	}

	if general, ok := raw["general"]; ok {
		doc.Overall.Sources = toSources(general.RemoteSources)
	} else {
		doc.Overall.Sources = []Source{}
	}
}

func findPerspective(doc *ResultDocument, group string) *PerspectiveEntry {
	for i := range doc.Perspectives {
		if doc.Perspectives[i].Group == group {
			return &doc.Perspectives[i]
		}
	}
	return nil
}
