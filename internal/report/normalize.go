package report

// Normalize converts a parsed object into a canonical Document. It fills
// defaults for missing or mistyped fields, stamps the schema version, and
// passes extension keys through untouched. The input map is not mutated; the
// returned value is a fresh Document, so callers compare values or the schema
// stamp rather than references.
//
// Normalize also tolerates raw or partial objects — payload rehydration from
// storage runs through it — and therefore never fails. Nested shapes are
// decoded leniently: entries that are not objects, and fields that are not
// strings, are dropped rather than rejected.
func Normalize(obj map[string]any) Document {
	d := Document{
		Title:         stringOr(obj["title"], "Untitled"),
		Summary:       stringOr(obj["summary"], ""),
		Themes:        themesFrom(obj["themes"]),
		ProjectIdeas:  ideasFrom(obj["projectIdeas"]),
		References:    referencesFrom(obj["references"]),
		Risks:         stringsFrom(obj["risks"]),
		SchemaVersion: SchemaVersion,
	}
	for k, v := range obj {
		if canonicalKeys[k] {
			continue
		}
		if d.Extra == nil {
			d.Extra = make(map[string]any)
		}
		d.Extra[k] = v
	}
	return d
}

func stringOr(v any, def string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return def
}

func themesFrom(v any) []Theme {
	items, ok := v.([]any)
	out := []Theme{}
	if !ok {
		return out
	}
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, Theme{
			Name:        stringOr(m["name"], ""),
			Explanation: stringOr(m["explanation"], ""),
		})
	}
	return out
}

func ideasFrom(v any) []ProjectIdea {
	items, ok := v.([]any)
	out := []ProjectIdea{}
	if !ok {
		return out
	}
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, ProjectIdea{
			Name:            stringOr(m["name"], ""),
			Goal:            stringOr(m["goal"], ""),
			PotentialImpact: stringOr(m["potentialImpact"], ""),
			NextSteps:       stringsFrom(m["nextSteps"]),
		})
	}
	return out
}

func referencesFrom(v any) []Reference {
	items, ok := v.([]any)
	out := []Reference{}
	if !ok {
		return out
	}
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, Reference{
			Type:   stringOr(m["type"], ""),
			Source: stringOr(m["source"], ""),
			URL:    stringOr(m["url"], ""),
		})
	}
	return out
}

func stringsFrom(v any) []string {
	items, ok := v.([]any)
	out := []string{}
	if !ok {
		return out
	}
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
