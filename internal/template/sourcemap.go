package template

import "github.com/google/uuid"

// SourceMap records, for every line the renderer emitted, which template
// line (and include chain) produced it — the data an editor integration
// needs to jump from generated output back to the .ptpl source that
// produced a given line, and from there (via the IR) to the .poly
// declaration.
type SourceMap struct {
	Entries []SourceMapEntry
}

// SourceMapEntry describes one emitted output line.
type SourceMapEntry struct {
	OutputLine   int
	TemplateFile string
	TemplateLine int
	IncludeStack []string
	// IncludeInstance identifies which recursive invocation of
	// TemplateFile (via %include) produced this line — a debugging aid
	// only, distinct entries can legitimately share a template/line pair
	// when the same template is included more than once (e.g. from a %for
	// body or from two sibling %include lines).
	IncludeInstance uuid.UUID
	IRPath          string
}

func (sm *SourceMap) record(outputLine int, templateFile string, templateLine int, includeStack []string, includeInstance uuid.UUID, irPath string) {
	stack := append([]string(nil), includeStack...)
	sm.Entries = append(sm.Entries, SourceMapEntry{
		OutputLine:      outputLine,
		TemplateFile:    templateFile,
		TemplateLine:    templateLine,
		IncludeStack:    stack,
		IncludeInstance: includeInstance,
		IRPath:          irPath,
	})
}
