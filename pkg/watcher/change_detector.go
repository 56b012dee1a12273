package watcher

// ChangeAnalysis describes what a debounced batch means for the served graph
type ChangeAnalysis struct {
	NeedReload   bool
	Removed      bool
	ChangedFiles []string
}

// AnalyzeChanges determines whether the snapshot must be reloaded
func AnalyzeChanges(event ChangeEvent) *ChangeAnalysis {
	analysis := &ChangeAnalysis{
		ChangedFiles: event.Paths,
	}

	switch event.Type {
	case ChangeTypeWrite:
		// New content; the file may still be mid-write, which Reload reports
		analysis.NeedReload = true

	case ChangeTypeRemove:
		// Keep serving the last good graph until the file reappears
		analysis.Removed = true
	}

	return analysis
}
