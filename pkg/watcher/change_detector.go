package watcher

// ChangeAnalysis describes what changed and which documents need to be reloaded
type ChangeAnalysis struct {
	ReloadOld    bool
	ReloadNew    bool
	ChangedFiles []string
}

// NeedsDiff reports whether anything has to be recomputed
func (a *ChangeAnalysis) NeedsDiff() bool {
	return a.ReloadOld || a.ReloadNew
}

// AnalyzeChanges determines which sides need to be reloaded based on what changed
func AnalyzeChanges(event ChangeEvent) *ChangeAnalysis {
	analysis := &ChangeAnalysis{
		ChangedFiles: event.Paths,
	}

	switch event.Type {
	case ChangeTypeOld:
		analysis.ReloadOld = true
	case ChangeTypeNew:
		analysis.ReloadNew = true
	case ChangeTypeBoth:
		// Same document on both sides, or both edited within one batch
		analysis.ReloadOld = true
		analysis.ReloadNew = true
	}

	return analysis
}

// fullReload is the analysis for a session's first run
func fullReload() *ChangeAnalysis {
	return &ChangeAnalysis{ReloadOld: true, ReloadNew: true}
}
