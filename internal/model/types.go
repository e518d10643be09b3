package model

import "time"

// Severity represents the severity level of a finding.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// SeverityRank returns a numeric rank for sorting (higher = more severe).
func SeverityRank(s Severity) int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// ValidSeverity reports whether s is one of the known severity levels.
func ValidSeverity(s Severity) bool {
	return SeverityRank(s) > 0
}

// EditKind classifies how a file changed within a diff.
type EditKind string

const (
	EditAdded    EditKind = "added"
	EditDeleted  EditKind = "deleted"
	EditRenamed  EditKind = "renamed"
	EditModified EditKind = "modified"
)

// FilePatch is one changed file as produced by the diff provider.
// Content fields are empty for sides that do not exist (new or deleted files).
type FilePatch struct {
	Path       string   `json:"path"`
	OldPath    string   `json:"old_path,omitempty"`
	Kind       EditKind `json:"kind"`
	OldContent string   `json:"-"`
	NewContent string   `json:"-"`
	Diff       string   `json:"-"`
	Additions  int      `json:"additions"`
	Deletions  int      `json:"deletions"`
}

// ChangedLines returns the total added plus removed line count.
func (f FilePatch) ChangedLines() int {
	return f.Additions + f.Deletions
}

// Finding is one reported issue with severity, location, and suggested fix.
type Finding struct {
	Type        string   `json:"type"`
	File        string   `json:"file,omitempty"`
	Line        int      `json:"line_number,omitempty"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	Suggestion  string   `json:"suggestion,omitempty"`
}

// HistoricalFinding is the reduced finding shape stored in the historical
// ledger, keyed by filename at the ledger level.
type HistoricalFinding struct {
	Type        string   `json:"type"`
	Line        int      `json:"line_number,omitempty"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	Suggestion  string   `json:"suggestion,omitempty"`
}

// Reduce strips a finding down to its ledger representation.
func Reduce(f Finding) HistoricalFinding {
	return HistoricalFinding{
		Type:        f.Type,
		Line:        f.Line,
		Severity:    f.Severity,
		Description: f.Description,
		Suggestion:  f.Suggestion,
	}
}

// Mode is a named review category with an associated focus-area set.
type Mode struct {
	Key        string   `json:"key"`
	Name       string   `json:"name"`
	FocusAreas []string `json:"focus_areas"`
}

var modes = map[string]Mode{
	"full": {
		Key:        "full",
		Name:       "Full review",
		FocusAreas: []string{"quality", "security", "performance", "maintainability"},
	},
	"security": {
		Key:        "security",
		Name:       "Security review",
		FocusAreas: []string{"security", "vulnerabilities", "data_protection"},
	},
	"performance": {
		Key:        "performance",
		Name:       "Performance review",
		FocusAreas: []string{"performance", "optimization", "scalability"},
	},
	"quick": {
		Key:        "quick",
		Name:       "Quick review",
		FocusAreas: []string{"basic_quality", "syntax", "conventions"},
	},
}

// LookupMode resolves a mode key. ok is false for unknown keys.
func LookupMode(key string) (Mode, bool) {
	m, ok := modes[key]
	return m, ok
}

// ModeKeys returns the known mode keys in a stable order.
func ModeKeys() []string {
	return []string{"full", "security", "performance", "quick"}
}

// ChangeSet identifies one review request. TaskKey is the optional
// logical-task identifier correlating submissions across commits.
type ChangeSet struct {
	Project      string `json:"project"`
	SourceBranch string `json:"source_branch"`
	TargetBranch string `json:"target_branch"`
	SourceCommit string `json:"source_commit,omitempty"`
	Mode         string `json:"mode"`
	TaskKey      string `json:"task_key,omitempty"`
}

// Statistics summarizes what a review covered.
type Statistics struct {
	FilesAnalyzed int `json:"files_analyzed"`
	FilesExcluded int `json:"files_excluded"`
	Additions     int `json:"additions"`
	Deletions     int `json:"deletions"`
}

// ReviewResult is the aggregated outcome of one orchestration run.
type ReviewResult struct {
	ReviewID        string     `json:"review_id"`
	Project         string     `json:"project"`
	Mode            string     `json:"mode"`
	Score           float64    `json:"score"`
	Summary         string     `json:"summary"`
	Findings        []Finding  `json:"findings"`
	Suggestions     []string   `json:"suggestions"`
	Recommendations []string   `json:"recommendations"`
	FailedFiles     []string   `json:"failed_files,omitempty"`
	Stats           Statistics `json:"statistics"`
	Model           string     `json:"model,omitempty"`
	EstimatedCost   float64    `json:"estimated_cost"`
	FromCache       bool       `json:"from_cache"`
	CreatedAt       time.Time  `json:"created_at"`
}

// SeverityCounts holds finding counts by severity level.
type SeverityCounts struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// CountSeverities tallies findings by severity. Unknown severities count as low.
func CountSeverities(findings []Finding) SeverityCounts {
	var c SeverityCounts
	for _, f := range findings {
		switch f.Severity {
		case SeverityHigh:
			c.High++
		case SeverityMedium:
			c.Medium++
		default:
			c.Low++
		}
	}
	return c
}
