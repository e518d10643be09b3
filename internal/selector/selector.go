package selector

import (
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"

	"github.com/gavelhq/gavel/internal/logging"
	"github.com/gavelhq/gavel/internal/model"
)

// DefaultMaxFiles bounds how many files one review analyzes.
const DefaultMaxFiles = 50

// DefaultIgnoreGlobs match build artifacts, vendor trees, caches, and
// lockfiles that never belong in a review.
func DefaultIgnoreGlobs() []string {
	return []string{
		"**/node_modules/**",
		"**/dist/**",
		"**/build/**",
		"**/target/**",
		"**/out/**",
		"**/venv/**",
		"**/.venv/**",
		"**/__pycache__/**",
		"**/site-packages/**",
		"**/.git/**",
		"**/.idea/**",
		"**/.vscode/**",
		"**/coverage/**",
		"**/vendor/**",
		"**/*.min.js",
		"**/*.min.css",
		"**/*.lock",
		"**/*.log",
		"**/*.tmp",
		"**/*.cache",
	}
}

// DefaultPriorities is the per-extension importance table. Zero means the
// extension is excluded entirely under smart filtering.
func DefaultPriorities() map[string]int {
	return map[string]int{
		".py": 10, ".js": 10, ".ts": 10, ".java": 10, ".go": 10, ".rs": 10,
		".cpp": 9, ".c": 9, ".cs": 9, ".php": 9, ".rb": 9,
		".yaml": 7, ".yml": 7, ".json": 7, ".xml": 6, ".html": 6,
		".css": 5, ".scss": 5, ".less": 5,
		".md": 3, ".txt": 2, ".rst": 2,
		".png": 1, ".jpg": 1, ".gif": 1, ".svg": 1,
		".lock": 0, ".log": 0, ".tmp": 0, ".cache": 0,
	}
}

// unknownExtensionPriority applies when the extension is not in the table.
const unknownExtensionPriority = 5

// Options configure a Selector.
type Options struct {
	IgnoreGlobs    []string
	Priorities     map[string]int
	MaxFiles       int
	SmartFiltering bool
	CostCeiling    float64
	Model          string

	// CostFn overrides per-file cost estimation; nil uses the model price
	// table with chars/4 token estimation.
	CostFn func(f model.FilePatch) float64
}

// Selector applies the budget-constrained file selection policy.
type Selector struct {
	opts Options
	log  zerolog.Logger
}

// New creates a Selector, filling unset options with defaults.
func New(opts Options) *Selector {
	if opts.IgnoreGlobs == nil {
		opts.IgnoreGlobs = DefaultIgnoreGlobs()
	}
	if opts.Priorities == nil {
		opts.Priorities = DefaultPriorities()
	}
	if opts.MaxFiles <= 0 {
		opts.MaxFiles = DefaultMaxFiles
	}
	if opts.CostFn == nil {
		modelName := opts.Model
		opts.CostFn = func(f model.FilePatch) float64 {
			return EstimateCost(modelName, EstimateTokens(f.Diff+f.NewContent))
		}
	}
	return &Selector{opts: opts, log: logging.Component("selector")}
}

// Select returns the ordered subset of files to analyze and the count of
// files excluded.
func (s *Selector) Select(files []model.FilePatch) ([]model.FilePatch, int) {
	total := len(files)

	kept := files[:0:0]
	for _, f := range files {
		if s.ignored(f.Path) {
			continue
		}
		kept = append(kept, f)
	}

	var selected []model.FilePatch
	if s.opts.SmartFiltering {
		selected = s.smartSelect(kept)
	} else {
		selected = kept
	}

	if len(selected) > s.opts.MaxFiles {
		selected = selected[:s.opts.MaxFiles]
	}

	excluded := total - len(selected)
	if excluded > 0 {
		s.log.Info().Int("selected", len(selected)).Int("excluded", excluded).Msg("file selection applied")
	}
	return selected, excluded
}

func (s *Selector) smartSelect(files []model.FilePatch) []model.FilePatch {
	type ranked struct {
		file     model.FilePatch
		priority int
	}

	var candidates []ranked
	for _, f := range files {
		p := s.priority(f)
		if p <= 0 {
			continue
		}
		candidates = append(candidates, ranked{file: f, priority: p})
	}

	// Stable sort keeps original order on priority ties.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].priority > candidates[j].priority
	})

	var selected []model.FilePatch
	var spent float64
	for _, c := range candidates {
		if s.opts.CostCeiling > 0 {
			cost := s.opts.CostFn(c.file)
			if spent+cost > s.opts.CostCeiling {
				// Greedy cutoff: everything after the first overflow
				// is excluded, even if a later file would fit.
				break
			}
			spent += cost
		}
		selected = append(selected, c.file)
	}
	return selected
}

// priority computes the extension base priority plus a change-size bonus.
func (s *Selector) priority(f model.FilePatch) int {
	ext := strings.ToLower(path.Ext(f.Path))
	base, ok := s.opts.Priorities[ext]
	if !ok {
		base = unknownExtensionPriority
	}
	if base <= 0 {
		return 0
	}
	switch changed := f.ChangedLines(); {
	case changed > 100:
		base += 2
	case changed > 50:
		base++
	}
	return base
}

func (s *Selector) ignored(filePath string) bool {
	normalized := path.Clean(strings.ReplaceAll(filePath, "\\", "/"))
	for _, pattern := range s.opts.IgnoreGlobs {
		if ok, err := doublestar.Match(pattern, normalized); err == nil && ok {
			return true
		}
	}
	return false
}
