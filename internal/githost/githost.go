package githost

import (
	"context"

	"github.com/gavelhq/gavel/internal/model"
)

// DiffProvider is the narrow contract the engine consumes. Implementations
// must tolerate missing files (new or deleted) by returning empty content
// rather than erroring.
type DiffProvider interface {
	ListChangedFiles(ctx context.Context, project, baseRef, headRef string) ([]model.FilePatch, error)
	ReadFile(ctx context.Context, project, path, ref string) (string, error)
	ResolveRef(ctx context.Context, project, ref string) (string, error)
}
