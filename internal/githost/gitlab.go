package githost

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
	"github.com/rs/zerolog"

	"github.com/gavelhq/gavel/internal/logging"
	"github.com/gavelhq/gavel/internal/model"
)

// GitLab is a DiffProvider backed by the GitLab REST API.
type GitLab struct {
	baseURL string
	token   string
	client  *http.Client
	log     zerolog.Logger
}

// NewGitLab creates a GitLab client. baseURL is the instance root, e.g.
// "https://gitlab.example.com".
func NewGitLab(baseURL, token string) *GitLab {
	return &GitLab{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     logging.Component("githost"),
	}
}

type compareResponse struct {
	Diffs []struct {
		OldPath     string `json:"old_path"`
		NewPath     string `json:"new_path"`
		Diff        string `json:"diff"`
		NewFile     bool   `json:"new_file"`
		DeletedFile bool   `json:"deleted_file"`
		RenamedFile bool   `json:"renamed_file"`
	} `json:"diffs"`
}

// ListChangedFiles compares two refs and returns one FilePatch per changed
// file, with both sides of the content fetched. Missing content (new or
// deleted files, or fetch failures) is left empty.
func (g *GitLab) ListChangedFiles(ctx context.Context, project, baseRef, headRef string) ([]model.FilePatch, error) {
	endpoint := fmt.Sprintf("%s/api/v4/projects/%s/repository/compare?from=%s&to=%s",
		g.baseURL, url.PathEscape(project), url.QueryEscape(baseRef), url.QueryEscape(headRef))

	body, status, err := g.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("comparing %s..%s: %w", baseRef, headRef, err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("comparing %s..%s: status %d: %s", baseRef, headRef, status, truncate(string(body), 200))
	}

	var cmp compareResponse
	if err := json.Unmarshal(body, &cmp); err != nil {
		return nil, fmt.Errorf("decoding compare response: %w", err)
	}

	patches := make([]model.FilePatch, 0, len(cmp.Diffs))
	for _, d := range cmp.Diffs {
		p := model.FilePatch{
			Path:    d.NewPath,
			OldPath: d.OldPath,
			Kind:    editKind(d.NewFile, d.DeletedFile, d.RenamedFile),
			Diff:    d.Diff,
		}
		if d.DeletedFile {
			p.Path = d.OldPath
		}
		p.Additions, p.Deletions = countChangedLines(d.OldPath, d.NewPath, d.Diff)

		if !d.NewFile {
			p.OldContent, _ = g.ReadFile(ctx, project, d.OldPath, baseRef)
		}
		if !d.DeletedFile {
			p.NewContent, _ = g.ReadFile(ctx, project, d.NewPath, headRef)
		}
		patches = append(patches, p)
	}
	return patches, nil
}

// ReadFile fetches a file's raw content at a ref. A missing file returns
// empty content with no error.
func (g *GitLab) ReadFile(ctx context.Context, project, path, ref string) (string, error) {
	endpoint := fmt.Sprintf("%s/api/v4/projects/%s/repository/files/%s/raw?ref=%s",
		g.baseURL, url.PathEscape(project), url.PathEscape(path), url.QueryEscape(ref))

	body, status, err := g.get(ctx, endpoint)
	if err != nil {
		return "", fmt.Errorf("reading %s@%s: %w", path, ref, err)
	}
	switch status {
	case http.StatusOK:
		return string(body), nil
	case http.StatusNotFound:
		return "", nil
	default:
		return "", fmt.Errorf("reading %s@%s: status %d", path, ref, status)
	}
}

type commitResponse struct {
	ID string `json:"id"`
}

// ResolveRef resolves a branch or tag name to its current commit hash.
func (g *GitLab) ResolveRef(ctx context.Context, project, ref string) (string, error) {
	endpoint := fmt.Sprintf("%s/api/v4/projects/%s/repository/commits/%s",
		g.baseURL, url.PathEscape(project), url.PathEscape(ref))

	body, status, err := g.get(ctx, endpoint)
	if err != nil {
		return "", fmt.Errorf("resolving ref %s: %w", ref, err)
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("resolving ref %s: status %d", ref, status)
	}
	var commit commitResponse
	if err := json.Unmarshal(body, &commit); err != nil {
		return "", fmt.Errorf("decoding commit response: %w", err)
	}
	return commit.ID, nil
}

func (g *GitLab) get(ctx context.Context, endpoint string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}
	if g.token != "" {
		req.Header.Set("PRIVATE-TOKEN", g.token)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("reading response: %w", err)
	}
	return body, resp.StatusCode, nil
}

func editKind(newFile, deletedFile, renamedFile bool) model.EditKind {
	switch {
	case newFile:
		return model.EditAdded
	case deletedFile:
		return model.EditDeleted
	case renamedFile:
		return model.EditRenamed
	default:
		return model.EditModified
	}
}

// countChangedLines parses the diff body and tallies added and removed
// lines. The API returns the hunks without the "diff --git" header, so one
// is synthesized for the parser.
func countChangedLines(oldPath, newPath, diff string) (added, removed int) {
	if strings.TrimSpace(diff) == "" {
		return 0, 0
	}
	full := diff
	if !strings.HasPrefix(diff, "diff --git") {
		header := fmt.Sprintf("diff --git a/%s b/%s\n--- a/%s\n+++ b/%s\n", oldPath, newPath, oldPath, newPath)
		full = header + diff
	}
	files, _, err := gitdiff.Parse(strings.NewReader(full))
	if err != nil || len(files) == 0 {
		// Fall back to raw prefix counting.
		for _, line := range strings.Split(diff, "\n") {
			switch {
			case strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++"):
				added++
			case strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---"):
				removed++
			}
		}
		return added, removed
	}
	for _, frag := range files[0].TextFragments {
		for _, line := range frag.Lines {
			switch line.Op {
			case gitdiff.OpAdd:
				added++
			case gitdiff.OpDelete:
				removed++
			}
		}
	}
	return added, removed
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
