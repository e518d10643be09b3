package githost

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gavelhq/gavel/internal/model"
)

const sampleDiff = "@@ -1,3 +1,4 @@\n package main\n+import \"fmt\"\n \n-func old() {}\n+func new() {}\n"

func newTestGitLab(t *testing.T, handler http.HandlerFunc) *GitLab {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewGitLab(srv.URL, "test-token")
}

func TestGitLab_ListChangedFiles(t *testing.T) {
	g := newTestGitLab(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-token", r.Header.Get("PRIVATE-TOKEN"))
		switch {
		case strings.Contains(r.URL.Path, "/repository/compare"):
			w.Write([]byte(`{"diffs":[
				{"old_path":"main.go","new_path":"main.go","diff":"@@ -1,3 +1,4 @@\n package main\n+import \"fmt\"\n \n-func old() {}\n+func new() {}\n","new_file":false,"deleted_file":false,"renamed_file":false},
				{"old_path":"new.go","new_path":"new.go","diff":"@@ -0,0 +1,1 @@\n+package main\n","new_file":true,"deleted_file":false,"renamed_file":false}
			]}`))
		case strings.Contains(r.URL.Path, "/repository/files/"):
			w.Write([]byte("package main\n"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	files, err := g.ListChangedFiles(context.Background(), "group/proj", "main", "feature")
	require.NoError(t, err)
	require.Len(t, files, 2)

	assert.Equal(t, "main.go", files[0].Path)
	assert.Equal(t, model.EditModified, files[0].Kind)
	assert.Equal(t, 2, files[0].Additions)
	assert.Equal(t, 1, files[0].Deletions)
	assert.Equal(t, "package main\n", files[0].NewContent)
	assert.Equal(t, "package main\n", files[0].OldContent)

	assert.Equal(t, model.EditAdded, files[1].Kind)
	assert.Empty(t, files[1].OldContent)
}

func TestGitLab_ReadFileMissingReturnsEmpty(t *testing.T) {
	g := newTestGitLab(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	content, err := g.ReadFile(context.Background(), "group/proj", "gone.go", "main")
	require.NoError(t, err)
	assert.Empty(t, content)
}

func TestGitLab_ResolveRef(t *testing.T) {
	g := newTestGitLab(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/repository/commits/")
		w.Write([]byte(`{"id":"abc123def456"}`))
	})

	sha, err := g.ResolveRef(context.Background(), "group/proj", "feature")
	require.NoError(t, err)
	assert.Equal(t, "abc123def456", sha)
}

func TestGitLab_CompareErrorSurfaces(t *testing.T) {
	g := newTestGitLab(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("insufficient scope"))
	})

	_, err := g.ListChangedFiles(context.Background(), "group/proj", "main", "feature")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestCountChangedLines(t *testing.T) {
	added, removed := countChangedLines("main.go", "main.go", sampleDiff)
	assert.Equal(t, 2, added)
	assert.Equal(t, 1, removed)

	added, removed = countChangedLines("a", "b", "")
	assert.Zero(t, added)
	assert.Zero(t, removed)
}

func TestEditKind(t *testing.T) {
	assert.Equal(t, model.EditAdded, editKind(true, false, false))
	assert.Equal(t, model.EditDeleted, editKind(false, true, false))
	assert.Equal(t, model.EditRenamed, editKind(false, false, true))
	assert.Equal(t, model.EditModified, editKind(false, false, false))
}
