// Package githost fetches changed files and file contents from the
// version-control host. The engine consumes it through the DiffProvider
// contract; the concrete client speaks the GitLab REST API.
package githost
