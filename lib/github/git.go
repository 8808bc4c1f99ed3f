// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Tree entry modes accepted by CreateTree.
const (
	ModeFile       = "100644"
	ModeExecutable = "100755"
	ModeSymlink    = "120000"
)

// CreateTreeRequest contains the fields for creating a git tree via
// the GitHub API. This is the first step of the API-mediated commit
// path: blobs → tree → commit → ref update.
type CreateTreeRequest struct {
	// BaseTree is the SHA of the tree the entries are applied to.
	// Paths not named in Entries keep their base content.
	BaseTree string `json:"base_tree,omitempty"`

	// Entries are the tree entries to create, modify or delete.
	Entries []CreateTreeEntry `json:"tree"`
}

// CreateTreeEntry describes a single entry in a tree creation request.
type CreateTreeEntry struct {
	// Path is the file path relative to the repository root.
	Path string

	// Mode is the file mode: ModeFile, ModeExecutable or ModeSymlink.
	Mode string

	// SHA is the blob for the new content, typically from CreateBlob.
	SHA string

	// Delete removes Path from the base tree. GitHub expresses
	// deletion as an entry whose sha is JSON null, which cannot be
	// produced with omitempty tags, hence the custom marshaler.
	Delete bool
}

// MarshalJSON encodes the entry in GitHub's wire format.
func (entry CreateTreeEntry) MarshalJSON() ([]byte, error) {
	mode := entry.Mode
	if mode == "" {
		mode = ModeFile
	}
	wire := struct {
		Path string  `json:"path"`
		Mode string  `json:"mode"`
		Type string  `json:"type"`
		SHA  *string `json:"sha"`
	}{Path: entry.Path, Mode: mode, Type: "blob"}
	if !entry.Delete {
		sha := entry.SHA
		wire.SHA = &sha
	}
	return json.Marshal(wire)
}

// CreateCommitRequest contains the fields for creating a git commit
// via the GitHub API.
type CreateCommitRequest struct {
	Message string   `json:"message"`
	Tree    string   `json:"tree"`
	Parents []string `json:"parents"`

	// Author and Committer default to the token's user when nil.
	Author    *CommitAuthor `json:"author,omitempty"`
	Committer *CommitAuthor `json:"committer,omitempty"`
}

// GetCommit returns a git commit object by SHA.
func (client *Client) GetCommit(ctx context.Context, owner, repo, sha string) (*Commit, error) {
	var commit Commit
	path := fmt.Sprintf("/repos/%s/%s/git/commits/%s", owner, repo, url.PathEscape(sha))
	if err := client.get(ctx, path, &commit); err != nil {
		return nil, fmt.Errorf("getting commit %s in %s/%s: %w", sha, owner, repo, err)
	}
	return &commit, nil
}

// CreateBlob uploads content as a base64-encoded blob, so binary and
// non-UTF-8 files round-trip unchanged.
func (client *Client) CreateBlob(ctx context.Context, owner, repo string, content []byte) (*Blob, error) {
	var blob Blob
	request := struct {
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}{Content: base64.StdEncoding.EncodeToString(content), Encoding: "base64"}

	path := fmt.Sprintf("/repos/%s/%s/git/blobs", owner, repo)
	if err := client.post(ctx, path, request, &blob); err != nil {
		return nil, fmt.Errorf("creating blob in %s/%s: %w", owner, repo, err)
	}
	return &blob, nil
}

// CreateTree creates a git tree object in a repository.
func (client *Client) CreateTree(ctx context.Context, owner, repo string, request CreateTreeRequest) (*Tree, error) {
	var tree Tree
	path := fmt.Sprintf("/repos/%s/%s/git/trees", owner, repo)
	if err := client.post(ctx, path, request, &tree); err != nil {
		return nil, fmt.Errorf("creating tree in %s/%s: %w", owner, repo, err)
	}
	return &tree, nil
}

// CreateCommit creates a git commit object in a repository.
func (client *Client) CreateCommit(ctx context.Context, owner, repo string, request CreateCommitRequest) (*Commit, error) {
	var commit Commit
	path := fmt.Sprintf("/repos/%s/%s/git/commits", owner, repo)
	if err := client.post(ctx, path, request, &commit); err != nil {
		return nil, fmt.Errorf("creating commit in %s/%s: %w", owner, repo, err)
	}
	return &commit, nil
}

// UpdateRef updates a git reference (branch) to point to a new commit.
// The ref is given without the "refs/" prefix (e.g. "heads/main");
// slashes inside it are path separators in the endpoint URL, so only
// the individual segments are escaped.
func (client *Client) UpdateRef(ctx context.Context, owner, repo, ref, sha string, force bool) (*Ref, error) {
	var result Ref
	request := struct {
		SHA   string `json:"sha"`
		Force bool   `json:"force"`
	}{SHA: sha, Force: force}

	path := fmt.Sprintf("/repos/%s/%s/git/refs/%s", owner, repo, escapeRef(ref))
	if err := client.patch(ctx, path, request, &result); err != nil {
		return nil, fmt.Errorf("updating ref %s in %s/%s: %w", ref, owner, repo, err)
	}
	return &result, nil
}

func escapeRef(ref string) string {
	segments := strings.Split(ref, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}

// SplitFullName splits "owner/repo" into its parts.
func SplitFullName(fullName string) (owner, repo string, err error) {
	owner, repo, ok := strings.Cut(fullName, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("github: repository %q is not in owner/repo form", fullName)
	}
	return owner, repo, nil
}
