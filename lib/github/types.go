// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import "time"

// Blob is a created git blob. Only the SHA is used.
type Blob struct {
	SHA string `json:"sha"`
	URL string `json:"url"`
}

// Tree is a GitHub git tree object.
type Tree struct {
	SHA       string      `json:"sha"`
	Truncated bool        `json:"truncated"`
	Entries   []TreeEntry `json:"tree"`
}

// TreeEntry is a single entry in a git tree.
type TreeEntry struct {
	Path string `json:"path"`
	Mode string `json:"mode"` // "100644", "100755", "120000", "160000", "040000"
	Type string `json:"type"` // "blob", "tree", "commit"
	SHA  string `json:"sha"`
	Size int64  `json:"size,omitempty"`
}

// Commit is a GitHub git commit object.
type Commit struct {
	SHA       string       `json:"sha"`
	Message   string       `json:"message"`
	Tree      CommitTree   `json:"tree"`
	Parents   []CommitRef  `json:"parents"`
	HTMLURL   string       `json:"html_url"`
	Author    CommitAuthor `json:"author"`
	Committer CommitAuthor `json:"committer"`
}

// CommitTree is a reference to the tree in a commit.
type CommitTree struct {
	SHA string `json:"sha"`
}

// CommitRef is a reference to a parent commit.
type CommitRef struct {
	SHA string `json:"sha"`
}

// CommitAuthor is the author/committer metadata on a commit.
type CommitAuthor struct {
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Date  time.Time `json:"date,omitzero"`
}

// Ref is a GitHub git reference (branch or tag).
type Ref struct {
	Ref    string    `json:"ref"` // "refs/heads/main"
	Object RefObject `json:"object"`
}

// RefObject is the object a ref points to.
type RefObject struct {
	SHA  string `json:"sha"`
	Type string `json:"type"` // "commit"
}
