// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCreateTreeEntryMarshal(t *testing.T) {
	tests := []struct {
		name  string
		entry CreateTreeEntry
		want  string
	}{
		{
			name:  "modified file",
			entry: CreateTreeEntry{Path: "src/lib.rs", SHA: "b10b"},
			want:  `{"path":"src/lib.rs","mode":"100644","type":"blob","sha":"b10b"}`,
		},
		{
			name:  "executable",
			entry: CreateTreeEntry{Path: "build.sh", Mode: ModeExecutable, SHA: "e4ec"},
			want:  `{"path":"build.sh","mode":"100755","type":"blob","sha":"e4ec"}`,
		},
		{
			name:  "deletion",
			entry: CreateTreeEntry{Path: "old.rs", Delete: true},
			want:  `{"path":"old.rs","mode":"100644","type":"blob","sha":null}`,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := json.Marshal(test.entry)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			if string(got) != test.want {
				t.Errorf("Marshal = %s, want %s", got, test.want)
			}
		})
	}
}

func TestCreateBlobEncoding(t *testing.T) {
	content := []byte{0xff, 0x00, 'f', 'n'}
	var received struct {
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}
	server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.Method != http.MethodPost || request.URL.Path != "/repos/owner/repo/git/blobs" {
			t.Errorf("request = %s %s", request.Method, request.URL.Path)
		}
		body, _ := io.ReadAll(request.Body)
		json.Unmarshal(body, &received)
		writer.WriteHeader(http.StatusCreated)
		writer.Write([]byte(`{"sha":"b10b"}`))
	}))
	defer server.Close()

	if _, err := newTestClient(t, server).CreateBlob(context.Background(), "owner", "repo", content); err != nil {
		t.Fatalf("CreateBlob: %v", err)
	}
	decoded, err := base64.StdEncoding.DecodeString(received.Content)
	if err != nil || string(decoded) != string(content) || received.Encoding != "base64" {
		t.Errorf("received %+v, want base64 of %q", received, content)
	}
}

func TestUpdateRefPath(t *testing.T) {
	var receivedPath string
	var received struct {
		SHA   string `json:"sha"`
		Force bool   `json:"force"`
	}
	server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		receivedPath = request.URL.EscapedPath()
		body, _ := io.ReadAll(request.Body)
		json.Unmarshal(body, &received)
		writer.Write([]byte(`{"ref":"refs/heads/feature/x","object":{"sha":"c0ffee","type":"commit"}}`))
	}))
	defer server.Close()

	ref, err := newTestClient(t, server).UpdateRef(context.Background(), "owner", "repo", "heads/feature/x", "c0ffee", false)
	if err != nil {
		t.Fatalf("UpdateRef: %v", err)
	}
	if receivedPath != "/repos/owner/repo/git/refs/heads/feature/x" {
		t.Errorf("path = %q", receivedPath)
	}
	if received.SHA != "c0ffee" || received.Force {
		t.Errorf("body = %+v, want non-forced update to c0ffee", received)
	}
	if ref.Object.SHA != "c0ffee" {
		t.Errorf("ref = %+v", ref)
	}
}

func TestSplitFullName(t *testing.T) {
	owner, repo, err := SplitFullName("bureau-foundation/fmtbot")
	if err != nil || owner != "bureau-foundation" || repo != "fmtbot" {
		t.Errorf("SplitFullName = %q, %q, %v", owner, repo, err)
	}
	for _, bad := range []string{"", "noslash", "/repo", "owner/", "a/b/c"} {
		if _, _, err := SplitFullName(bad); err == nil {
			t.Errorf("SplitFullName(%q) succeeded", bad)
		}
	}
}
