// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package git

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Identity is a commit author/committer. It is always passed
// explicitly; fmtbot never relies on user.name/user.email from the
// ambient git configuration.
type Identity struct {
	Name  string `json:"name" yaml:"name"`
	Email string `json:"email" yaml:"email"`
}

// String returns the identity in "Name <email>" form, as accepted by
// git commit --author.
func (identity Identity) String() string {
	return fmt.Sprintf("%s <%s>", identity.Name, identity.Email)
}

// Validate checks that both fields are present and that neither
// contains characters git would reject or misparse.
func (identity Identity) Validate() error {
	if strings.TrimSpace(identity.Name) == "" {
		return fmt.Errorf("identity name is required")
	}
	if strings.TrimSpace(identity.Email) == "" {
		return fmt.Errorf("identity email is required")
	}
	if strings.ContainsAny(identity.Name, "<>\n") || strings.ContainsAny(identity.Email, "<>\n ") {
		return fmt.Errorf("identity %q contains invalid characters", identity.String())
	}
	return nil
}

// Environment returns the GIT_AUTHOR_* and GIT_COMMITTER_* variables
// that make git attribute a commit to this identity.
func (identity Identity) Environment() []string {
	return []string{
		"GIT_AUTHOR_NAME=" + identity.Name,
		"GIT_AUTHOR_EMAIL=" + identity.Email,
		"GIT_COMMITTER_NAME=" + identity.Name,
		"GIT_COMMITTER_EMAIL=" + identity.Email,
	}
}

// AuthEnvironment returns environment variables that make git send
// token as HTTP basic credentials (user x-access-token, the convention
// GitHub uses for App and fine-grained tokens). The header is injected
// through GIT_CONFIG_COUNT/KEY/VALUE so the token never appears in a
// process argument list. Returns nil for an empty token.
func AuthEnvironment(token string) []string {
	if token == "" {
		return nil
	}
	credentials := base64.StdEncoding.EncodeToString([]byte("x-access-token:" + token))
	return []string{
		"GIT_CONFIG_COUNT=1",
		"GIT_CONFIG_KEY_0=http.extraheader",
		"GIT_CONFIG_VALUE_0=AUTHORIZATION: basic " + credentials,
	}
}
