// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

type codedError struct{ code int }

func (e *codedError) Error() string { return fmt.Sprintf("exit code %d", e.code) }
func (e *codedError) ExitCode() int { return e.code }

func TestReport(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantCode   int
		wantOutput string
	}{
		{name: "nil", err: nil, wantCode: 0, wantOutput: ""},
		{name: "plain", err: errors.New("boom"), wantCode: 1, wantOutput: "error: boom\n"},
		{name: "coded", err: &codedError{code: 3}, wantCode: 3, wantOutput: ""},
		{name: "wrapped_coded", err: fmt.Errorf("run: %w", &codedError{code: 2}), wantCode: 2, wantOutput: ""},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			var buffer bytes.Buffer
			code := report(&buffer, test.err)
			if code != test.wantCode {
				t.Errorf("report() code = %d, want %d", code, test.wantCode)
			}
			if buffer.String() != test.wantOutput {
				t.Errorf("report() output = %q, want %q", buffer.String(), test.wantOutput)
			}
		})
	}
}
