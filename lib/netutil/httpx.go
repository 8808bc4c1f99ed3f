// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides bounded HTTP body reads.
//
// ReadResponse and ErrorBody cap reads at MaxResponseSize; ReadRequest
// caps inbound request bodies (webhook payloads) at a caller-chosen
// limit and reports overflow instead of silently truncating.
package netutil

import (
	"errors"
	"fmt"
	"io"
)

// MaxResponseSize is the bound on JSON API response body reads: 32 MB.
// It only guards against a pathological response exhausting memory.
const MaxResponseSize int64 = 32 << 20

// ErrBodyTooLarge is returned by ReadRequest when the body exceeds the
// limit.
var ErrBodyTooLarge = errors.New("request body too large")

// ReadResponse reads an API response body up to MaxResponseSize bytes.
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}

// ErrorBody reads an error response body for a diagnostic message.
// Read errors are ignored: a partial body is still useful.
func ErrorBody(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, MaxResponseSize))
	return string(data)
}

// ReadRequest reads at most limit bytes of body. A body longer than
// limit returns ErrBodyTooLarge.
func ReadRequest(body io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("reading request body: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, ErrBodyTooLarge
	}
	return data, nil
}
