// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds fmtbot's CBOR encoding configuration.
//
// JSON is the format for everything a person or another tool reads:
// pipeline definitions, GitHub API bodies, CLI output and the default
// JSONL result log. CBOR is used for the compact result log (a CBOR
// sequence, RFC 8742) selected by a .cbor path. Both formats share the
// same struct types: fxamacker/cbor reads `json` tags when no `cbor`
// tag is present, so result entries carry `json` tags only.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2), so the
// same entry always produces the same bytes.
//
//	encoder := codec.NewEncoder(file)
//	err := encoder.Encode(entry)
//
//	decoder := codec.NewDecoder(file)
//	err = decoder.Decode(&entry)
package codec
