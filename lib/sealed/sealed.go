// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"filippo.io/age"
	"filippo.io/age/armor"
)

// Extension marks a token file as age-encrypted.
const Extension = ".age"

// ErrEmptyToken is returned when a token file decodes to nothing but
// whitespace.
var ErrEmptyToken = errors.New("token is empty")

// Keypair is an age x25519 keypair in its text encodings.
type Keypair struct {
	// PrivateKey is in AGE-SECRET-KEY-1... form. It must never be
	// logged or passed on a command line.
	PrivateKey string

	// PublicKey is in age1... form.
	PublicKey string
}

// GenerateKeypair generates a new x25519 keypair.
func GenerateKeypair() (*Keypair, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("generating age keypair: %w", err)
	}
	return &Keypair{
		PrivateKey: identity.String(),
		PublicKey:  identity.Recipient().String(),
	}, nil
}

// IsSealed reports whether path names an age-encrypted file.
func IsSealed(path string) bool {
	return strings.HasSuffix(path, Extension)
}

// Seal encrypts plaintext to each recipient (age1... public keys) and
// returns ASCII-armored ciphertext.
func Seal(plaintext []byte, recipientKeys []string) ([]byte, error) {
	if len(recipientKeys) == 0 {
		return nil, fmt.Errorf("at least one recipient is required")
	}

	recipients := make([]age.Recipient, 0, len(recipientKeys))
	for _, key := range recipientKeys {
		recipient, err := age.ParseX25519Recipient(key)
		if err != nil {
			return nil, fmt.Errorf("parsing recipient key %q: %w", key, err)
		}
		recipients = append(recipients, recipient)
	}

	var ciphertext bytes.Buffer
	armorWriter := armor.NewWriter(&ciphertext)
	writer, err := age.Encrypt(armorWriter, recipients...)
	if err != nil {
		return nil, fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		return nil, fmt.Errorf("writing plaintext to age encryptor: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalizing age encryption: %w", err)
	}
	if err := armorWriter.Close(); err != nil {
		return nil, fmt.Errorf("finalizing armor: %w", err)
	}
	return ciphertext.Bytes(), nil
}

// Open decrypts ciphertext (binary or armored) with identities.
func Open(ciphertext []byte, identities []age.Identity) ([]byte, error) {
	var source io.Reader = bytes.NewReader(ciphertext)
	if bytes.HasPrefix(bytes.TrimSpace(ciphertext), []byte(armor.Header)) {
		source = armor.NewReader(bytes.NewReader(bytes.TrimSpace(ciphertext)))
	}

	reader, err := age.Decrypt(source, identities...)
	if err != nil {
		return nil, fmt.Errorf("decrypting: %w", err)
	}
	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading decrypted plaintext: %w", err)
	}
	return plaintext, nil
}

// ReadIdentities parses an age identity file. Comment and blank lines
// are skipped.
func ReadIdentities(path string) ([]age.Identity, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening identity file: %w", err)
	}
	defer file.Close()

	identities, err := age.ParseIdentities(bufio.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("parsing identity file %s: %w", path, err)
	}
	return identities, nil
}

// ReadToken returns the trimmed token stored at path. Sealed files
// (see [IsSealed]) are decrypted with identityFile, which is then
// required.
func ReadToken(path, identityFile string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading token: %w", err)
	}

	if IsSealed(path) {
		if identityFile == "" {
			return "", fmt.Errorf("token %s is sealed but no identity file is configured", path)
		}
		identities, err := ReadIdentities(identityFile)
		if err != nil {
			return "", err
		}
		content, err = Open(content, identities)
		if err != nil {
			return "", fmt.Errorf("opening token %s: %w", path, err)
		}
	}

	token := strings.TrimSpace(string(content))
	if token == "" {
		return "", fmt.Errorf("%s: %w", path, ErrEmptyToken)
	}
	return token, nil
}
