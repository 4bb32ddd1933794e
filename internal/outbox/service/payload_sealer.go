// Package service provides infrastructure services used by the outbox use cases.
package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"gocloud.dev/secrets"

	// Register all KMS provider drivers
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// sealedKey is the single member of a sealed payload document.
const sealedKey = "$sealed"

// Keeper is the subset of *secrets.Keeper used for sealing.
type Keeper interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}

// PayloadSealer encrypts envelope payloads at rest. A sealed payload is still a JSON
// document, {"$sealed":"<base64 ciphertext>"}, so ledger validation keeps working.
type PayloadSealer struct {
	keeper Keeper
}

// NewPayloadSealer creates a PayloadSealer over an open keeper.
func NewPayloadSealer(keeper Keeper) *PayloadSealer {
	return &PayloadSealer{keeper: keeper}
}

// OpenPayloadSealer opens a keeper for keyURI and wraps it.
// Supports: gcpkms://, awskms://, azurekeyvault://, hashivault://, base64key://
func OpenPayloadSealer(ctx context.Context, keyURI string) (*PayloadSealer, error) {
	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	return NewPayloadSealer(keeper), nil
}

type sealedDocument struct {
	Sealed string `json:"$sealed"`
}

// Seal encrypts payload. Every payload is encrypted, including one that already has the
// sealed document shape, so Open always reverses Seal.
func (s *PayloadSealer) Seal(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	ciphertext, err := s.keeper.Encrypt(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to seal payload: %w", err)
	}

	sealed, err := json.Marshal(sealedDocument{Sealed: base64.StdEncoding.EncodeToString(ciphertext)})
	if err != nil {
		return nil, fmt.Errorf("failed to encode sealed payload: %w", err)
	}
	return sealed, nil
}

// Open decrypts a sealed payload. Plain payloads, such as rows written before sealing
// was enabled, are returned unchanged.
func (s *PayloadSealer) Open(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	doc, ok := decodeSealed(payload)
	if !ok {
		return payload, nil
	}

	ciphertext, err := base64.StdEncoding.DecodeString(doc.Sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to decode sealed payload: %w", err)
	}

	plaintext, err := s.keeper.Decrypt(ctx, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("failed to open payload: %w", err)
	}
	return plaintext, nil
}

// Close releases the keeper.
func (s *PayloadSealer) Close() error {
	return s.keeper.Close()
}

func decodeSealed(payload json.RawMessage) (sealedDocument, bool) {
	var doc sealedDocument
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return doc, false
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil || len(fields) != 1 {
		return doc, false
	}
	raw, ok := fields[sealedKey]
	if !ok {
		return doc, false
	}
	if err := json.Unmarshal(raw, &doc.Sealed); err != nil {
		return doc, false
	}
	return doc, true
}
