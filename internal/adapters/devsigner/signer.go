// Package devsigner holds per-device ed25519 keys in memory and signs challenges
// with them. It stands in for the secure enclave in dev mode.
package devsigner

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownDevice is returned by Sign for a device without a key.
var ErrUnknownDevice = errors.New("no key for device")

// Signer implements ports.DeviceSigner.
type Signer struct {
	mu   sync.Mutex
	keys map[string]ed25519.PrivateKey
}

func New() *Signer {
	return &Signer{keys: make(map[string]ed25519.PrivateKey)}
}

// PublicKey returns the base64 public key of deviceID, generating a key pair on first use.
func (s *Signer) PublicKey(deviceID string) (string, error) {
	if deviceID == "" {
		return "", errors.New("device id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	priv, ok := s.keys[deviceID]
	if !ok {
		_, generated, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return "", fmt.Errorf("generate key: %w", err)
		}
		priv = generated
		s.keys[deviceID] = priv
	}
	pub, _ := priv.Public().(ed25519.PublicKey)
	return base64.StdEncoding.EncodeToString(pub), nil
}

// Sign signs challenge with the key of deviceID.
func (s *Signer) Sign(_ context.Context, deviceID, challenge string) (string, error) {
	s.mu.Lock()
	priv, ok := s.keys[deviceID]
	s.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("device %s: %w", deviceID, ErrUnknownDevice)
	}
	return base64.StdEncoding.EncodeToString(ed25519.Sign(priv, []byte(challenge))), nil
}

// Forget drops the key of deviceID.
func (s *Signer) Forget(deviceID string) {
	s.mu.Lock()
	delete(s.keys, deviceID)
	s.mu.Unlock()
}
