// Package pairing holds the per-device session configuration obtained once
// from the control panel's pairing QR code.
package pairing

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"remote-screen/pkg/codec"
)

// FingerprintSize is the number of SHA-256 bytes shown to the user.
const FingerprintSize = 8

// SessionConfig identifies one paired control panel and the device behind it.
type SessionConfig struct {
	GUID      string `json:"guid"`      // mDNS instance name
	SRPKey    string `json:"srpKey"`    // hex, outer tunnel password
	PublicKey string `json:"publicKey"` // hex, pinned device key
}

var ErrInvalidQR = errors.New("invalid pairing code")

// Parse decodes the pairing QR payload.
func Parse(qr string) (SessionConfig, error) {
	var cfg SessionConfig
	if err := json.Unmarshal([]byte(strings.TrimSpace(qr)), &cfg); err != nil {
		return SessionConfig{}, fmt.Errorf("%w: %v", ErrInvalidQR, err)
	}
	if err := cfg.Validate(); err != nil {
		return SessionConfig{}, err
	}
	cfg.SRPKey = strings.ToLower(cfg.SRPKey)
	cfg.PublicKey = strings.ToLower(cfg.PublicKey)
	return cfg, nil
}

// Validate checks that every field is present and the keys are hex.
func (c SessionConfig) Validate() error {
	switch {
	case c.GUID == "":
		return fmt.Errorf("%w: guid is missing", ErrInvalidQR)
	case c.SRPKey == "":
		return fmt.Errorf("%w: srpKey is missing", ErrInvalidQR)
	case c.PublicKey == "":
		return fmt.Errorf("%w: publicKey is missing", ErrInvalidQR)
	}
	if _, err := codec.HexToBytes(c.SRPKey); err != nil {
		return fmt.Errorf("%w: srpKey: %v", ErrInvalidQR, err)
	}
	if _, err := codec.HexToBytes(c.PublicKey); err != nil {
		return fmt.Errorf("%w: publicKey: %v", ErrInvalidQR, err)
	}
	return nil
}

// SRPPassword returns the outer tunnel password bytes.
func (c SessionConfig) SRPPassword() ([]byte, error) {
	return codec.HexToBytes(c.SRPKey)
}

// Fingerprint returns the short form of the pinned key the user compares
// against the panel's display.
func (c SessionConfig) Fingerprint() (string, error) {
	return Fingerprint(c.PublicKey)
}

// Fingerprint hashes a hex public key and keeps the first FingerprintSize bytes.
func Fingerprint(publicKeyHex string) (string, error) {
	key, err := codec.HexToBytes(publicKeyHex)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(key)
	return codec.BytesToHex(sum[:FingerprintSize]), nil
}

// QR renders the configuration the way the control panel encodes it.
func (c SessionConfig) QR() (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
