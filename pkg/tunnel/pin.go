package tunnel

import (
	"crypto/x509"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"

	"remote-screen/pkg/errno"
)

// PublicKeyBytes returns the pinned form of a certificate key: the DER
// encoding of the SubjectPublicKeyInfo BIT STRING without its first 4 bytes
// (tag, length, unused-bits and the point format byte for EC keys).
func PublicKeyBytes(cert *x509.Certificate) ([]byte, error) {
	input := cryptobyte.String(cert.RawSubjectPublicKeyInfo)
	var spki, bitString cryptobyte.String
	if !input.ReadASN1(&spki, asn1.SEQUENCE) ||
		!spki.SkipASN1(asn1.SEQUENCE) ||
		!spki.ReadASN1Element(&bitString, asn1.BIT_STRING) {
		return nil, errors.New("tunnel: malformed subject public key info")
	}
	if len(bitString) <= 4 {
		return nil, errors.New("tunnel: public key too short")
	}
	return bitString[4:], nil
}

// PinnedKey returns PublicKeyBytes as lowercase hex.
func PinnedKey(cert *x509.Certificate) (string, error) {
	key, err := PublicKeyBytes(cert)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(key), nil
}

// VerifyPinnedKey fails with errno.ErrInvalidPeerCertificate unless the
// certificate carries the pinned key.
func VerifyPinnedKey(cert *x509.Certificate, pinned string) error {
	got, err := PinnedKey(cert)
	if err != nil {
		return fmt.Errorf("%w: %v", errno.ErrInvalidPeerCertificate, err)
	}
	if got != strings.ToLower(pinned) {
		return errno.ErrInvalidPeerCertificate
	}
	return nil
}
