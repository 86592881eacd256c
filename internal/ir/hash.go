package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content fingerprints.
// The version suffix leaves room for a future algorithm change.
const (
	DomainDocument = "ijsoniq/document/v1"
	DomainPUL      = "ijsoniq/pul/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator keeps domain and payload boundaries unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint returns the hex SHA-256 of v's canonical encoding under
// the given domain. Equal values always share a fingerprint.
func Fingerprint(domain string, v Value) (string, error) {
	data, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", domain, err)
	}
	return hashWithDomain(domain, data), nil
}

// DocumentFingerprint fingerprints a stored document.
func DocumentFingerprint(doc Object) (string, error) {
	return Fingerprint(DomainDocument, doc)
}
