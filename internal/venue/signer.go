package venue

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Signer produces the opaque request signature headers the venue requires.
// The core never inspects these.
type Signer interface {
	Headers(method, path string) (map[string]string, error)
}

// NoopSigner serves simulated runs and unauthenticated endpoints.
type NoopSigner struct{}

func (NoopSigner) Headers(string, string) (map[string]string, error) {
	return map[string]string{}, nil
}

// RSASigner signs timestamp+method+path with RSA-PSS, the venue's scheme.
type RSASigner struct {
	apiKey string
	key    *rsa.PrivateKey
	now    func() time.Time
}

// NewRSASigner loads a PEM private key from disk.
func NewRSASigner(apiKey, keyPath string) (*RSASigner, error) {
	raw, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, errors.New("private key: no PEM block")
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		if rsaKey, err1 := x509.ParsePKCS1PrivateKey(block.Bytes); err1 == nil {
			return &RSASigner{apiKey: apiKey, key: rsaKey, now: time.Now}, nil
		}
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("private key: not RSA")
	}
	return &RSASigner{apiKey: apiKey, key: rsaKey, now: time.Now}, nil
}

func (s *RSASigner) Headers(method, path string) (map[string]string, error) {
	ts := strconv.FormatInt(s.now().UnixMilli(), 10)
	digest := sha256.Sum256([]byte(ts + method + path))
	sig, err := rsa.SignPSS(rand.Reader, s.key, crypto.SHA256, digest[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
	})
	if err != nil {
		return nil, fmt.Errorf("sign request: %w", err)
	}
	return map[string]string{
		"KALSHI-ACCESS-KEY":       s.apiKey,
		"KALSHI-ACCESS-TIMESTAMP": ts,
		"KALSHI-ACCESS-SIGNATURE": base64.StdEncoding.EncodeToString(sig),
	}, nil
}
