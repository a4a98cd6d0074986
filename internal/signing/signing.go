// Package signing implements one-time-key contract signatures: every Sign call
// generates a fresh RSA keypair, signs with RSASSA-PKCS1-v1_5/SHA-256, publishes
// only the public half under a new version in info/{uid} and drops the private key.
package signing

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"blocknex-supply-api-server/internal/models"
	"blocknex-supply-api-server/internal/store"
)

const DefaultKeyBits = 2048

var (
	ErrKeyNotFound = errors.New("signing: no public key registered for user")
	ErrBadKey      = errors.New("signing: malformed public key")
)

// Signer is what the contract protocol needs from key management.
type Signer interface {
	Sign(ctx context.Context, uid string, message []byte) (models.SignaturePayload, error)
	Verify(ctx context.Context, uid, keyVersion string, message []byte, signature string) (Verification, error)
}

// Verification reports which registered key, if any, verified a signature.
type Verification struct {
	Valid            bool   `json:"valid"`
	RequestedVersion string `json:"requestedVersion"`
	MatchedVersion   string `json:"matchedVersion,omitempty"`
	Legacy           bool   `json:"legacy,omitempty"`
}

// Exact is true only when the key registered under the requested version verified.
// Any other successful match is a fallback and weaker evidence.
func (v Verification) Exact() bool {
	return v.Valid && !v.Legacy && v.MatchedVersion == v.RequestedVersion
}

type Service struct {
	store store.Store
	bits  int
	now   func() time.Time

	mu   sync.Mutex
	last int64
}

type Option func(*Service)

func WithKeyBits(bits int) Option { return func(s *Service) { s.bits = bits } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(st store.Store, opts ...Option) *Service {
	s := &Service{store: st, bits: DefaultKeyBits, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Sign(ctx context.Context, uid string, message []byte) (models.SignaturePayload, error) {
	key, err := rsa.GenerateKey(rand.Reader, s.bits)
	if err != nil {
		return models.SignaturePayload{}, fmt.Errorf("failed to generate signing key: %w", err)
	}
	digest := sha256.Sum256(message)
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	if err != nil {
		return models.SignaturePayload{}, fmt.Errorf("failed to sign: %w", err)
	}
	pub, err := EncodePublicKey(&key.PublicKey)
	if err != nil {
		return models.SignaturePayload{}, err
	}

	version := s.nextVersion()
	err = s.store.Merge(ctx, models.ProfilesCollection, uid, map[string]interface{}{
		"publicKeys." + version: pub,
		"currentKeyVersion":     version,
	})
	if err != nil {
		return models.SignaturePayload{}, fmt.Errorf("failed to publish public key: %w", err)
	}

	return models.SignaturePayload{
		KeyVersion: version,
		Signature:  base64.StdEncoding.EncodeToString(sig),
	}, nil
}

// nextVersion is a millisecond timestamp, bumped so two keys never share a version.
func (s *Service) nextVersion() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.now().UnixMilli()
	if v <= s.last {
		v = s.last + 1
	}
	s.last = v
	return strconv.FormatInt(v, 10)
}

type candidate struct {
	version string
	pem     string
	legacy  bool
}

// candidates orders keys: exact version, current pointer, remaining versions
// newest first, then the legacy unversioned slot.
func candidates(p models.Profile, version string) []candidate {
	var out []candidate
	seen := make(map[string]bool)
	add := func(v string) {
		if v == "" || seen[v] {
			return
		}
		if pemKey, ok := p.PublicKeys[v]; ok {
			seen[v] = true
			out = append(out, candidate{version: v, pem: pemKey})
		}
	}
	add(version)
	add(p.CurrentKeyVersion)

	rest := make([]string, 0, len(p.PublicKeys))
	for v := range p.PublicKeys {
		rest = append(rest, v)
	}
	sort.Slice(rest, func(i, j int) bool {
		a, errA := strconv.ParseInt(rest[i], 10, 64)
		b, errB := strconv.ParseInt(rest[j], 10, 64)
		if errA == nil && errB == nil {
			return a > b
		}
		return rest[i] > rest[j]
	})
	for _, v := range rest {
		add(v)
	}

	if p.PublicKey != "" {
		out = append(out, candidate{pem: p.PublicKey, legacy: true})
	}
	return out
}

func (s *Service) Verify(ctx context.Context, uid, keyVersion string, message []byte, signature string) (Verification, error) {
	result := Verification{RequestedVersion: keyVersion}

	var profile models.Profile
	if err := s.store.Get(ctx, models.ProfilesCollection, uid, &profile); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return result, fmt.Errorf("%w: %s", ErrKeyNotFound, uid)
		}
		return result, err
	}

	keys := candidates(profile, keyVersion)
	if len(keys) == 0 {
		return result, fmt.Errorf("%w: %s", ErrKeyNotFound, uid)
	}

	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return result, nil
	}
	digest := sha256.Sum256(message)

	for _, k := range keys {
		pub, err := DecodePublicKey(k.pem)
		if err != nil {
			continue
		}
		if rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig) == nil {
			result.Valid = true
			result.MatchedVersion = k.version
			result.Legacy = k.legacy
			return result, nil
		}
	}
	return result, nil
}

func EncodePublicKey(pub *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("failed to encode public key: %w", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil
}

func DecodePublicKey(s string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(s))
	if block == nil {
		return nil, ErrBadKey
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadKey, err)
	}
	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, ErrBadKey
	}
	return pub, nil
}
