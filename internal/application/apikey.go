package application

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var (
	ErrInvalidKeyHash         = errors.New("invalid api key hash format")
	ErrIncompatibleKeyVersion = errors.New("incompatible api key hash version")
	// ErrInvalidCredentials is returned when a presented API key does not verify.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrDomainNotAllowed is returned when the owner address is outside the allowed domain.
	ErrDomainNotAllowed = errors.New("application: domain not allowed")
)

type Argon2idParams struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

var DefaultArgon2idParams = Argon2idParams{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

// CreateKeyHash derives an encoded argon2id hash for an API key secret.
func CreateKeyHash(secret string, params Argon2idParams) (string, error) {
	salt := make([]byte, params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(secret), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLength)

	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	b64Hash := base64.RawStdEncoding.EncodeToString(hash)

	// Format is $argon2id$v=19$m=...,t=...,p=...$salt$hash
	format := "$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s"
	return fmt.Sprintf(format, argon2.Version, params.Memory, params.Iterations, params.Parallelism, b64Salt, b64Hash), nil
}

// VerifyKey checks secret against an encoded argon2id hash.
func VerifyKey(encoded, secret string) error {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return ErrInvalidKeyHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return ErrInvalidKeyHash
	}
	if version != argon2.Version {
		return ErrIncompatibleKeyVersion
	}

	var params Argon2idParams
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Iterations, &params.Parallelism); err != nil {
		return ErrInvalidKeyHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return ErrInvalidKeyHash
	}
	decodedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return ErrInvalidKeyHash
	}

	comparisonHash := argon2.IDKey([]byte(secret), salt, params.Iterations, params.Memory, params.Parallelism, uint32(len(decodedHash)))
	if subtle.ConstantTimeCompare(decodedHash, comparisonHash) == 1 {
		return nil
	}
	return ErrInvalidCredentials
}

// KeyRing authenticates API keys of the form "<owner>:<secret>" against the
// configured owner hashes.
type KeyRing struct {
	hashes        map[string]string
	allowedDomain string
}

// NewKeyRing builds a key ring from owner to encoded hash pairs. An empty
// allowedDomain accepts every owner.
func NewKeyRing(hashes map[string]string, allowedDomain string) *KeyRing {
	copied := make(map[string]string, len(hashes))
	for owner, hash := range hashes {
		copied[strings.TrimSpace(owner)] = strings.TrimSpace(hash)
	}
	return &KeyRing{hashes: copied, allowedDomain: strings.ToLower(strings.TrimPrefix(strings.TrimSpace(allowedDomain), "@"))}
}

// Authenticate resolves the principal owning token.
func (k *KeyRing) Authenticate(token string) (Principal, error) {
	if k == nil {
		return Principal{}, ErrInvalidCredentials
	}
	owner, secret, ok := strings.Cut(strings.TrimSpace(token), ":")
	if !ok || owner == "" || secret == "" {
		return Principal{}, ErrInvalidCredentials
	}
	hash, ok := k.hashes[owner]
	if !ok {
		return Principal{}, ErrInvalidCredentials
	}
	if err := VerifyKey(hash, secret); err != nil {
		return Principal{}, ErrInvalidCredentials
	}
	if !k.domainAllowed(owner) {
		return Principal{}, ErrDomainNotAllowed
	}

	principal := Principal{OwnerID: owner}
	if strings.Contains(owner, "@") {
		principal.Email = owner
	}
	return principal, nil
}

func (k *KeyRing) domainAllowed(owner string) bool {
	if k.allowedDomain == "" {
		return true
	}
	_, domain, ok := strings.Cut(owner, "@")
	return ok && strings.EqualFold(domain, k.allowedDomain)
}
