// Package password hashes and verifies member credentials with
// argon2id and enforces the portal's password strength policy.
// Digests use the PHC string format so the cost parameters travel
// with each hash and old digests stay verifiable after a tuning
// change.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	algorithmID = "argon2id"

	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
)

// Params are the argon2id cost settings used when producing new
// digests. Verification always uses the parameters embedded in the
// digest being checked.
type Params struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams returns moderate interactive-login costs.
func DefaultParams() Params {
	return Params{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Hasher produces and verifies PHC-encoded argon2id digests. It is
// stateless after construction and safe for concurrent use.
type Hasher struct {
	params Params
}

// NewHasher validates the cost settings and returns a Hasher.
func NewHasher(p Params) (*Hasher, error) {
	if p.Memory < minMemoryKB {
		return nil, errors.New("password memory must be >= 8192 KB")
	}
	if p.Time < minTimeCost {
		return nil, errors.New("password time cost must be >= 1")
	}
	if p.Parallelism < minParallelism {
		return nil, errors.New("password parallelism must be >= 1")
	}
	if p.SaltLength < minSaltLength {
		return nil, errors.New("password salt length must be >= 16")
	}
	if p.KeyLength < minKeyLength {
		return nil, errors.New("password key length must be >= 16")
	}
	return &Hasher{params: p}, nil
}

// Hash derives a fresh digest for the given plaintext. The plaintext
// bytes are used exactly as provided, with no Unicode normalization.
func (h *Hasher) Hash(plaintext string) (string, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey(
		[]byte(plaintext),
		salt,
		h.params.Time,
		h.params.Memory,
		h.params.Parallelism,
		h.params.KeyLength,
	)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		h.params.Memory,
		h.params.Time,
		h.params.Parallelism,
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether plaintext matches the encoded digest. The
// comparison is constant-time over the derived key.
func (h *Hasher) Verify(plaintext, encoded string) (bool, error) {
	d, err := parseDigest(encoded)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey(
		[]byte(plaintext),
		d.salt,
		d.time,
		d.memory,
		d.parallelism,
		d.keyLength,
	)

	return subtle.ConstantTimeCompare(computed, d.key) == 1, nil
}

// NeedsRehash reports whether encoded was produced with weaker
// settings than the Hasher's current parameters. Callers rehash after
// a successful verify so digests catch up with cost increases.
func (h *Hasher) NeedsRehash(encoded string) (bool, error) {
	d, err := parseDigest(encoded)
	if err != nil {
		return false, err
	}
	if h.params.Memory > d.memory || h.params.Time > d.time || h.params.Parallelism > d.parallelism {
		return true, nil
	}
	return h.params.KeyLength != d.keyLength, nil
}

type digest struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
	keyLength   uint32
}

func parseDigest(encoded string) (*digest, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, errors.New("invalid PHC format")
	}
	if parts[1] != algorithmID {
		return nil, errors.New("unsupported algorithm")
	}
	if !strings.HasPrefix(parts[2], "v=") {
		return nil, errors.New("missing argon2 version")
	}
	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil || version != argon2.Version {
		return nil, errors.New("unsupported argon2 version")
	}

	d := &digest{}
	for _, pair := range strings.Split(parts[3], ",") {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			return nil, errors.New("invalid parameter entry")
		}
		switch kv[0] {
		case "m":
			v, err := strconv.ParseUint(kv[1], 10, 32)
			if err != nil || v < uint64(minMemoryKB) {
				return nil, errors.New("invalid memory parameter")
			}
			d.memory = uint32(v)
		case "t":
			v, err := strconv.ParseUint(kv[1], 10, 32)
			if err != nil || v < uint64(minTimeCost) {
				return nil, errors.New("invalid time parameter")
			}
			d.time = uint32(v)
		case "p":
			v, err := strconv.ParseUint(kv[1], 10, 8)
			if err != nil || v < uint64(minParallelism) {
				return nil, errors.New("invalid parallelism parameter")
			}
			d.parallelism = uint8(v)
		default:
			return nil, errors.New("unsupported parameter")
		}
	}
	if d.memory == 0 || d.time == 0 || d.parallelism == 0 {
		return nil, errors.New("missing parameters")
	}

	d.salt, err = base64.StdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, errors.New("invalid salt encoding")
	}
	if len(d.salt) < int(minSaltLength) {
		return nil, errors.New("invalid salt length")
	}

	d.key, err = base64.StdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, errors.New("invalid hash encoding")
	}
	if len(d.key) == 0 {
		return nil, errors.New("invalid hash length")
	}
	d.keyLength = uint32(len(d.key))

	return d, nil
}
