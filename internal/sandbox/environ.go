package sandbox

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20"
)

// ClockResolution is the resolution, in nanoseconds, reported for the
// realtime and monotonic clocks.
const ClockResolution = 1_000_000_000

// Environment is the list of KEY=VALUE strings exposed to the guest.
type Environment []string

// MakeEnvironment builds an environment from a list of KEY=VALUE strings.
func MakeEnvironment(environ ...string) (Environment, error) {
	env := make(Environment, 0, len(environ))
	for _, kv := range environ {
		key, _, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("malformed environment variable: %q", kv)
		}
		if strings.IndexByte(kv, 0) >= 0 {
			return nil, fmt.Errorf("environment variable contains a null byte: %q", key)
		}
		env = append(env, kv)
	}
	return env, nil
}

// Lookup returns the value of the variable named key.
func (env Environment) Lookup(key string) (string, bool) {
	for _, kv := range env {
		if k, v, _ := strings.Cut(kv, "="); k == key {
			return v, true
		}
	}
	return "", false
}

// Sizes returns the number of variables and the size of the buffer needed to
// hold them as null-terminated strings.
func (env Environment) Sizes() (count, size int) {
	for _, kv := range env {
		size += len(kv) + 1
	}
	return len(env), size
}

// Get writes the variables to buf as null-terminated strings and returns the
// offset of each variable in buf. buf must be at least as large as the size
// returned by Sizes.
func (env Environment) Get(buf []byte) []int {
	offsets := make([]int, len(env))
	n := 0
	for i, kv := range env {
		offsets[i] = n
		n += copy(buf[n:], kv)
		buf[n] = 0
		n++
	}
	return offsets
}

// Random is a deterministic generator of random bytes: a ChaCha20 key stream
// keyed by the SHA-256 digest of a seed.
type Random struct {
	stream *chacha20.Cipher
}

// NewRandom returns a generator seeded with seed.
func NewRandom(seed []byte) *Random {
	r := new(Random)
	r.Reseed(seed)
	return r
}

// Reseed restarts the key stream from a new seed. Generators reseeded with
// the same seed produce the same bytes.
func (r *Random) Reseed(seed []byte) {
	key := sha256.Sum256(seed)
	var nonce [chacha20.NonceSize]byte
	stream, err := chacha20.NewUnauthenticatedCipher(key[:], nonce[:])
	if err != nil {
		panic(err) // the key and nonce have valid sizes
	}
	r.stream = stream
}

// Read fills b with random bytes. It never fails.
func (r *Random) Read(b []byte) (int, error) {
	for i := range b {
		b[i] = 0
	}
	r.stream.XORKeyStream(b, b)
	return len(b), nil
}
