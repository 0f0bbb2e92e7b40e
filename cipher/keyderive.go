package cipher

import (
	"crypto/md5" //nolint:gosec // spec-mandated hash for package-lock-list normalization, not used for security
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Well-known property names consulted during key derivation (spec.md §4.8).
const (
	PropertyEncryptionKeyID  = "EKID"
	PropertyPackageLockList  = "PackageLockList"
	encryptionKeyID3ShapeInt = "1"
)

// KeyProvider supplies the base encryption key given the envelope's
// property map. Implementations slot in without touching the decoder
// (spec.md §9): StaticKeyProvider, EnvKeyProvider, and any function
// literal satisfying KeyProviderFunc.
type KeyProvider interface {
	Key(properties map[string]string) ([]byte, error)
}

// KeyProviderFunc adapts a plain function to KeyProvider.
type KeyProviderFunc func(properties map[string]string) ([]byte, error)

func (f KeyProviderFunc) Key(properties map[string]string) ([]byte, error) {
	return f(properties)
}

// StaticKeyProvider always returns the same key bytes.
type StaticKeyProvider struct {
	Key_ []byte
}

// NewStaticKeyProvider wraps fixed key bytes.
func NewStaticKeyProvider(key []byte) StaticKeyProvider {
	return StaticKeyProvider{Key_: key}
}

func (p StaticKeyProvider) Key(map[string]string) ([]byte, error) {
	return p.Key_, nil
}

// EnvKeyProvider reads the key from an environment variable, parsed
// with ParseUserKey. The canonical variable name is HPS_ENCRYPTION_KEY
// (spec.md §6).
type EnvKeyProvider struct {
	VarName string
}

// NewEnvKeyProvider creates a provider reading the named environment variable.
func NewEnvKeyProvider(varName string) EnvKeyProvider {
	return EnvKeyProvider{VarName: varName}
}

func (p EnvKeyProvider) Key(map[string]string) ([]byte, error) {
	raw, ok := os.LookupEnv(p.VarName)
	if !ok {
		return nil, fmt.Errorf("cipher: environment variable %s is not set", p.VarName)
	}

	return ParseUserKey(raw), nil
}

// ParseUserKey decodes a user-supplied key string using the same
// precedence the reference CLI uses (spec.md §4.8): comma-separated
// decimal byte values first, then a hex string (optionally prefixed
// 0x/0X), otherwise the string's raw ISO-8859-1 (Latin-1) bytes.
func ParseUserKey(s string) []byte {
	s = strings.TrimSpace(s)

	if strings.Contains(s, ",") {
		parts := strings.Split(s, ",")
		key := make([]byte, 0, len(parts))

		ok := true
		for _, part := range parts {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil || n < 0 || n > 255 {
				ok = false
				break
			}

			key = append(key, byte(n))
		}

		if ok {
			return key
		}
	}

	hexPart := s
	if strings.HasPrefix(hexPart, "0x") || strings.HasPrefix(hexPart, "0X") {
		hexPart = hexPart[2:]
	}

	if decoded, err := decodeHex(hexPart); err == nil {
		return decoded
	}

	return iso8859_1Bytes(s)
}

func decodeHex(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("odd-length hex string")
	}

	out := make([]byte, len(s)/2)
	for i := 0; i < len(out); i++ {
		hi, ok1 := hexDigit(s[2*i])
		lo, ok2 := hexDigit(s[2*i+1])
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("invalid hex digit")
		}

		out[i] = hi<<4 | lo
	}

	return out, nil
}

func hexDigit(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}

// iso8859_1Bytes maps each rune to its ISO-8859-1 (Latin-1) byte value.
// Runes outside [0, 255] are not representable in this format and are
// replaced with '?' rather than silently truncated.
func iso8859_1Bytes(s string) []byte {
	runes := []rune(s)
	out := make([]byte, len(runes))

	for i, r := range runes {
		if r < 0 || r > 255 {
			out[i] = '?'
			continue
		}

		out[i] = byte(r)
	}

	return out
}

// computePackageLockHash normalizes and hashes the PackageLockList
// property exactly as spec.md §4.8 describes: split on ';', drop
// empties, deduplicate, sort lexicographically, re-join with a
// trailing ';', then uppercase-hex MD5 of the UTF-8 bytes.
func computePackageLockHash(properties map[string]string) (string, bool) {
	value, ok := properties[PropertyPackageLockList]
	if !ok || value == "" {
		return "", false
	}

	seen := make(map[string]struct{})

	items := make([]string, 0)
	for _, item := range strings.Split(value, ";") {
		if item == "" {
			continue
		}

		if _, dup := seen[item]; dup {
			continue
		}

		seen[item] = struct{}{}
		items = append(items, item)
	}

	if len(items) == 0 {
		return "", false
	}

	sort.Strings(items)

	canonical := strings.Join(items, ";") + ";"
	sum := md5.Sum([]byte(canonical)) //nolint:gosec

	return strings.ToUpper(fmt.Sprintf("%x", sum)), true
}

// DeriveKey implements the key-derivation decision tree of spec.md
// §4.8, grounded on the reference's CESchemaParser._derive_key.
func DeriveKey(provider KeyProvider, properties map[string]string) ([]byte, error) {
	baseKey, err := provider.Key(properties)
	if err != nil {
		return nil, err
	}

	ekid, hasEKID := properties[PropertyEncryptionKeyID]
	packageHash, hasPackageHash := computePackageLockHash(properties)

	if !hasEKID || ekid == "" {
		if hasPackageHash {
			return iso8859_1Bytes(packageHash), nil
		}

		return baseKey, nil
	}

	if ekid == encryptionKeyID3ShapeInt && hasPackageHash {
		combined := make([]byte, 0, len(baseKey)+len(packageHash))
		combined = append(combined, baseKey...)
		combined = append(combined, iso8859_1Bytes(packageHash)...)

		return combined, nil
	}

	return baseKey, nil
}
