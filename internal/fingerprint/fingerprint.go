package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/palisadehq/palisade/internal/models"
)

// Sentinel values substituted for attributes the collector did not send.
// Deriving a fingerprint must always succeed, so absent input degrades to
// sentinels instead of failing.
const (
	unknownPlatform   = "unknown"
	unknownResolution = "unknown"
)

// Codec derives a stable device fingerprint from a fixed attribute set.
// The hash depends only on the five canonical fields; volatile signals
// like the user agent are deliberately excluded so the fingerprint
// survives browser updates on the same machine.
type Codec struct {
	useFallback bool
}

// NewCodec returns a codec using the SHA-256 primary path.
func NewCodec() *Codec {
	return &Codec{}
}

// NewFallbackCodec returns a codec using the non-cryptographic rolling
// hash. Both paths are deterministic per input but produce unrelated
// identifiers; fingerprints from the two codecs must never be compared.
func NewFallbackCodec() *Codec {
	return &Codec{useFallback: true}
}

// Fingerprint derives the fingerprint for the given attributes. It is
// total and side-effect-free: identical inputs always yield the identical
// string, and missing fields default to sentinels.
func (c *Codec) Fingerprint(attrs models.DeviceAttributes) string {
	canonical := canonicalize(attrs)
	if c.useFallback {
		return rollingHash(canonical)
	}
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// canonicalize joins the five canonical fields in fixed order so that the
// shape of the raw attribute object never affects the result.
func canonicalize(attrs models.DeviceAttributes) string {
	platform := attrs.Platform
	if platform == "" {
		platform = unknownPlatform
	}
	resolution := attrs.ScreenResolution
	if resolution == "" {
		resolution = unknownResolution
	}

	return strings.Join([]string{
		platform,
		strconv.Itoa(attrs.HardwareConcurrency),
		resolution,
		strconv.Itoa(attrs.ColorDepth),
		strconv.Itoa(attrs.MaxTouchPoints),
	}, "|")
}

// rollingHash is the fallback path: a djb2-style multiplicative hash over
// the canonical string. Weaker than SHA-256 but deterministic, which is
// all the ledger key requires.
func rollingHash(s string) string {
	var h uint64 = 5381
	for _, b := range []byte(s) {
		h = h*33 + uint64(b)
	}
	return fmt.Sprintf("fb%016x", h)
}
