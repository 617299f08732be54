package security

import (
	"encoding/hex"
	"net"
	"net/http"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// IPHasher turns client addresses into keyed digests so reviews can be
// rate-checked or deduplicated without storing the address itself.
type IPHasher struct {
	key []byte
}

// NewIPHasher keys the digest with secret; blake2b accepts at most 64 bytes
// of key, so longer secrets are first reduced with an unkeyed hash.
func NewIPHasher(secret string) *IPHasher {
	key := []byte(secret)
	if len(key) > blake2b.Size {
		sum := blake2b.Sum512(key)
		key = sum[:]
	}
	return &IPHasher{key: key}
}

func (h *IPHasher) Hash(ip string) string {
	mac, err := blake2b.New256(h.key)
	if err != nil {
		// only reachable with an oversized key, which NewIPHasher prevents
		panic(err)
	}
	mac.Write([]byte(ip))
	return hex.EncodeToString(mac.Sum(nil))
}

// ClientIP prefers the edge proxy headers, then the socket address.
func ClientIP(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
