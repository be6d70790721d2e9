// Package dyndns implements the digest-authenticated, replay-windowed
// dynamic-update packet format: a plaintext datagram sharing UDP port 53
// with DNS queries, distinguished by a leading "kdns" magic that can never
// collide with a valid DNS header (see Recognize).
package dyndns

import (
	"crypto/md5" //nolint:gosec // protocol-mandated digest, not used for security-sensitive hashing
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Magic is the four-byte prefix that identifies a dynamic-update packet.
const Magic = "kdns"

// MinLength is the shortest a well-formed dynamic-update packet can be
// (C_DYNDNS_MIN_LEN in the reference source): magic, digest, id, host and
// ip tokens each separated by a single space, with id and host each at
// least two characters and ip at its shortest ("0.0.0.0").
const MinLength = 51

// ParamCount is the number of space-separated tokens a packet must have.
const ParamCount = 5

// TimeRange bounds how far id may drift from the current epoch delta
// before a packet is rejected as a replay.
const TimeRange = 600 * time.Second

// Epoch is the reference instant (2023-01-01 00:00:00 UTC) that packet
// ids are measured against.
const Epoch = 1672531200

var (
	// ErrMalformed covers token-count and parse failures.
	ErrMalformed = errors.New("dyndns: malformed packet")
	// ErrChecksum covers a digest that does not match.
	ErrChecksum = errors.New("dyndns: checksum mismatch")
	// ErrReplay covers an id outside the accepted time window.
	ErrReplay = errors.New("dyndns: outside replay window")
)

// selfIP is the sentinel literal meaning "use the packet's source address".
const selfIP = "0.0.0.0"

// errorReply is returned verbatim to the client on any validation failure.
const errorReply = "error"

// Recognize reports whether msg should be handled as a dynamic-update
// packet rather than parsed as DNS. The four-byte magic cannot appear at
// the start of a DNS message that would otherwise be worth parsing: those
// bytes decode as id 0x6b64 and flags 0x6e73, which sets opcode 0xC, a
// reserved value no real client emits. The magic check is authoritative;
// callers must not fall back to DNS parsing once it matches.
func Recognize(msg []byte) bool {
	return len(msg) >= MinLength && string(msg[:len(Magic)]) == Magic
}

// Update is a validated dynamic-update request.
type Update struct {
	Host string
	IP   net.IP
}

// Apply validates msg (received from src) against secret and now, and
// returns the binding to register plus the literal text to reply with.
// On any validation failure the returned error is one of ErrMalformed,
// ErrChecksum or ErrReplay, and reply is the literal "error" text that
// must still be sent back to the client.
func Apply(msg []byte, src net.IP, secret string, now time.Time) (update Update, reply string, err error) {
	fields := strings.Fields(string(msg))
	if len(fields) < ParamCount {
		return Update{}, errorReply, fmt.Errorf("%w: got %d tokens, want %d", ErrMalformed, len(fields), ParamCount)
	}

	digest, idStr, host, ipStr := fields[1], fields[2], fields[3], fields[4]

	id, convErr := strconv.ParseInt(idStr, 10, 64)
	if convErr != nil {
		return Update{}, errorReply, fmt.Errorf("%w: bad id %q: %w", ErrMalformed, idStr, convErr)
	}

	if !checkDigest(digest, idStr, host, ipStr, secret) {
		return Update{}, errorReply, fmt.Errorf("%w", ErrChecksum)
	}

	if !checkTimeWindow(id, now) {
		return Update{}, errorReply, fmt.Errorf("%w", ErrReplay)
	}

	effectiveIP := net.ParseIP(ipStr)
	if ipStr == selfIP {
		effectiveIP = src
	}
	if effectiveIP == nil {
		return Update{}, errorReply, fmt.Errorf("%w: bad ip %q", ErrMalformed, ipStr)
	}

	return Update{Host: host, IP: effectiveIP}, fmt.Sprintf("%s %s", host, effectiveIP.String()), nil
}

// checkDigest verifies digest against md5(id ++ host ++ ip ++ secret),
// lowercase hex.
func checkDigest(digest, idStr, host, ipStr, secret string) bool {
	sum := md5.Sum([]byte(idStr + host + ipStr + secret)) //nolint:gosec // protocol-mandated
	return strings.EqualFold(digest, fmt.Sprintf("%x", sum))
}

// checkTimeWindow requires |id - (now - Epoch)| <= TimeRange.
func checkTimeWindow(id int64, now time.Time) bool {
	delta := now.Unix() - Epoch
	diff := id - delta
	if diff < 0 {
		diff = -diff
	}
	return diff <= int64(TimeRange/time.Second)
}
