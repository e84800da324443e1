package storage

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JamesPrial/mcp-fleet/pkg/config"
)

// IDGenerator returns a new entity ID.
type IDGenerator func() string

// DefaultIDGenerator returns entity_{unix seconds}_{6 random digits}.
// Collisions are possible under concurrent creation; the duplicate check in
// Create remains the backstop.
func DefaultIDGenerator() string {
	return fmt.Sprintf("entity_%d_%d", time.Now().Unix(), 100000+rand.Intn(900000))
}

// TimestampIDGenerator returns a generator of {prefix}_{YYYYMMDD_HHMMSS}_{6 random digits}.
func TimestampIDGenerator(prefix string) IDGenerator {
	return func() string {
		return fmt.Sprintf("%s_%s_%06d", prefix, time.Now().UTC().Format("20060102_150405"), rand.Intn(1000000))
	}
}

// UUIDGenerator returns random (v4) UUIDs.
func UUIDGenerator() string {
	return uuid.NewString()
}

// IDGeneratorFor maps a configured strategy to a generator. The timestamp
// strategy uses prefix.
func IDGeneratorFor(strategy, prefix string) IDGenerator {
	switch strategy {
	case config.IDStrategyUUID:
		return UUIDGenerator
	case config.IDStrategyTimestamp:
		return TimestampIDGenerator(prefix)
	default:
		return DefaultIDGenerator
	}
}

// CurrentTimestamp returns the current time in UTC without a monotonic
// reading, so values round-trip through JSON unchanged.
func CurrentTimestamp() time.Time {
	return time.Now().UTC()
}

const maxFilenameLength = 200

var (
	unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)
	nonSlugChars        = regexp.MustCompile(`[^a-z0-9]+`)
)

// SafeFilename replaces characters outside [A-Za-z0-9._-] with underscores,
// trims leading dots and underscores, and caps the length.
func SafeFilename(s string) string {
	safe := unsafeFilenameChars.ReplaceAllString(strings.TrimSpace(s), "_")
	safe = strings.Trim(safe, "._")
	if len(safe) > maxFilenameLength {
		safe = safe[:maxFilenameLength]
	}
	if safe == "" {
		return "untitled"
	}
	return safe
}

// Slugify lowercases s and joins its alphanumeric runs with hyphens.
func Slugify(s string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(s), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 50 {
		slug = strings.TrimRight(slug[:50], "-")
	}
	return slug
}
