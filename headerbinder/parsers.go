package headerbinder

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Stock parsers

// String accepts any printable value unchanged
func String(raw string) (string, error) {
	return raw, nil
}

// Int parses a signed decimal integer
func Int(raw string) (int, error) {
	return strconv.Atoi(raw)
}

// Int64 parses a signed 64-bit decimal integer
func Int64(raw string) (int64, error) {
	return strconv.ParseInt(raw, 10, 64)
}

// Uint parses an unsigned decimal integer; negative values fail
func Uint(raw string) (uint64, error) {
	return strconv.ParseUint(raw, 10, 64)
}

// Float parses a decimal floating point number
func Float(raw string) (float64, error) {
	return strconv.ParseFloat(raw, 64)
}

// Bool parses the values accepted by strconv.ParseBool
func Bool(raw string) (bool, error) {
	return strconv.ParseBool(raw)
}

// UUID parses an RFC 4122 identifier
func UUID(raw string) (uuid.UUID, error) {
	return uuid.Parse(raw)
}

// Duration parses a Go duration string such as "1h30m"
func Duration(raw string) (time.Duration, error) {
	return time.ParseDuration(raw)
}

// Timestamp parses an RFC 3339 timestamp
func Timestamp(raw string) (time.Time, error) {
	return time.Parse(time.RFC3339, raw)
}

// Unix parses a Unix timestamp in seconds
func Unix(raw string) (time.Time, error) {
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(secs, 0).UTC(), nil
}

// IP parses an IPv4 or IPv6 address
func IP(raw string) (netip.Addr, error) {
	return netip.ParseAddr(raw)
}

// BearerToken extracts the token from a "Bearer <token>" credential
func BearerToken(raw string) (string, error) {
	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(raw, bearerPrefix) {
		return "", fmt.Errorf("value is not a bearer credential")
	}
	token := strings.TrimSpace(raw[len(bearerPrefix):])
	if token == "" {
		return "", fmt.Errorf("bearer token is empty")
	}
	return token, nil
}

// Parser combinators

// OneOf restricts a string value to a fixed set
func OneOf(values ...string) func(string) (string, error) {
	allowed := make(map[string]bool, len(values))
	for _, v := range values {
		allowed[v] = true
	}
	return func(raw string) (string, error) {
		if !allowed[raw] {
			return "", fmt.Errorf("value %q is not one of %s", raw, strings.Join(values, ", "))
		}
		return raw, nil
	}
}

// TimeLayout parses timestamps using the given layout
func TimeLayout(layout string) func(string) (time.Time, error) {
	return func(raw string) (time.Time, error) {
		return time.Parse(layout, raw)
	}
}

// Parser registry

// registry maps configuration type names to parsers
var registry = struct {
	sync.RWMutex
	parsers map[string]ParseFunc
}{
	parsers: map[string]ParseFunc{
		"string":    erase(String),
		"int":       erase(Int),
		"int64":     erase(Int64),
		"uint":      erase(Uint),
		"float":     erase(Float),
		"bool":      erase(Bool),
		"uuid":      erase(UUID),
		"duration":  erase(Duration),
		"timestamp": erase(Timestamp),
		"unix":      erase(Unix),
		"ip":        erase(IP),
		"bearer":    erase(BearerToken),
	},
}

// RegisterParser makes a parser available to schemas and configuration files
// under the given type name. Registering an existing name replaces it.
func RegisterParser(name string, parse ParseFunc) error {
	if name == "" {
		return fmt.Errorf("parser name cannot be empty")
	}
	if parse == nil {
		return fmt.Errorf("parser %q: parse function cannot be nil", name)
	}

	registry.Lock()
	defer registry.Unlock()
	registry.parsers[strings.ToLower(name)] = parse
	return nil
}

// LookupParser returns the parser registered under the given type name
func LookupParser(name string) (ParseFunc, bool) {
	registry.RLock()
	defer registry.RUnlock()
	parse, ok := registry.parsers[strings.ToLower(name)]
	return parse, ok
}
