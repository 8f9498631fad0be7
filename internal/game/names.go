package game

import (
	"fmt"
	"math/rand"
	"strings"

	"spinroom/internal/domain"
)

const (
	maxNameLength = 20

	// Suffixes " 2" .. " 98" are tried before giving up, so 97 attempts
	// past the base name.
	maxNameSuffix = 98
)

// SanitizeName trims, collapses inner whitespace runs and truncates the
// raw display name. An empty result gets a randomized placeholder.
func SanitizeName(raw string) string {
	name := strings.Join(strings.Fields(raw), " ")

	if runes := []rune(name); len(runes) > maxNameLength {
		name = strings.TrimSpace(string(runes[:maxNameLength]))
	}

	if name == "" {
		name = fmt.Sprintf("Player %d", 100+rand.Intn(900))
	}

	return name
}

// UniquifyName disambiguates candidate against the room's current names,
// case-insensitively. selfID excludes the caller's own current name, for
// renames. If every numeric suffix is taken the name degrades to a " *"
// suffix, which may itself still collide.
func UniquifyName(room *domain.Room, candidate, selfID string) string {
	taken := make(map[string]bool, len(room.Users))
	for _, u := range room.Users {
		if u.ID == selfID {
			continue
		}
		taken[strings.ToLower(u.Name)] = true
	}

	if !taken[strings.ToLower(candidate)] {
		return candidate
	}

	for n := 2; n <= maxNameSuffix; n++ {
		name := fmt.Sprintf("%s %d", candidate, n)
		if !taken[strings.ToLower(name)] {
			return name
		}
	}

	return candidate + " *"
}

// ResolveName is the canonical sanitize-then-uniquify sequence for any
// incoming name.
func ResolveName(room *domain.Room, raw, selfID string) string {
	return UniquifyName(room, SanitizeName(raw), selfID)
}
