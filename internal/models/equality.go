package models

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// durationTolerance is the largest duration difference two catalog entries
// for the same recording are allowed to have.
const durationTolerance = 2 * time.Second

// normalizeArtistName maps an artist name to the set of comparison fragments
// used for fuzzy matching. The name is NFD-decomposed, trimmed, lowercased
// and stripped of every non-ASCII rune (diacritics fold to their base
// letter, anything without a Latin base is dropped). For each of the
// separators "&" and "," that occurs in the normalized name, its split
// fragments join the set; otherwise the whole name does.
func normalizeArtistName(name string) map[string]struct{} {
	decomposed := norm.NFD.String(strings.ToLower(strings.TrimSpace(name)))

	var b strings.Builder
	for _, r := range decomposed {
		if r < 128 {
			b.WriteRune(r)
		}
	}
	lower := b.String()

	normalized := make(map[string]struct{})
	for _, separator := range []string{"&", ","} {
		if strings.Contains(lower, separator) {
			for _, fragment := range strings.Split(lower, separator) {
				normalized[fragment] = struct{}{}
			}
		} else {
			normalized[lower] = struct{}{}
		}
	}

	return normalized
}

func artistFragments(artists []string) map[string]struct{} {
	fragments := make(map[string]struct{})
	for _, artist := range artists {
		for fragment := range normalizeArtistName(artist) {
			fragments[fragment] = struct{}{}
		}
	}
	return fragments
}

func fragmentsIntersect(a, b map[string]struct{}) bool {
	for fragment := range a {
		if _, ok := b[fragment]; ok {
			return true
		}
	}
	return false
}

// Equal reports whether t and other denote the same recording.
//
// The checks run in a fixed precedence order and short-circuit:
//
//  1. Matching ISRCs (case-insensitive) are ground truth: the tracks are
//     equal, nothing else is consulted.
//  2. Durations more than two seconds apart mean different recordings.
//  3. Normalized artist fragment sets that do not intersect mean different
//     recordings.
//  4. If either side has no album metadata, missing data is not held against
//     the match: the tracks are equal.
//  5. Otherwise the tracks are equal iff one album name is a
//     case-insensitive prefix of the other, which tolerates edition
//     suffixes like "(Deluxe)" on one side.
func (t Track) Equal(other Track) bool {
	if strings.EqualFold(t.ISRC, other.ISRC) {
		return true
	}

	diff := t.Duration - other.Duration
	if diff < 0 {
		diff = -diff
	}
	if diff > durationTolerance {
		return false
	}

	if !fragmentsIntersect(artistFragments(t.Artists), artistFragments(other.Artists)) {
		return false
	}

	if t.Album == nil || other.Album == nil {
		return true
	}

	a := strings.ToLower(t.Album.Name)
	b := strings.ToLower(other.Album.Name)

	return strings.HasPrefix(a, b) || strings.HasPrefix(b, a)
}

// DeduplicateTracks removes tracks that are mutually [Track.Equal], keeping
// only the first occurrence in fetch order. The input slice is not modified.
func DeduplicateTracks(tracks []Track) []Track {
	unique := make([]Track, 0, len(tracks))

	for _, track := range tracks {
		duplicate := false
		for _, kept := range unique {
			if kept.Equal(track) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			unique = append(unique, track)
		}
	}

	return unique
}
