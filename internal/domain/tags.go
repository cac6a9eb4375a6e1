package domain

import (
	"fmt"
	"strings"
)

// StandardTags is the closed tag vocabulary. Matching is case-sensitive.
var StandardTags = []string{
	"Work",
	"Personal",
	"Shopping",
	"Health",
	"Finance",
	"Learning",
	"Urgent",
}

// MaxTagsPerTask caps the number of tags a single task may carry.
const MaxTagsPerTask = 5

// ValidateTags checks a tag list against the closed vocabulary.
// An empty list is valid. Fails on more than five tags, duplicates,
// or any tag outside StandardTags.
func ValidateTags(tags []string) error {
	if len(tags) == 0 {
		return nil
	}

	if len(tags) > MaxTagsPerTask {
		return fmt.Errorf("%w: maximum %d tags allowed per task", ErrInvalidTags, MaxTagsPerTask)
	}

	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		if _, dup := seen[tag]; dup {
			return fmt.Errorf("%w: duplicate tags are not allowed: %s", ErrInvalidTags, tag)
		}
		seen[tag] = struct{}{}
	}

	for _, tag := range tags {
		if !isStandardTag(tag) {
			return fmt.Errorf("%w: invalid tag %q, allowed tags: %s",
				ErrInvalidTags, tag, strings.Join(StandardTags, ", "))
		}
	}

	return nil
}

func isStandardTag(tag string) bool {
	for _, std := range StandardTags {
		if tag == std {
			return true
		}
	}
	return false
}
