package transform

import "regexp"

// Handles shorter than three characters are overwhelmingly noise
// (typos, "@ la playa" style text).
var mentionPattern = regexp.MustCompile(`@([\w.]{3,})`)

// ExtractMentions returns the unique @handles found in a caption, in order
// of first appearance.
func ExtractMentions(caption string) []string {
	matches := mentionPattern.FindAllStringSubmatch(caption, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	mentions := make([]string, 0, len(matches))
	for _, match := range matches {
		handle := match[1]
		if _, ok := seen[handle]; ok {
			continue
		}
		seen[handle] = struct{}{}
		mentions = append(mentions, handle)
	}
	return mentions
}
