package publish

import "strings"

const (
	// MaxCaptionLength is the provider's caption character limit.
	MaxCaptionLength = 2200

	// MaxHashtags is the provider's hashtag limit per caption.
	MaxHashtags = 30
)

// PrepareCaption appends hashtags to a caption and truncates the caption so
// the combined text fits within MaxCaptionLength. Tags are normalized to a
// leading '#'; at most MaxHashtags are kept. The operation is idempotent: a
// caption already ending in the suffix comes back unchanged.
func PrepareCaption(caption string, hashtags []string) string {
	suffix := hashtagSuffix(hashtags)
	if suffix == "" {
		return truncateRunes(caption, MaxCaptionLength)
	}

	if strings.HasSuffix(caption, suffix) && len([]rune(caption)) <= MaxCaptionLength {
		return caption
	}

	budget := MaxCaptionLength - len([]rune(suffix))
	if budget < 0 {
		budget = 0
	}
	return truncateRunes(caption, budget) + suffix
}

// hashtagSuffix builds the "\n\n#a #b" block appended to captions.
func hashtagSuffix(hashtags []string) string {
	tags := make([]string, 0, len(hashtags))
	for _, tag := range hashtags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if !strings.HasPrefix(tag, "#") {
			tag = "#" + tag
		}
		tags = append(tags, tag)
		if len(tags) == MaxHashtags {
			break
		}
	}
	if len(tags) == 0 {
		return ""
	}
	return "\n\n" + strings.Join(tags, " ")
}

// truncateRunes cuts s to at most n runes, not bytes, so multibyte captions
// survive intact.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
