package pipeline

import (
	"regexp"

	"github.com/meetingscribe/transcript-relay/internal/domain/entities"
)

// The platform encodes identifiers positionally inside the resource
// path. The three segments may appear in any order and may be
// interleaved with other path segments.
var (
	userPattern       = regexp.MustCompile(`users\('([^']*)'\)`)
	meetingPattern    = regexp.MustCompile(`onlineMeetings\('([^']*)'\)`)
	transcriptPattern = regexp.MustCompile(`transcripts\('([^']*)'\)`)
)

// ParseResource extracts the (user, meeting, transcript) identifier
// triple from a notification's resource path. The second return value
// is false when the resource does not reference a transcript — many
// notifications reference other resource kinds and must be silently
// ignored, so this is not an error.
func ParseResource(resource string) (entities.ResourceLocator, bool) {
	userMatch := userPattern.FindStringSubmatch(resource)
	meetingMatch := meetingPattern.FindStringSubmatch(resource)
	transcriptMatch := transcriptPattern.FindStringSubmatch(resource)

	if userMatch == nil || meetingMatch == nil || transcriptMatch == nil {
		return entities.ResourceLocator{}, false
	}
	if userMatch[1] == "" || meetingMatch[1] == "" || transcriptMatch[1] == "" {
		return entities.ResourceLocator{}, false
	}

	return entities.ResourceLocator{
		UserID:       userMatch[1],
		MeetingID:    meetingMatch[1],
		TranscriptID: transcriptMatch[1],
	}, true
}
