package entities

import "time"

// ResourceLocator holds the identifiers parsed out of a notification's
// resource path. Derived deterministically, immutable afterwards.
type ResourceLocator struct {
	UserID       string
	MeetingID    string
	TranscriptID string
}

// TranscriptArtifact is the raw transcript plus its derived filenames.
// Computed once per notification and shared read-only across all
// recipient fan-out branches.
type TranscriptArtifact struct {
	Content     []byte
	ContentType string
	BaseName    string
}

// NewTranscriptArtifact builds the artifact with a base name derived
// from the meeting subject and start time at second precision,
// e.g. "Weekly Sync_20250131_140000".
func NewTranscriptArtifact(content []byte, contentType, subject string, start time.Time) *TranscriptArtifact {
	return &TranscriptArtifact{
		Content:     content,
		ContentType: contentType,
		BaseName:    subject + "_" + start.UTC().Format("20060102_150405"),
	}
}

// TranscriptFilename is the upload name for the raw transcript
func (a *TranscriptArtifact) TranscriptFilename() string {
	return a.BaseName + "_transcript.txt"
}

// SummaryFilename is the upload name for the generated summary
func (a *TranscriptArtifact) SummaryFilename() string {
	return a.BaseName + "_summary.txt"
}

// Summary is the AI-generated text for one run. A nil *Summary means
// summarization failed; downstream steps treat absence as skip-not-fail.
type Summary struct {
	Text string
}
