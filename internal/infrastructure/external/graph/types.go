package graph

import "time"

// Wire shapes for the subset of the platform API this service consumes.
// Only the fields the pipeline reads are modeled.

type graphUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

type identitySet struct {
	User *graphUser `json:"user"`
}

type meetingParticipant struct {
	Identity identitySet `json:"identity"`
}

type meetingParticipants struct {
	Organizer meetingParticipant   `json:"organizer"`
	Attendees []meetingParticipant `json:"attendees"`
}

type onlineMeeting struct {
	Subject       string              `json:"subject"`
	StartDateTime time.Time           `json:"startDateTime"`
	JoinWebURL    string              `json:"joinWebUrl"`
	Participants  meetingParticipants `json:"participants"`
}

// CalendarEvent is the slice of an event the pipeline reads and patches
type CalendarEvent struct {
	ID   string `json:"id"`
	Body struct {
		ContentType string `json:"contentType"`
		Content     string `json:"content"`
	} `json:"body"`
}
