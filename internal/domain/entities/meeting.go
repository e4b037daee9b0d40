package entities

import "time"

// Identity is a platform user reference
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName,omitempty"`
}

// Name returns the display name, falling back to the id
func (i Identity) Name() string {
	if i.DisplayName != "" {
		return i.DisplayName
	}
	return i.ID
}

// MeetingContext is a read-only snapshot of meeting metadata,
// fetched once per orchestration run
type MeetingContext struct {
	Subject   string
	StartTime time.Time
	JoinURL   string
	Organizer Identity
	Attendees []Identity
}

// Recipient is a person who should receive the run's artifacts
type Recipient struct {
	Identity    Identity
	IsOrganizer bool
}

// Recipients returns the organizer followed by every attendee with a
// resolvable identity. The organizer is always first.
func (m *MeetingContext) Recipients() []Recipient {
	recipients := make([]Recipient, 0, len(m.Attendees)+1)
	if m.Organizer.ID != "" {
		recipients = append(recipients, Recipient{Identity: m.Organizer, IsOrganizer: true})
	}
	for _, att := range m.Attendees {
		if att.ID == "" {
			continue
		}
		// The organizer often appears in the attendee list as well;
		// a duplicate entry would double-upload the same files.
		if att.ID == m.Organizer.ID {
			continue
		}
		recipients = append(recipients, Recipient{Identity: att})
	}
	return recipients
}
