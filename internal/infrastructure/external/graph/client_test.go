package graph

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGetTranscriptContent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/u-1/onlineMeetings/m-1/transcripts/t-1/content" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if accept := r.Header.Get("Accept"); accept != "text/vtt" {
			t.Fatalf("Accept = %q, want text/vtt", accept)
		}
		io.WriteString(w, "WEBVTT\n\ncontent")
	}))
	defer ts.Close()

	client := NewClientWithHTTP(ts.URL, nil)
	content, err := client.GetTranscriptContent(context.Background(), "u-1", "m-1", "t-1", "text/vtt")
	if err != nil {
		t.Fatalf("GetTranscriptContent failed: %v", err)
	}
	if string(content) != "WEBVTT\n\ncontent" {
		t.Fatalf("unexpected content %q", content)
	}
}

func TestGetOnlineMeetingMapsParticipants(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"subject":       "Planning",
			"startDateTime": "2025-01-31T14:00:00Z",
			"joinWebUrl":    "https://meet.example.com/x",
			"participants": map[string]interface{}{
				"organizer": map[string]interface{}{
					"identity": map[string]interface{}{
						"user": map[string]string{"id": "org-1", "displayName": "Organizer"},
					},
				},
				"attendees": []map[string]interface{}{
					{"identity": map[string]interface{}{
						"user": map[string]string{"id": "att-1", "displayName": "Alice"},
					}},
					{"identity": map[string]interface{}{}},
				},
			},
		})
	}))
	defer ts.Close()

	client := NewClientWithHTTP(ts.URL, nil)
	meeting, err := client.GetOnlineMeeting(context.Background(), "u-1", "m-1")
	if err != nil {
		t.Fatalf("GetOnlineMeeting failed: %v", err)
	}
	if meeting.Subject != "Planning" {
		t.Errorf("Subject = %q", meeting.Subject)
	}
	if !meeting.StartTime.Equal(time.Date(2025, 1, 31, 14, 0, 0, 0, time.UTC)) {
		t.Errorf("StartTime = %v", meeting.StartTime)
	}
	if meeting.Organizer.ID != "org-1" {
		t.Errorf("Organizer = %+v", meeting.Organizer)
	}
	// Participant without a resolvable user identity is dropped.
	if len(meeting.Attendees) != 1 || meeting.Attendees[0].ID != "att-1" {
		t.Errorf("Attendees = %+v", meeting.Attendees)
	}
}

func TestFindCalendarEvent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		filter := r.URL.Query().Get("$filter")
		want := "subject eq 'Team''s Sync' and start/dateTime eq '2025-01-31T14:00:00.0000000'"
		if filter != want {
			t.Fatalf("filter = %q, want %q", filter, want)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"value": []map[string]interface{}{
				{"id": "evt-1", "body": map[string]string{"contentType": "html", "content": "<p>x</p>"}},
			},
		})
	}))
	defer ts.Close()

	client := NewClientWithHTTP(ts.URL, nil)
	start := time.Date(2025, 1, 31, 14, 0, 0, 0, time.UTC)
	event, err := client.FindCalendarEvent(context.Background(), "u-1", "Team's Sync", start)
	if err != nil {
		t.Fatalf("FindCalendarEvent failed: %v", err)
	}
	if event == nil || event.ID != "evt-1" {
		t.Fatalf("event = %+v", event)
	}
	if event.Body.Content != "<p>x</p>" {
		t.Fatalf("body = %q", event.Body.Content)
	}
}

func TestFindCalendarEventNoMatch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"value": []interface{}{}})
	}))
	defer ts.Close()

	client := NewClientWithHTTP(ts.URL, nil)
	event, err := client.FindCalendarEvent(context.Background(), "u-1", "Sync", time.Now())
	if err != nil {
		t.Fatalf("FindCalendarEvent failed: %v", err)
	}
	if event != nil {
		t.Fatalf("expected nil event, got %+v", event)
	}
}

func TestGetSpecialFolderParentDriveFallback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/drives/d-1/special/recordings" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"id": "folder-1"})
	}))
	defer ts.Close()

	client := NewClientWithHTTP(ts.URL, nil)
	folderID, driveID, err := client.GetSpecialFolder(context.Background(), "d-1", "recordings")
	if err != nil {
		t.Fatalf("GetSpecialFolder failed: %v", err)
	}
	if folderID != "folder-1" {
		t.Errorf("folderID = %q", folderID)
	}
	// No parentReference in the response: fall back to the requested drive.
	if driveID != "d-1" {
		t.Errorf("driveID = %q, want requested drive", driveID)
	}
}

func TestUploadDriveItemPutsByFilename(t *testing.T) {
	var gotPath, gotMethod string
	var gotBody []byte
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotMethod = r.Method
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer ts.Close()

	client := NewClientWithHTTP(ts.URL, nil)
	err := client.UploadDriveItem(context.Background(), "d-1", "folder-1",
		"Weekly Sync_20250131_140000_transcript.txt", []byte("hello"), "text/plain")
	if err != nil {
		t.Fatalf("UploadDriveItem failed: %v", err)
	}
	if gotMethod != http.MethodPut {
		t.Errorf("method = %s, want PUT", gotMethod)
	}
	if gotPath != "/drives/d-1/items/folder-1:/Weekly%20Sync_20250131_140000_transcript.txt:/content" {
		t.Errorf("path = %q", gotPath)
	}
	if string(gotBody) != "hello" {
		t.Errorf("body = %q", gotBody)
	}
}

func TestNotFoundIsSentinel(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	client := NewClientWithHTTP(ts.URL, nil)
	_, err := client.GetOnlineMeeting(context.Background(), "u-1", "m-1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRenewSubscriptionPatchesExpiration(t *testing.T) {
	var gotBody map[string]string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/subscriptions/sub-1" {
			t.Fatalf("unexpected %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, "{}")
	}))
	defer ts.Close()

	client := NewClientWithHTTP(ts.URL, nil)
	expiration := time.Date(2025, 6, 4, 10, 0, 0, 0, time.UTC)
	if err := client.RenewSubscription(context.Background(), "sub-1", expiration); err != nil {
		t.Fatalf("RenewSubscription failed: %v", err)
	}
	if gotBody["expirationDateTime"] != "2025-06-04T10:00:00Z" {
		t.Fatalf("expirationDateTime = %q", gotBody["expirationDateTime"])
	}
}
