package graph

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/meetingscribe/transcript-relay/internal/domain/entities"
	"github.com/meetingscribe/transcript-relay/pkg/config"
)

// ErrNotFound is returned when the platform reports 404 for a resource
var ErrNotFound = errors.New("resource not found")

// Client talks to the meeting-platform REST API. A single client is
// constructed at startup and passed explicitly into each pipeline stage;
// it is safe for concurrent use.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a platform client authenticated via the OAuth2
// client-credentials flow
func NewClient(cfg *config.Config) *Client {
	creds := clientcredentials.Config{
		ClientID:     cfg.Graph.ClientID,
		ClientSecret: cfg.Graph.ClientSecret,
		TokenURL:     cfg.GetTokenURL(),
		Scopes:       []string{cfg.Graph.Scope},
	}

	httpClient := creds.Client(context.Background())
	httpClient.Timeout = cfg.Graph.Timeout

	return &Client{
		baseURL: strings.TrimRight(cfg.Graph.BaseURL, "/"),
		client:  httpClient,
	}
}

// NewClientWithHTTP creates a client over a pre-built HTTP client.
// Used by tests to point at a fake server without credentials.
func NewClientWithHTTP(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), client: httpClient}
}

// do issues a request and decodes a JSON response into out (when non-nil)
func (c *Client) do(ctx context.Context, method, path string, body interface{}, headers map[string]string, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	}
	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: platform returned status %d: %s", method, path, resp.StatusCode, string(msg))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// GetTranscriptContent fetches raw transcript bytes in the requested
// content format (e.g. "text/vtt")
func (c *Client) GetTranscriptContent(ctx context.Context, userID, meetingID, transcriptID, format string) ([]byte, error) {
	path := fmt.Sprintf("/users/%s/onlineMeetings/%s/transcripts/%s/content",
		url.PathEscape(userID), url.PathEscape(meetingID), url.PathEscape(transcriptID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", format)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("transcript content: %w", ErrNotFound)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("transcript content: platform returned status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// GetOnlineMeeting fetches meeting metadata and maps it into a
// read-only MeetingContext snapshot
func (c *Client) GetOnlineMeeting(ctx context.Context, userID, meetingID string) (*entities.MeetingContext, error) {
	path := fmt.Sprintf("/users/%s/onlineMeetings/%s", url.PathEscape(userID), url.PathEscape(meetingID))

	var meeting onlineMeeting
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &meeting); err != nil {
		return nil, err
	}

	mc := &entities.MeetingContext{
		Subject:   meeting.Subject,
		StartTime: meeting.StartDateTime,
		JoinURL:   meeting.JoinWebURL,
	}
	if org := meeting.Participants.Organizer.Identity.User; org != nil {
		mc.Organizer = entities.Identity{ID: org.ID, DisplayName: org.DisplayName}
	}
	for _, att := range meeting.Participants.Attendees {
		if att.Identity.User == nil {
			continue
		}
		mc.Attendees = append(mc.Attendees, entities.Identity{
			ID:          att.Identity.User.ID,
			DisplayName: att.Identity.User.DisplayName,
		})
	}
	return mc, nil
}

// FindCalendarEvent locates a calendar event matching subject and start
// time exactly. Returns (nil, nil) when no event matches.
func (c *Client) FindCalendarEvent(ctx context.Context, userID, subject string, start time.Time) (*CalendarEvent, error) {
	filter := fmt.Sprintf("subject eq '%s' and start/dateTime eq '%s'",
		strings.ReplaceAll(subject, "'", "''"),
		start.UTC().Format("2006-01-02T15:04:05.0000000"))
	path := fmt.Sprintf("/users/%s/events?$filter=%s", url.PathEscape(userID), url.QueryEscape(filter))

	var result struct {
		Value []CalendarEvent `json:"value"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &result); err != nil {
		return nil, err
	}
	if len(result.Value) == 0 {
		return nil, nil
	}
	return &result.Value[0], nil
}

// UpdateEventBody patches a calendar event's HTML body
func (c *Client) UpdateEventBody(ctx context.Context, userID, eventID, htmlBody string) error {
	path := fmt.Sprintf("/users/%s/events/%s", url.PathEscape(userID), url.PathEscape(eventID))
	body := map[string]interface{}{
		"body": map[string]string{
			"contentType": "html",
			"content":     htmlBody,
		},
	}
	return c.do(ctx, http.MethodPatch, path, body, nil, nil)
}

// GetUserMail resolves a user's mailbox address. Returns an empty
// string when the user has no mailbox.
func (c *Client) GetUserMail(ctx context.Context, userID string) (string, error) {
	path := fmt.Sprintf("/users/%s?$select=mail,userPrincipalName", url.PathEscape(userID))

	var user struct {
		Mail              string `json:"mail"`
		UserPrincipalName string `json:"userPrincipalName"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &user); err != nil {
		return "", err
	}
	return user.Mail, nil
}

// SendMail sends an HTML email from the given user's mailbox with an
// optional text attachment
func (c *Client) SendMail(ctx context.Context, userID, toAddress, subject, htmlBody, attachmentName string, attachment []byte) error {
	path := fmt.Sprintf("/users/%s/sendMail", url.PathEscape(userID))

	message := map[string]interface{}{
		"subject": subject,
		"body": map[string]string{
			"contentType": "html",
			"content":     htmlBody,
		},
		"toRecipients": []map[string]interface{}{
			{"emailAddress": map[string]string{"address": toAddress}},
		},
	}
	if len(attachment) > 0 {
		message["attachments"] = []map[string]interface{}{
			{
				"@odata.type":  "#microsoft.graph.fileAttachment",
				"name":         attachmentName,
				"contentType":  "text/plain",
				"contentBytes": base64.StdEncoding.EncodeToString(attachment),
			},
		}
	}

	body := map[string]interface{}{"message": message, "saveToSentItems": false}
	return c.do(ctx, http.MethodPost, path, body, nil, nil)
}

// GetDrive resolves a user's personal drive id
func (c *Client) GetDrive(ctx context.Context, userID string) (string, error) {
	path := fmt.Sprintf("/users/%s/drive", url.PathEscape(userID))

	var drive struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &drive); err != nil {
		return "", err
	}
	return drive.ID, nil
}

// GetSpecialFolder locates a well-known folder on a drive (e.g.
// "recordings"). The returned drive id comes from the folder's parent
// reference, which may differ from the requested drive.
func (c *Client) GetSpecialFolder(ctx context.Context, driveID, name string) (folderID, folderDriveID string, err error) {
	path := fmt.Sprintf("/drives/%s/special/%s", url.PathEscape(driveID), url.PathEscape(name))

	var folder struct {
		ID              string `json:"id"`
		ParentReference struct {
			DriveID string `json:"driveId"`
		} `json:"parentReference"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &folder); err != nil {
		return "", "", err
	}

	folderDriveID = folder.ParentReference.DriveID
	if folderDriveID == "" {
		folderDriveID = driveID
	}
	return folder.ID, folderDriveID, nil
}

// UploadDriveItem uploads file content into a folder, overwriting any
// existing item with the same name
func (c *Client) UploadDriveItem(ctx context.Context, driveID, folderID, filename string, content []byte, contentType string) error {
	path := fmt.Sprintf("/drives/%s/items/%s:/%s:/content",
		url.PathEscape(driveID), url.PathEscape(folderID), url.PathEscape(filename))

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+path, bytes.NewReader(content))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("upload %s: platform returned status %d", filename, resp.StatusCode)
	}
	return nil
}

// ListSubscriptions lists the tenant's active webhook subscriptions
func (c *Client) ListSubscriptions(ctx context.Context) ([]entities.Subscription, error) {
	var result struct {
		Value []entities.Subscription `json:"value"`
	}
	if err := c.do(ctx, http.MethodGet, "/subscriptions", nil, nil, &result); err != nil {
		return nil, err
	}
	return result.Value, nil
}

// CreateSubscription registers a new webhook subscription
func (c *Client) CreateSubscription(ctx context.Context, sub entities.Subscription) (*entities.Subscription, error) {
	var created entities.Subscription
	if err := c.do(ctx, http.MethodPost, "/subscriptions", sub, nil, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// RenewSubscription extends a subscription's expiration, leaving all
// other fields untouched
func (c *Client) RenewSubscription(ctx context.Context, subscriptionID string, expiration time.Time) error {
	path := "/subscriptions/" + url.PathEscape(subscriptionID)
	body := map[string]string{
		"expirationDateTime": expiration.UTC().Format(time.RFC3339),
	}
	return c.do(ctx, http.MethodPatch, path, body, nil, nil)
}
