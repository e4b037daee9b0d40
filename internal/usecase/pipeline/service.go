package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/meetingscribe/transcript-relay/internal/domain/entities"
	"github.com/meetingscribe/transcript-relay/internal/infrastructure/external/graph"
	"github.com/meetingscribe/transcript-relay/internal/infrastructure/obs"
	"github.com/meetingscribe/transcript-relay/pkg/config"
	"github.com/meetingscribe/transcript-relay/pkg/runcontext"
)

// PlatformAPI is the slice of the meeting-platform client the
// orchestrator consumes. *graph.Client satisfies it; tests substitute
// fakes.
type PlatformAPI interface {
	GetTranscriptContent(ctx context.Context, userID, meetingID, transcriptID, format string) ([]byte, error)
	GetOnlineMeeting(ctx context.Context, userID, meetingID string) (*entities.MeetingContext, error)
	FindCalendarEvent(ctx context.Context, userID, subject string, start time.Time) (*graph.CalendarEvent, error)
	UpdateEventBody(ctx context.Context, userID, eventID, htmlBody string) error
	GetUserMail(ctx context.Context, userID string) (string, error)
	SendMail(ctx context.Context, userID, toAddress, subject, htmlBody, attachmentName string, attachment []byte) error
	GetDrive(ctx context.Context, userID string) (string, error)
	GetSpecialFolder(ctx context.Context, driveID, name string) (folderID, folderDriveID string, err error)
	UploadDriveItem(ctx context.Context, driveID, folderID, filename string, content []byte, contentType string) error
}

// Summarizer produces the meeting summary text
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (string, error)
}

// Archive keeps a site-wide copy of run artifacts; optional
type Archive interface {
	ArchiveTranscript(ctx context.Context, meetingID, filename string, content []byte, contentType string) error
	ArchiveSummary(ctx context.Context, meetingID, filename, summary string) error
}

// MarkerStore remembers completed runs to short-circuit clean
// redeliveries; optional and best effort
type MarkerStore interface {
	IsProcessed(ctx context.Context, transcriptID string) (bool, error)
	MarkProcessed(ctx context.Context, transcriptID string) error
}

// RunJournal persists run records for operational visibility and acts
// as the durable dedupe record behind the marker cache; optional
type RunJournal interface {
	CreateRun(ctx context.Context, run *entities.PipelineRun) error
	UpdateRun(ctx context.Context, run *entities.PipelineRun) error
	HasCompletedRun(ctx context.Context, transcriptID string) (bool, error)
}

// Service drives one orchestration run per queued notification
type Service interface {
	HandleNotification(ctx context.Context, notification entities.Notification) error
	Consume(ctx context.Context, data []byte, attempt int) error
}

// recordingsFolder is the well-known per-user storage location for
// meeting artifacts
const recordingsFolder = "recordings"

type service struct {
	platform   PlatformAPI
	summarizer Summarizer
	archive    Archive
	markers    MarkerStore
	journal    RunJournal
	cfg        *config.Config
	logger     *zap.Logger
	fanoutSem  chan struct{}
}

// NewService constructs the transcript orchestrator. archive, markers
// and journal may be nil; the pipeline degrades to logs-only.
func NewService(
	platform PlatformAPI,
	summarizer Summarizer,
	archive Archive,
	markers MarkerStore,
	journal RunJournal,
	cfg *config.Config,
	logger *zap.Logger,
) Service {
	return &service{
		platform:   platform,
		summarizer: summarizer,
		archive:    archive,
		markers:    markers,
		journal:    journal,
		cfg:        cfg,
		logger:     logger,
		fanoutSem:  make(chan struct{}, cfg.Pipeline.FanoutConcurrency),
	}
}

// Consume is the queue-facing entry point: one invocation per
// delivered message. Only transient fatal failures are surfaced to the
// queue (triggering redelivery); permanent failures are logged and the
// message acknowledged so it does not redeliver forever.
func (s *service) Consume(ctx context.Context, data []byte, attempt int) error {
	var notification entities.Notification
	if err := json.Unmarshal(data, &notification); err != nil {
		if s.logger != nil {
			s.logger.Error("dropping malformed queue payload", zap.Error(err))
		}
		return nil
	}

	runCtx, cancel := runcontext.RunBegin(ctx, notification.Resource, attempt, s.cfg.Pipeline.RunTimeout)
	defer cancel()

	err := s.HandleNotification(runCtx, notification)
	if err == nil {
		return nil
	}

	if runcontext.IsTransientError(err) {
		return err
	}

	if s.logger != nil {
		s.logger.Error("dropping permanently failed notification",
			zap.String("resource", notification.Resource),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
	return nil
}

// HandleNotification runs the full pipeline for one notification:
// locate, fetch transcript, fetch meeting metadata, summarize, then
// fan out to every recipient. The returned error is non-nil only for
// fatal stage failures; degraded and isolated failures are absorbed.
func (s *service) HandleNotification(ctx context.Context, notification entities.Notification) error {
	locator, ok := ParseResource(notification.Resource)
	if !ok {
		// Not every notification references a transcript; those are
		// ignored without noise.
		if s.logger != nil {
			s.logger.Debug("notification does not reference a transcript",
				zap.String("resource", notification.Resource),
			)
		}
		return nil
	}

	if s.alreadyProcessed(ctx, locator.TranscriptID) {
		if s.logger != nil {
			s.logger.Info("transcript already processed, skipping redelivery",
				zap.String("transcript_id", locator.TranscriptID),
			)
		}
		obs.PipelineRuns.WithLabelValues(string(entities.PipelineRunStatusSkipped)).Inc()
		return nil
	}

	run := entities.NewPipelineRun(locator)
	if s.journal != nil {
		if err := s.journal.CreateRun(ctx, run); err != nil && s.logger != nil {
			s.logger.Warn("failed to journal run start", zap.Error(err))
		}
	}

	err := s.run(ctx, locator, run)
	if err != nil {
		run.LastError = err.Error()
		run.Finish(entities.PipelineRunStatusFailed)
	}
	s.finishRun(ctx, run)

	if err == nil && (run.Status == entities.PipelineRunStatusCompleted || run.Status == entities.PipelineRunStatusDegraded) {
		s.markProcessed(ctx, locator.TranscriptID)
	}
	return err
}

// run executes stages 2-8 and fills in the run record. Returns only
// fatal errors.
func (s *service) run(ctx context.Context, locator entities.ResourceLocator, run *entities.PipelineRun) error {
	// Fetch transcript. Nothing downstream is possible without it;
	// redelivery is the retry mechanism.
	content, err := s.platform.GetTranscriptContent(ctx,
		locator.UserID, locator.MeetingID, locator.TranscriptID, s.cfg.Pipeline.TranscriptFormat)
	if err != nil {
		obs.StageFailures.WithLabelValues("fetch_transcript").Inc()
		if s.logger != nil {
			s.logger.Error("failed to fetch transcript content",
				zap.String("transcript_id", locator.TranscriptID),
				zap.Error(err),
			)
		}
		return fatal("fetch_transcript", err)
	}

	meeting, err := s.platform.GetOnlineMeeting(ctx, locator.UserID, locator.MeetingID)
	if err != nil {
		obs.StageFailures.WithLabelValues("fetch_meeting").Inc()
		if s.logger != nil {
			s.logger.Error("failed to fetch meeting metadata",
				zap.String("meeting_id", locator.MeetingID),
				zap.Error(err),
			)
		}
		return fatal("fetch_meeting", err)
	}
	run.Subject = meeting.Subject

	if s.logger != nil {
		s.logger.Info("processing transcript",
			zap.String("transcript_id", locator.TranscriptID),
			zap.String("subject", meeting.Subject),
			zap.String("organizer", meeting.Organizer.Name()),
			zap.Int("attendees", len(meeting.Attendees)),
			zap.Int("transcript_bytes", len(content)),
		)
	}

	// Summarize. Failure is non-fatal: summary-dependent steps are
	// skipped, raw transcript delivery still proceeds.
	var summary *entities.Summary
	if text, err := s.summarizer.Summarize(ctx, string(content)); err != nil {
		obs.StageFailures.WithLabelValues("summarize").Inc()
		if s.logger != nil {
			s.logger.Warn("summarization failed, continuing with transcript only",
				zap.String("transcript_id", locator.TranscriptID),
				zap.Error(err),
			)
		}
	} else {
		summary = &entities.Summary{Text: text}
		run.SummaryGenerated = true
	}

	artifact := entities.NewTranscriptArtifact(content, "text/plain", meeting.Subject, meeting.StartTime)

	s.archiveArtifacts(ctx, locator, artifact, summary)

	// Calendar update, organizer email and the per-recipient drive
	// fan-out are mutually independent; run them concurrently over the
	// shared read-only artifact/summary/meeting snapshot.
	var wg sync.WaitGroup
	degraded := false
	var degradedMu sync.Mutex
	markDegraded := func() {
		degradedMu.Lock()
		degraded = true
		degradedMu.Unlock()
	}

	if summary != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.updateCalendar(ctx, meeting, summary); err != nil {
				markDegraded()
			}
		}()

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.emailOrganizer(ctx, meeting, artifact, summary); err != nil {
				markDegraded()
			}
		}()
	}

	outcomes := s.fanout(ctx, meeting, artifact, summary)
	wg.Wait()

	run.Recipients = datatypes.NewJSONType(outcomes)
	for _, outcome := range outcomes {
		if !outcome.Uploaded {
			markDegraded()
		}
	}

	if summary == nil || degraded {
		run.Finish(entities.PipelineRunStatusDegraded)
	} else {
		run.Finish(entities.PipelineRunStatusCompleted)
	}
	return nil
}

// updateCalendar locates the organizer's event matching subject and
// start time exactly and appends the rendered summary block to its
// body. A missing event is logged and skipped.
func (s *service) updateCalendar(ctx context.Context, meeting *entities.MeetingContext, summary *entities.Summary) error {
	event, err := s.platform.FindCalendarEvent(ctx, meeting.Organizer.ID, meeting.Subject, meeting.StartTime)
	if err != nil {
		obs.StageFailures.WithLabelValues("calendar").Inc()
		if s.logger != nil {
			s.logger.Warn("failed to look up calendar event", zap.Error(err))
		}
		return err
	}
	if event == nil {
		if s.logger != nil {
			s.logger.Info("no calendar event matches meeting, skipping calendar update",
				zap.String("subject", meeting.Subject),
				zap.Time("start", meeting.StartTime),
			)
		}
		return nil
	}

	newBody := appendSummaryToBody(event.Body.Content, summary.Text)
	if err := s.platform.UpdateEventBody(ctx, meeting.Organizer.ID, event.ID, newBody); err != nil {
		obs.StageFailures.WithLabelValues("calendar").Inc()
		if s.logger != nil {
			s.logger.Warn("failed to update calendar event",
				zap.String("event_id", event.ID),
				zap.Error(err),
			)
		}
		return err
	}

	if s.logger != nil {
		s.logger.Info("calendar event updated with summary", zap.String("event_id", event.ID))
	}
	return nil
}

// emailOrganizer sends the rendered summary to the organizer's mailbox
// with the raw transcript attached. A missing mailbox is a skip.
func (s *service) emailOrganizer(ctx context.Context, meeting *entities.MeetingContext, artifact *entities.TranscriptArtifact, summary *entities.Summary) error {
	address, err := s.platform.GetUserMail(ctx, meeting.Organizer.ID)
	if err != nil {
		obs.StageFailures.WithLabelValues("mail").Inc()
		if s.logger != nil {
			s.logger.Warn("failed to resolve organizer mailbox", zap.Error(err))
		}
		return err
	}
	if address == "" {
		if s.logger != nil {
			s.logger.Info("organizer has no mailbox, skipping email",
				zap.String("organizer_id", meeting.Organizer.ID),
			)
		}
		return nil
	}

	subject := fmt.Sprintf("Meeting Summary: %s", meeting.Subject)
	body := renderEmailBody(meeting.Subject, summary.Text)
	if err := s.platform.SendMail(ctx, meeting.Organizer.ID, address, subject, body,
		artifact.TranscriptFilename(), artifact.Content); err != nil {
		obs.StageFailures.WithLabelValues("mail").Inc()
		if s.logger != nil {
			s.logger.Warn("failed to send summary email", zap.Error(err))
		}
		return err
	}

	if s.logger != nil {
		s.logger.Info("summary email sent", zap.String("to", address))
	}
	return nil
}

// fanout uploads the artifacts to every recipient's recordings folder.
// Branches are isolated: one recipient's failure never aborts the
// others. Concurrency is bounded by the configured ceiling to stay
// inside the upstream API's rate limits.
func (s *service) fanout(ctx context.Context, meeting *entities.MeetingContext, artifact *entities.TranscriptArtifact, summary *entities.Summary) []entities.RecipientOutcome {
	recipients := meeting.Recipients()
	outcomes := make([]entities.RecipientOutcome, len(recipients))

	var wg sync.WaitGroup
	for i, recipient := range recipients {
		wg.Add(1)
		go func(i int, recipient entities.Recipient) {
			defer wg.Done()

			s.fanoutSem <- struct{}{}
			defer func() { <-s.fanoutSem }()

			outcome := entities.RecipientOutcome{
				RecipientID: recipient.Identity.ID,
				DisplayName: recipient.Identity.DisplayName,
				IsOrganizer: recipient.IsOrganizer,
			}
			if err := s.deliverToRecipient(ctx, recipient, artifact, summary); err != nil {
				obs.FanoutUploads.WithLabelValues("failed").Inc()
				outcome.Error = err.Error()
				if s.logger != nil {
					s.logger.Warn("recipient delivery failed",
						zap.String("recipient", recipient.Identity.Name()),
						zap.Error(err),
					)
				}
			} else {
				obs.FanoutUploads.WithLabelValues("ok").Inc()
				outcome.Uploaded = true
			}
			outcomes[i] = outcome
		}(i, recipient)
	}
	wg.Wait()

	return outcomes
}

// deliverToRecipient resolves one recipient's drive and recordings
// folder and uploads the transcript and, when present, the summary.
// Uploads overwrite by filename, which is what makes redelivery safe.
func (s *service) deliverToRecipient(ctx context.Context, recipient entities.Recipient, artifact *entities.TranscriptArtifact, summary *entities.Summary) error {
	driveID, err := s.platform.GetDrive(ctx, recipient.Identity.ID)
	if err != nil {
		return fmt.Errorf("failed to resolve drive: %w", err)
	}

	folderID, folderDriveID, err := s.platform.GetSpecialFolder(ctx, driveID, recordingsFolder)
	if err != nil {
		return fmt.Errorf("failed to locate recordings folder: %w", err)
	}

	if err := s.platform.UploadDriveItem(ctx, folderDriveID, folderID,
		artifact.TranscriptFilename(), artifact.Content, artifact.ContentType); err != nil {
		return fmt.Errorf("failed to upload transcript: %w", err)
	}

	if summary != nil {
		if err := s.platform.UploadDriveItem(ctx, folderDriveID, folderID,
			artifact.SummaryFilename(), []byte(summary.Text), "text/plain"); err != nil {
			return fmt.Errorf("failed to upload summary: %w", err)
		}
	}

	if s.logger != nil {
		s.logger.Info("artifacts uploaded",
			zap.String("recipient", recipient.Identity.Name()),
			zap.String("filename", artifact.TranscriptFilename()),
			zap.Bool("with_summary", summary != nil),
		)
	}
	return nil
}

// archiveArtifacts lands a site-wide copy of the artifacts in the
// object archive. Never fails the run.
func (s *service) archiveArtifacts(ctx context.Context, locator entities.ResourceLocator, artifact *entities.TranscriptArtifact, summary *entities.Summary) {
	if s.archive == nil {
		return
	}

	if err := s.archive.ArchiveTranscript(ctx, locator.MeetingID,
		artifact.TranscriptFilename(), artifact.Content, artifact.ContentType); err != nil {
		obs.StageFailures.WithLabelValues("archive").Inc()
		if s.logger != nil {
			s.logger.Warn("failed to archive transcript", zap.Error(err))
		}
	}
	if summary != nil {
		if err := s.archive.ArchiveSummary(ctx, locator.MeetingID,
			artifact.SummaryFilename(), summary.Text); err != nil {
			obs.StageFailures.WithLabelValues("archive").Inc()
			if s.logger != nil {
				s.logger.Warn("failed to archive summary", zap.Error(err))
			}
		}
	}
}

// alreadyProcessed consults the marker cache first and falls back to
// the run journal, so dedupe survives a marker store flush. Lookup
// errors never block a run.
func (s *service) alreadyProcessed(ctx context.Context, transcriptID string) bool {
	if s.markers != nil {
		seen, err := s.markers.IsProcessed(ctx, transcriptID)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("marker lookup failed, falling back to journal", zap.Error(err))
			}
		} else if seen {
			return true
		}
	}

	if s.journal != nil {
		done, err := s.journal.HasCompletedRun(ctx, transcriptID)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("journal lookup failed, proceeding with run", zap.Error(err))
			}
			return false
		}
		return done
	}
	return false
}

func (s *service) markProcessed(ctx context.Context, transcriptID string) {
	if s.markers == nil {
		return
	}
	if err := s.markers.MarkProcessed(ctx, transcriptID); err != nil && s.logger != nil {
		s.logger.Warn("failed to record processed marker", zap.Error(err))
	}
}

func (s *service) finishRun(ctx context.Context, run *entities.PipelineRun) {
	obs.ObserveRun(string(run.Status), run.StartedAt)
	if s.journal == nil {
		return
	}
	if err := s.journal.UpdateRun(ctx, run); err != nil && s.logger != nil {
		s.logger.Warn("failed to journal run result", zap.Error(err))
	}
}
