package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/amishk599/jobsync/internal/model"
)

// Ensure SlackNotifier implements model.RunNotifier.
var _ model.RunNotifier = (*SlackNotifier)(nil)

// SlackNotifier posts run summaries to a Slack channel via Incoming Webhooks.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	when       When
	logger     *zap.Logger
}

// NewSlackNotifier returns a notifier that posts runs matching when.
func NewSlackNotifier(webhookURL string, httpClient *http.Client, when When, logger *zap.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: httpClient,
		when:       when,
		logger:     logger,
	}
}

// NotifyRun sends one Block Kit message. A 429 is retried once after
// Retry-After.
func (s *SlackNotifier) NotifyRun(ctx context.Context, run model.SyncRun) error {
	if !s.when.wants(run) {
		return nil
	}

	body, err := json.Marshal(buildPayload(run))
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	status, retryAfter, err := s.post(ctx, body)
	if err != nil {
		return err
	}
	if status == http.StatusTooManyRequests {
		s.logger.Warn("slack rate limited, retrying", zap.Duration("retry_after", retryAfter))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryAfter):
		}
		status, _, err = s.post(ctx, body)
		if err != nil {
			return fmt.Errorf("retry: %w", err)
		}
	}
	if status != http.StatusOK {
		return fmt.Errorf("slack returned %d", status)
	}
	s.logger.Debug("slack message sent", zap.String("pipeline", run.PipelineName), zap.Int64("run_id", run.ID))
	return nil
}

func (s *SlackNotifier) post(ctx context.Context, body []byte) (int, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return 0, 0, fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()

	secs, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
	if secs <= 0 {
		secs = 1
	}
	return resp.StatusCode, time.Duration(secs) * time.Second, nil
}

// Block Kit payload types.

type slackPayload struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Fields   []slackText `json:"fields,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func mrkdwn(label, value string) slackText {
	return slackText{Type: "mrkdwn", Text: "*" + label + ":*\n" + value}
}

func buildPayload(run model.SyncRun) slackPayload {
	icon, verb := "✅", "succeeded"
	if run.Status == model.RunFailed {
		icon, verb = "❌", "failed"
	}

	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: fmt.Sprintf("%s %s sync %s", icon, run.PipelineName, verb)},
		},
		{
			Type: "section",
			Fields: []slackText{
				mrkdwn("Mode", string(run.Mode)),
				mrkdwn("Duration", run.Duration().Round(time.Second).String()),
			},
		},
		{
			Type: "section",
			Fields: []slackText{
				mrkdwn("Processed", strconv.Itoa(run.JobsProcessed)),
				mrkdwn("Inserted", strconv.Itoa(run.JobsInserted)),
				mrkdwn("Updated", strconv.Itoa(run.JobsUpdated)),
				mrkdwn("Failed", fmt.Sprintf("%d records, %d pages", run.JobsFailed, run.PagesFailed)),
			},
		},
	}

	if run.ErrorMessage != "" {
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: "```" + run.ErrorMessage + "```"},
		})
	}

	contextText := fmt.Sprintf("run #%d · started %s", run.ID, run.StartTime.UTC().Format(time.RFC1123))
	if run.CursorValue != "" {
		contextText += " · cursor " + run.CursorValue
	}
	blocks = append(blocks,
		slackBlock{Type: "context", Elements: []slackText{{Type: "mrkdwn", Text: contextText}}},
		slackBlock{Type: "divider"},
	)

	return slackPayload{Blocks: blocks}
}
