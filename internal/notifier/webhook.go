package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/slotwatch/internal/common"
	"github.com/rs/zerolog"
)

const webhookTimeout = 20 * time.Second

// webhookPayload is a Discord-compatible webhook body. Other webhook
// receivers that accept {content, embeds} work unchanged.
type webhookPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []webhookEmbed `json:"embeds,omitempty"`
}

type webhookEmbed struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []embedField `json:"fields,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// WebhookChannel posts availability events to a configured webhook URL.
type WebhookChannel struct {
	webhookURL     string
	mentionRoleIDs []string
	httpClient     *http.Client
	logger         zerolog.Logger
}

// NewWebhookChannel validates the URL once at construction.
func NewWebhookChannel(webhookURL string, mentionRoleIDs []string, logger zerolog.Logger) (*WebhookChannel, error) {
	if _, err := url.ParseRequestURI(webhookURL); err != nil {
		return nil, common.NewValidationError("webhook_url", webhookURL, "not a valid URL")
	}
	return &WebhookChannel{
		webhookURL:     webhookURL,
		mentionRoleIDs: mentionRoleIDs,
		httpClient:     &http.Client{Timeout: webhookTimeout},
		logger:         logger.With().Str("component", "WebhookChannel").Logger(),
	}, nil
}

// Name identifies the channel in dispatch results.
func (c *WebhookChannel) Name() string { return "webhook" }

// Send posts the payload. Non-2xx responses are dispatch failures.
func (c *WebhookChannel) Send(ctx context.Context, msg *Message) error {
	payload := c.buildPayload(msg)

	body, err := json.Marshal(payload)
	if err != nil {
		return common.NewDispatchError(c.Name(), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return common.NewDispatchError(c.Name(), err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return common.NewDispatchError(c.Name(), err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return common.NewDispatchError(c.Name(),
			common.NewError("webhook returned status %d", resp.StatusCode))
	}
	return nil
}

func (c *WebhookChannel) buildPayload(msg *Message) webhookPayload {
	var fields []embedField
	for _, app := range msg.Appointments {
		value := app.TimeRange
		if app.Location != "" {
			value += " @ " + app.Location
		}
		if app.RegistrationRef != "" {
			value += "\n" + app.RegistrationRef
		}
		fields = append(fields, embedField{
			Name:   app.Date + " " + app.Category,
			Value:  strings.TrimSpace(value),
			Inline: false,
		})
	}

	var content string
	if len(c.mentionRoleIDs) > 0 {
		mentions := make([]string, 0, len(c.mentionRoleIDs))
		for _, id := range c.mentionRoleIDs {
			mentions = append(mentions, fmt.Sprintf("<@&%s>", id))
		}
		content = strings.Join(mentions, " ")
	}

	return webhookPayload{
		Content: content,
		Embeds: []webhookEmbed{{
			Title:       msg.Title,
			Description: msg.Body,
			Color:       0x2ecc71,
			Fields:      fields,
			Timestamp:   msg.CreatedAt.UTC().Format(time.RFC3339),
		}},
	}
}
