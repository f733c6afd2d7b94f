package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TeamsClient posts adaptive cards to an incoming-webhook URL. Lost/broken
// reports can go to a dedicated channel; when no dedicated URL is configured
// they fall back to the main one.
type TeamsClient struct {
	webhookURL           string
	lostBrokenWebhookURL string
	httpClient           *http.Client
}

func NewTeamsClient(webhookURL, lostBrokenWebhookURL string) *TeamsClient {
	return &TeamsClient{
		webhookURL:           webhookURL,
		lostBrokenWebhookURL: lostBrokenWebhookURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *TeamsClient) Send(ctx context.Context, ev Event) error {
	url := c.webhookURL
	if ev.RequestType == "LOST_BROKEN" && c.lostBrokenWebhookURL != "" {
		url = c.lostBrokenWebhookURL
	}
	if url == "" {
		return nil
	}

	payload := buildCard(ev)
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal teams card: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create teams request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post teams webhook: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("teams webhook returned status %d", resp.StatusCode)
	}
	return nil
}

type cardElement map[string]interface{}

func buildCard(ev Event) map[string]interface{} {
	title := fmt.Sprintf("PPE request %s", ev.NewStatus)
	color := "Good"
	if ev.Kind == KindRejected {
		color = "Attention"
	}
	if ev.RequestType == "LOST_BROKEN" {
		color = "Warning"
	}

	facts := []cardElement{
		{"title": "Requester", "value": ev.RequesterName},
		{"title": "Department", "value": ev.DeptName},
		{"title": "Item", "value": fmt.Sprintf("%s x%d %s", ev.ItemName, ev.Quantity, ev.Unit)},
		{"title": "Status", "value": ev.NewStatus},
	}
	body := []cardElement{
		{"type": "TextBlock", "text": title, "weight": "Bolder", "size": "Medium", "color": color},
		{"type": "FactSet", "facts": facts},
	}
	if ev.Note != "" {
		body = append(body, cardElement{"type": "TextBlock", "text": "Note: " + ev.Note, "wrap": true})
	}
	if ev.IncidentSummary != "" {
		body = append(body, cardElement{"type": "TextBlock", "text": "Incident: " + ev.IncidentSummary, "wrap": true})
	}

	return map[string]interface{}{
		"type": "message",
		"attachments": []cardElement{
			{
				"contentType": "application/vnd.microsoft.card.adaptive",
				"content": cardElement{
					"$schema": "http://adaptivecards.io/schemas/adaptive-card.json",
					"type":    "AdaptiveCard",
					"version": "1.2",
					"body":    body,
				},
			},
		},
	}
}
