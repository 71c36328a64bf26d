package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/npearse/matchhall/internal/service"
)

// WebhookNotifier posts open-game summaries to a per-guild webhook URL.
// It is the broadcast half of the chat-gateway collaborator; the gateway
// turns the payload into whatever the platform renders.
type WebhookNotifier struct {
	urls   map[int64]string
	client *http.Client
}

func NewWebhookNotifier(urls map[int64]string) *WebhookNotifier {
	return &WebhookNotifier{
		urls:   urls,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type openGamesPayload struct {
	GuildID int64             `json:"guild_id"`
	Title   string            `json:"title"`
	Games   []service.Listing `json:"games"`
}

func (n *WebhookNotifier) NotifyOpenGames(ctx context.Context, guildID int64, games []service.Listing) error {
	url, ok := n.urls[guildID]
	if !ok {
		return fmt.Errorf("no webhook configured for guild %d", guildID)
	}

	body, err := json.Marshal(openGamesPayload{
		GuildID: guildID,
		Title:   "Recent open games",
		Games:   games,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook for guild %d returned status %d", guildID, resp.StatusCode)
	}
	return nil
}
