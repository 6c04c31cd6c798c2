package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/regalspin/gamepanel/pkg/bridge"
)

const defaultAPIBase = "https://api.telegram.org"

// Settings holds the configuration for one Telegram operator channel
type Settings struct {
	BotToken string
	ChatID   string

	// ProxyBase optionally wraps every API call in an intermediary proxy
	// (the adapter may run behind cross-origin restrictions)
	ProxyBase string

	// APIBase overrides the Telegram endpoint, used in tests
	APIBase string

	// HTTPClient overrides the default client, used in tests
	HTTPClient *http.Client
}

// Adapter implements bridge.Bridge over the Telegram Bot HTTP API: prompts
// go out as sendMessage with an inline keyboard, operator actions come back
// through getUpdates keyed by a strictly increasing update offset.
type Adapter struct {
	settings Settings
	client   *http.Client
}

// New creates a Telegram bridge adapter
func New(settings Settings) *Adapter {
	client := settings.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if settings.APIBase == "" {
		settings.APIBase = defaultAPIBase
	}
	settings.BotToken = strings.TrimSpace(settings.BotToken)
	settings.ChatID = strings.TrimSpace(settings.ChatID)

	return &Adapter{settings: settings, client: client}
}

type inlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

type callbackMessage struct {
	MessageID int64 `json:"message_id"`
	Chat      struct {
		ID int64 `json:"id"`
	} `json:"chat"`
}

type callbackQuery struct {
	ID      string           `json:"id"`
	Data    string           `json:"data"`
	Message *callbackMessage `json:"message"`
}

type getUpdatesResponse struct {
	OK     bool `json:"ok"`
	Result []struct {
		UpdateID      int64          `json:"update_id"`
		CallbackQuery *callbackQuery `json:"callback_query"`
	} `json:"result"`
}

// Send delivers a prompt with inline approve/decline buttons
func (a *Adapter) Send(ctx context.Context, message string, buttons []bridge.Button) error {
	if a.settings.BotToken == "" || a.settings.ChatID == "" {
		return fmt.Errorf("telegram channel not configured")
	}

	params := url.Values{}
	params.Set("chat_id", a.settings.ChatID)
	params.Set("text", message)
	params.Set("parse_mode", "HTML")

	if len(buttons) > 0 {
		row := make([]inlineButton, 0, len(buttons))
		for _, b := range buttons {
			row = append(row, inlineButton{Text: b.Label, CallbackData: b.Token})
		}
		markup, err := json.Marshal(map[string]interface{}{
			"inline_keyboard": [][]inlineButton{row},
		})
		if err != nil {
			return fmt.Errorf("error marshaling reply markup: %w", err)
		}
		params.Set("reply_markup", string(markup))
	}

	// Cache bust so intermediaries deliver the message immediately
	params.Set("_t", fmt.Sprintf("%d", time.Now().UnixMilli()))

	resp, err := a.get(ctx, a.methodURL("sendMessage", params))
	if err != nil {
		return fmt.Errorf("error sending telegram message: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram sendMessage returned status %d", resp.StatusCode)
	}
	return nil
}

// PollOnce queries getUpdates starting at cursor and scans callback queries
// for the correlation string. The returned cursor advances past every
// observed update so nothing is processed twice.
func (a *Adapter) PollOnce(ctx context.Context, correlation string, cursor int64) (bridge.Update, error) {
	if a.settings.BotToken == "" {
		return bridge.Update{NextCursor: cursor}, fmt.Errorf("telegram channel not configured")
	}

	allowed, _ := json.Marshal([]string{"callback_query"})

	params := url.Values{}
	params.Set("limit", "10")
	params.Set("timeout", "0")
	params.Set("offset", fmt.Sprintf("%d", cursor))
	params.Set("allowed_updates", string(allowed))
	params.Set("_t", fmt.Sprintf("%d", time.Now().UnixMilli()))

	resp, err := a.get(ctx, a.methodURL("getUpdates", params))
	if err != nil {
		return bridge.Update{NextCursor: cursor}, fmt.Errorf("error polling telegram updates: %w", err)
	}
	defer resp.Body.Close()

	var payload getUpdatesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return bridge.Update{NextCursor: cursor}, fmt.Errorf("error decoding telegram updates: %w", err)
	}

	maxUpdateID := cursor
	if payload.OK {
		for _, update := range payload.Result {
			if update.UpdateID >= maxUpdateID {
				maxUpdateID = update.UpdateID + 1
			}

			if update.CallbackQuery == nil || update.CallbackQuery.Data == "" {
				continue
			}

			action, ok := bridge.MatchToken(update.CallbackQuery.Data, correlation)
			if !ok {
				continue
			}

			// Fire and forget: stop the operator-side loading spinner and
			// replace the buttons with the outcome
			a.answerCallback(update.CallbackQuery.ID, update.CallbackQuery.Message, action)

			return bridge.Update{Matched: true, Action: action, NextCursor: maxUpdateID}, nil
		}
	}

	return bridge.Update{NextCursor: maxUpdateID}, nil
}

// answerCallback acknowledges the button press and edits the message markup
// so the prompt shows its outcome. Best effort only.
func (a *Adapter) answerCallback(callbackID string, message *callbackMessage, action bridge.Action) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		params := url.Values{}
		params.Set("callback_query_id", callbackID)
		params.Set("text", "Processing...")
		if resp, err := a.get(ctx, a.methodURL("answerCallbackQuery", params)); err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		if message == nil {
			return
		}

		label := "Done"
		if action == bridge.ActionDecline {
			label = "Declined"
		}
		markup, err := json.Marshal(map[string]interface{}{
			"inline_keyboard": [][]inlineButton{{{Text: label, CallbackData: "ignore_completed"}}},
		})
		if err != nil {
			return
		}

		params = url.Values{}
		params.Set("chat_id", fmt.Sprintf("%d", message.Chat.ID))
		params.Set("message_id", fmt.Sprintf("%d", message.MessageID))
		params.Set("reply_markup", string(markup))
		if resp, err := a.get(ctx, a.methodURL("editMessageReplyMarkup", params)); err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		} else {
			log.Printf("[TELEGRAM] Error editing message markup: %v", err)
		}
	}()
}

// methodURL builds a bot API URL, wrapped in the proxy when configured
func (a *Adapter) methodURL(method string, params url.Values) string {
	raw := fmt.Sprintf("%s/bot%s/%s?%s", a.settings.APIBase, a.settings.BotToken, method, params.Encode())
	if a.settings.ProxyBase != "" {
		return a.settings.ProxyBase + url.QueryEscape(raw)
	}
	return raw
}

func (a *Adapter) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return a.client.Do(req)
}
