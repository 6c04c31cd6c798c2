package discord

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/regalspin/gamepanel/pkg/bridge"
)

// Session defines the subset of Discord session operations the bridge uses
type Session interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	AddHandler(handler interface{}) func()
	Open() error
	Close() error
}

// event is one recorded operator button press
type event struct {
	seq   int64
	token string
}

// Adapter implements bridge.Bridge over a Discord channel: prompts go out
// as messages with approve/decline buttons, and component interactions are
// buffered with sequence numbers so PollOnce has the same cursor semantics
// as a long-poll message queue.
type Adapter struct {
	session   Session
	channelID string

	mu      sync.Mutex
	nextSeq int64
	events  []event

	removeHandler func()
}

// New creates a Discord bridge adapter for an operator channel
func New(session Session, channelID string) *Adapter {
	a := &Adapter{
		session:   session,
		channelID: channelID,
	}
	a.removeHandler = session.AddHandler(a.handleInteraction)
	return a
}

// NewWithToken creates an adapter with its own discordgo session
func NewWithToken(token, channelID string) (*Adapter, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	return New(session, channelID), nil
}

// Open connects the underlying session
func (a *Adapter) Open() error {
	return a.session.Open()
}

// Close detaches the interaction handler and closes the session
func (a *Adapter) Close() error {
	if a.removeHandler != nil {
		a.removeHandler()
	}
	return a.session.Close()
}

// Send delivers a prompt with approve/decline buttons to the operator channel
func (a *Adapter) Send(ctx context.Context, message string, buttons []bridge.Button) error {
	components := make([]discordgo.MessageComponent, 0, len(buttons))
	for _, b := range buttons {
		style := discordgo.SuccessButton
		if strings.HasPrefix(b.Token, string(bridge.ActionDecline)) {
			style = discordgo.DangerButton
		}
		components = append(components, discordgo.Button{
			Label:    b.Label,
			Style:    style,
			CustomID: b.Token,
		})
	}

	send := &discordgo.MessageSend{Content: message}
	if len(components) > 0 {
		send.Components = []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: components},
		}
	}

	if _, err := a.session.ChannelMessageSendComplex(a.channelID, send); err != nil {
		return fmt.Errorf("error sending discord message: %w", err)
	}
	return nil
}

// PollOnce scans buffered interactions at or past cursor for the correlation
// string. Matched or not, the returned cursor moves past everything seen.
func (a *Adapter) PollOnce(ctx context.Context, correlation string, cursor int64) (bridge.Update, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	next := cursor
	for _, ev := range a.events {
		if ev.seq < cursor {
			continue
		}
		if ev.seq >= next {
			next = ev.seq + 1
		}

		if action, ok := bridge.MatchToken(ev.token, correlation); ok {
			return bridge.Update{Matched: true, Action: action, NextCursor: next}, nil
		}
	}

	return bridge.Update{NextCursor: next}, nil
}

// handleInteraction records operator button presses as they arrive
func (a *Adapter) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}

	customID := i.MessageComponentData().CustomID
	if customID == "ignore_completed" {
		return
	}

	// Acknowledge the interaction immediately so the operator's client
	// stops its loading state
	err := a.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
	if err != nil {
		log.Printf("[DISCORD] Error acknowledging interaction: %v", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.events = append(a.events, event{seq: a.nextSeq, token: customID})
	a.nextSeq++

	// Keep the buffer bounded; pollers only look forward from their cursor
	if len(a.events) > 200 {
		a.events = a.events[len(a.events)-100:]
	}
}
