package discord

import (
	"context"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regalspin/gamepanel/pkg/bridge"
)

// fakeSession records the messages and acknowledgements the adapter sends
type fakeSession struct {
	sent     []*discordgo.MessageSend
	acked    []*discordgo.InteractionResponse
	handlers []interface{}
}

func (f *fakeSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.sent = append(f.sent, data)
	return &discordgo.Message{}, nil
}

func (f *fakeSession) InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error {
	f.acked = append(f.acked, resp)
	return nil
}

func (f *fakeSession) AddHandler(handler interface{}) func() {
	f.handlers = append(f.handlers, handler)
	return func() {}
}

func (f *fakeSession) Open() error  { return nil }
func (f *fakeSession) Close() error { return nil }

func press(adapter *Adapter, token string) {
	adapter.handleInteraction(nil, &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type: discordgo.InteractionMessageComponent,
			Data: discordgo.MessageComponentInteractionData{CustomID: token},
		},
	})
}

func TestSendBuildsButtons(t *testing.T) {
	session := &fakeSession{}
	adapter := New(session, "chan1")

	buttons := []bridge.Button{
		{Label: "Confirm", Token: "approve:u1:r1"},
		{Label: "Decline", Token: "decline:u1:r1"},
	}
	require.NoError(t, adapter.Send(context.Background(), "APPROVAL REQUEST", buttons))

	require.Len(t, session.sent, 1)
	sent := session.sent[0]
	assert.Equal(t, "APPROVAL REQUEST", sent.Content)

	require.Len(t, sent.Components, 1)
	row, ok := sent.Components[0].(discordgo.ActionsRow)
	require.True(t, ok)
	require.Len(t, row.Components, 2)

	confirm := row.Components[0].(discordgo.Button)
	assert.Equal(t, "approve:u1:r1", confirm.CustomID)
	assert.Equal(t, discordgo.SuccessButton, confirm.Style)

	decline := row.Components[1].(discordgo.Button)
	assert.Equal(t, "decline:u1:r1", decline.CustomID)
	assert.Equal(t, discordgo.DangerButton, decline.Style)
}

func TestPollOnceMatchesBufferedPress(t *testing.T) {
	session := &fakeSession{}
	adapter := New(session, "chan1")

	update, err := adapter.PollOnce(context.Background(), "r1", 0)
	require.NoError(t, err)
	assert.False(t, update.Matched)

	press(adapter, "approve:u1:r1")

	update, err = adapter.PollOnce(context.Background(), "r1", 0)
	require.NoError(t, err)
	assert.True(t, update.Matched)
	assert.Equal(t, bridge.ActionApprove, update.Action)
	assert.Equal(t, int64(1), update.NextCursor)

	// The press was acknowledged so the operator client stops loading
	require.Len(t, session.acked, 1)
	assert.Equal(t, discordgo.InteractionResponseDeferredMessageUpdate, session.acked[0].Type)
}

func TestPollOnceCursorSkipsObservedEvents(t *testing.T) {
	session := &fakeSession{}
	adapter := New(session, "chan1")

	press(adapter, "approve:u9:other")
	press(adapter, "decline:u1:r1")

	// First poll only sees the foreign press and advances past it
	update, err := adapter.PollOnce(context.Background(), "r9-none", 0)
	require.NoError(t, err)
	assert.False(t, update.Matched)
	assert.Equal(t, int64(2), update.NextCursor)

	// A poller for r1 starting at that cursor misses nothing
	update, err = adapter.PollOnce(context.Background(), "r1", 1)
	require.NoError(t, err)
	assert.True(t, update.Matched)
	assert.Equal(t, bridge.ActionDecline, update.Action)
}

func TestHandleInteractionIgnoresCompletedMarker(t *testing.T) {
	session := &fakeSession{}
	adapter := New(session, "chan1")

	press(adapter, "ignore_completed")

	update, err := adapter.PollOnce(context.Background(), "ignore_completed", 0)
	require.NoError(t, err)
	assert.False(t, update.Matched)
	assert.Empty(t, session.acked, "Completed markers are not acknowledged")
}
