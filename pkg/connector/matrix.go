// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package connector

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/aiku/chatcmd/pkg/cmds"
	"github.com/aiku/chatcmd/pkg/markup"
)

// MatrixProtocolID identifies Matrix rooms.
const MatrixProtocolID = "prpl-matrix"

// MatrixSender sends room events. *mautrix.Client implements it.
type MatrixSender interface {
	SendMessageEvent(ctx context.Context, roomID id.RoomID, eventType event.Type, contentJSON any, extra ...mautrix.ReqSendEvent) (*mautrix.RespSendEvent, error)
}

var _ MatrixSender = (*mautrix.Client)(nil)

// ConnectMatrix logs in to homeserverURL with an access token and returns
// the client and the user it belongs to.
func ConnectMatrix(ctx context.Context, homeserverURL, accessToken string) (*mautrix.Client, id.UserID, error) {
	client, err := mautrix.NewClient(homeserverURL, "", accessToken)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create Matrix client: %w", err)
	}
	whoami, err := client.Whoami(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("authentication failed: %w", err)
	}
	client.UserID = whoami.UserID
	return client, whoami.UserID, nil
}

// MatrixRoom is a Matrix room used as a command conversation.
type MatrixRoom struct {
	ctx    context.Context
	sender MatrixSender
	roomID id.RoomID
	self   id.UserID
	kind   cmds.Kind
	log    zerolog.Logger

	sentLock sync.Mutex
	// sent holds events this room sent that have not come back from sync yet.
	sent map[id.EventID]struct{}
}

var _ Conversation = (*MatrixRoom)(nil)

// NewMatrixRoom returns the conversation for roomID as seen by self. ctx
// bounds every request the room makes.
func NewMatrixRoom(ctx context.Context, sender MatrixSender, roomID id.RoomID, self id.UserID, kind cmds.Kind, log zerolog.Logger) *MatrixRoom {
	return &MatrixRoom{
		ctx:    ctx,
		sender: sender,
		roomID: roomID,
		self:   self,
		kind:   kind,
		log:    log.With().Str("component", "matrix").Str("room_id", roomID.String()).Logger(),
		sent:   make(map[id.EventID]struct{}),
	}
}

func (r *MatrixRoom) Kind() cmds.Kind    { return r.kind }
func (r *MatrixRoom) ProtocolID() string { return MatrixProtocolID }
func (r *MatrixRoom) Name() string       { return r.roomID.String() }

// SendMessage sends rich as an m.text event, or as m.emote when it starts
// with "/me ".
func (r *MatrixRoom) SendMessage(rich string) error {
	msgType := event.MsgText
	if rest, ok := strings.CutPrefix(rich, "/me "); ok {
		msgType, rich = event.MsgEmote, rest
	}
	return r.send(msgType, rich)
}

// WriteSystem sends rich as an m.notice event. Matrix has no local-only
// messages, so notices are visible to the whole room.
func (r *MatrixRoom) WriteSystem(rich string) {
	if err := r.send(event.MsgNotice, rich); err != nil {
		r.log.Err(err).Msg("Failed to send notice")
	}
}

func (r *MatrixRoom) send(msgType event.MessageType, rich string) error {
	content := messageContent(msgType, rich)
	resp, err := r.sender.SendMessageEvent(r.ctx, r.roomID, event.EventMessage, content)
	if err != nil {
		return fmt.Errorf("failed to send Matrix message: %w", err)
	}
	r.sentLock.Lock()
	r.sent[resp.EventID] = struct{}{}
	r.sentLock.Unlock()
	r.log.Debug().Str("event_id", resp.EventID.String()).Msg("Sent message")
	return nil
}

// ownEcho reports whether evtID was sent by this room, forgetting it if so.
func (r *MatrixRoom) ownEcho(evtID id.EventID) bool {
	r.sentLock.Lock()
	defer r.sentLock.Unlock()
	if _, ok := r.sent[evtID]; !ok {
		return false
	}
	delete(r.sent, evtID)
	return true
}

func messageContent(msgType event.MessageType, rich string) *event.MessageEventContent {
	content := &event.MessageEventContent{
		MsgType: msgType,
		Body:    markup.Strip(rich),
	}
	if html.EscapeString(content.Body) != rich {
		content.Format = event.FormatHTML
		content.FormattedBody = rich
	}
	return content
}

// MatrixLine returns the plain and rich text of a text message.
func MatrixLine(content *event.MessageEventContent) (raw, rich string) {
	if content.Format == event.FormatHTML && content.FormattedBody != "" {
		rich = content.FormattedBody
	} else {
		rich = html.EscapeString(content.Body)
	}
	return markup.Strip(rich), rich
}

// HandleEvent passes a received room event to d if it is a text message
// typed by the local user. It reports whether d consumed it. Events from
// other users and events this room sent itself are never treated as
// commands.
func (r *MatrixRoom) HandleEvent(d *Dispatcher, evt *event.Event) bool {
	if evt.RoomID != r.roomID || evt.Sender != r.self || evt.Type != event.EventMessage {
		return false
	}
	if r.ownEcho(evt.ID) {
		r.log.Debug().Str("event_id", evt.ID.String()).Msg("Ignoring own message")
		return false
	}
	content := evt.Content.AsMessage()
	if content.MsgType != event.MsgText {
		return false
	}
	raw, rich := MatrixLine(content)
	return d.Handle(r, raw, rich)
}
