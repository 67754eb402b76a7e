// Copyright 2024-2026 Aiku AI

package connector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mattermost/mattermost/server/public/model"
	"github.com/rs/zerolog"

	"github.com/aiku/chatcmd/pkg/cmds"
	"github.com/aiku/chatcmd/pkg/markup"
)

// MattermostProtocolID identifies Mattermost channels.
const MattermostProtocolID = "prpl-mattermost"

const (
	// SentProp marks every post the channel creates.
	SentProp = "chatcmd_sent"
	// NoticeProp marks posts written by WriteSystem.
	NoticeProp = "chatcmd_notice"
)

var errMissingPost = errors.New("posted event missing post data")

// MattermostAPI is the part of the REST client the channel needs.
// *model.Client4 implements it.
type MattermostAPI interface {
	CreatePost(ctx context.Context, post *model.Post) (*model.Post, *model.Response, error)
}

var _ MattermostAPI = (*model.Client4)(nil)

// MattermostSession is an authenticated Mattermost login.
type MattermostSession struct {
	Client *model.Client4
	User   *model.User
}

// ConnectMattermost authenticates with serverURL using a personal access
// or bot token.
func ConnectMattermost(ctx context.Context, serverURL, token string) (*MattermostSession, error) {
	client := model.NewAPIv4Client(serverURL)
	client.SetToken(token)

	me, _, err := client.GetMe(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	return &MattermostSession{Client: client, User: me}, nil
}

// Channel fetches a channel and returns it as a conversation.
func (s *MattermostSession) Channel(ctx context.Context, channelID string, log zerolog.Logger) (*MattermostChannel, error) {
	channel, _, err := s.Client.GetChannel(ctx, channelID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to get channel info: %w", err)
	}
	return NewMattermostChannel(ctx, s.Client, channel, s.User.Id, log), nil
}

// MattermostChannel is a Mattermost channel used as a command conversation.
type MattermostChannel struct {
	ctx     context.Context
	api     MattermostAPI
	channel *model.Channel
	userID  string
	log     zerolog.Logger
}

var _ Conversation = (*MattermostChannel)(nil)

// NewMattermostChannel returns the conversation for channel as seen by
// userID. ctx bounds every request the channel makes.
func NewMattermostChannel(ctx context.Context, api MattermostAPI, channel *model.Channel, userID string, log zerolog.Logger) *MattermostChannel {
	return &MattermostChannel{
		ctx:     ctx,
		api:     api,
		channel: channel,
		userID:  userID,
		log:     log.With().Str("component", "mattermost").Str("channel_id", channel.Id).Logger(),
	}
}

// Kind is KindIM for direct channels and KindChat for everything else,
// group messages included.
func (c *MattermostChannel) Kind() cmds.Kind {
	if c.channel.Type == model.ChannelTypeDirect {
		return cmds.KindIM
	}
	return cmds.KindChat
}

func (c *MattermostChannel) ProtocolID() string { return MattermostProtocolID }

func (c *MattermostChannel) Name() string {
	switch {
	case c.channel.DisplayName != "":
		return c.channel.DisplayName
	case c.channel.Name != "":
		return c.channel.Name
	default:
		return c.channel.Id
	}
}

// SendMessage posts rich converted to Mattermost markdown. "/me " is kept
// as is; Mattermost renders it as an action.
func (c *MattermostChannel) SendMessage(rich string) error {
	_, err := c.createPost(rich, false)
	return err
}

// WriteSystem posts rich with NoticeProp set.
func (c *MattermostChannel) WriteSystem(rich string) {
	if _, err := c.createPost(rich, true); err != nil {
		c.log.Err(err).Msg("Failed to post notice")
	}
}

func (c *MattermostChannel) createPost(rich string, notice bool) (*model.Post, error) {
	post := &model.Post{
		ChannelId: c.channel.Id,
		Message:   markup.ToMarkdown(rich),
	}
	post.AddProp(SentProp, true)
	if notice {
		post.AddProp(NoticeProp, true)
	}
	created, _, err := c.api.CreatePost(c.ctx, post)
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	c.log.Debug().Str("post_id", created.Id).Msg("Created post")
	return created, nil
}

// PostLine returns the plain and rich text of a post typed by the local
// user in this channel. ok is false for posts that must not be treated as
// commands: other users' posts, system posts, posts the channel created
// itself and posts in other channels.
func (c *MattermostChannel) PostLine(post *model.Post) (raw, rich string, ok bool) {
	if post.ChannelId != c.channel.Id || post.UserId != c.userID {
		return "", "", false
	}
	if post.Type != "" && post.Type != model.PostTypeDefault {
		return "", "", false
	}
	if post.GetProp(SentProp) != nil || post.GetProp(NoticeProp) != nil {
		return "", "", false
	}
	rich = markup.FromMarkdown(post.Message)
	return markup.Strip(rich), rich, true
}

// HandleEvent passes a posted WebSocket event to d. It reports whether d
// consumed the post.
func (c *MattermostChannel) HandleEvent(d *Dispatcher, evt *model.WebSocketEvent) (bool, error) {
	if evt.EventType() != model.WebsocketEventPosted {
		return false, nil
	}
	postJSON, ok := evt.GetData()["post"].(string)
	if !ok {
		return false, errMissingPost
	}
	var post model.Post
	if err := json.Unmarshal([]byte(postJSON), &post); err != nil {
		return false, fmt.Errorf("failed to unmarshal post: %w", err)
	}
	raw, rich, ok := c.PostLine(&post)
	if !ok {
		return false, nil
	}
	return d.Handle(c, raw, rich), nil
}
