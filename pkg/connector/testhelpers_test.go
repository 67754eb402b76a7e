// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package connector

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/mattermost/mattermost/server/public/model"
	"github.com/rs/zerolog"

	"github.com/aiku/chatcmd/pkg/builtin"
	"github.com/aiku/chatcmd/pkg/cmds"
)

// mockConv records what the dispatcher sends and shows.
type mockConv struct {
	kind     cmds.Kind
	protocol string
	sendErr  error

	mu     sync.Mutex
	sent   []string
	system []string
}

func (c *mockConv) Kind() cmds.Kind    { return c.kind }
func (c *mockConv) ProtocolID() string { return c.protocol }
func (c *mockConv) Name() string       { return "mock" }

func (c *mockConv) SendMessage(rich string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, rich)
	return nil
}

func (c *mockConv) WriteSystem(rich string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.system = append(c.system, rich)
}

func newTestDispatcher() *Dispatcher {
	reg := cmds.NewRegistry(zerolog.Nop())
	(&builtin.Plugin{}).Load(reg)
	return NewDispatcher(reg, "", zerolog.Nop())
}

// endpointCall records which API endpoints were hit during a test.
type endpointCall struct {
	Method string
	Path   string
	Body   string
}

// fakeServer wraps an httptest.Server simulating the parts of the
// Mattermost and Matrix client APIs the adapters use. It records calls
// and provides canned responses.
type fakeServer struct {
	Server *httptest.Server

	mu    sync.Mutex
	calls []endpointCall

	// Users maps user ID to model.User for GetMe responses.
	Users map[string]*model.User
	// TokenToUser maps bearer tokens to user IDs for authentication.
	TokenToUser map[string]string
	// Channels maps channel ID to model.Channel.
	Channels map[string]*model.Channel
	// FailEndpoints causes specific path prefixes to return 500.
	FailEndpoints map[string]bool
}

func newFakeServer() *fakeServer {
	f := &fakeServer{
		Users:         make(map[string]*model.User),
		TokenToUser:   make(map[string]string),
		Channels:      make(map[string]*model.Channel),
		FailEndpoints: make(map[string]bool),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.handler))
	return f
}

func (f *fakeServer) Close() {
	f.Server.Close()
}

func (f *fakeServer) record(method, path, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, endpointCall{Method: method, Path: path, Body: body})
}

func (f *fakeServer) Calls() []endpointCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]endpointCall, len(f.calls))
	copy(cp, f.calls)
	return cp
}

// CallsTo returns the recorded calls whose path contains path.
func (f *fakeServer) CallsTo(path string) []endpointCall {
	var out []endpointCall
	for _, c := range f.Calls() {
		if strings.Contains(c.Path, path) {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeServer) resolveToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	for tok, uid := range f.TokenToUser {
		if strings.EqualFold(auth, "Bearer "+tok) {
			return uid
		}
	}
	return ""
}

func (f *fakeServer) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.record(r.Method, r.URL.Path, string(body))

	for prefix := range f.FailEndpoints {
		if strings.Contains(r.URL.Path, prefix) {
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "fake error", "errcode": "M_UNKNOWN"})
			return
		}
	}

	path := r.URL.Path
	uid := f.resolveToken(r)

	switch {
	// GET /api/v4/users/me
	case r.Method == "GET" && path == "/api/v4/users/me":
		if u, ok := f.Users[uid]; ok {
			_ = json.NewEncoder(w).Encode(u)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "unauthorized"})

	// GET /api/v4/channels/{channel_id}
	case r.Method == "GET" && strings.HasPrefix(path, "/api/v4/channels/"):
		chID := path[len("/api/v4/channels/"):]
		if ch, ok := f.Channels[chID]; ok {
			_ = json.NewEncoder(w).Encode(ch)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "not found"})

	// POST /api/v4/posts
	case r.Method == "POST" && path == "/api/v4/posts":
		var post model.Post
		_ = json.Unmarshal(body, &post)
		post.Id = "created-post-id"
		_ = json.NewEncoder(w).Encode(&post)

	// GET /_matrix/client/v3/account/whoami
	case r.Method == "GET" && strings.HasSuffix(path, "/account/whoami"):
		if uid == "" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"errcode": "M_UNKNOWN_TOKEN", "error": "unknown token"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"user_id": uid})

	// PUT /_matrix/client/v3/rooms/{room_id}/send/{type}/{txn_id}
	case r.Method == "PUT" && strings.Contains(path, "/send/m.room.message/"):
		_ = json.NewEncoder(w).Encode(map[string]string{"event_id": "$created-event"})

	default:
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "not found: " + path, "errcode": "M_UNRECOGNIZED"})
	}
}

var errSend = errors.New("network down")
