// Package mcp exposes the dialogue engine as Model Context Protocol tools
// so an agent can drive the robot through the same clarifying parser a
// person would.
package mcp

import (
	"context"
	"sync"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"hfparse/internal/dialogue"
	"hfparse/internal/store"
)

type Server struct {
	engine *dialogue.Engine
	db     store.Store
	logger *zap.Logger
	mcp    *sdk.Server

	mu       sync.Mutex
	sessions map[string]*session
	now      func() time.Time
}

// sessionTTL is how long a session may go untouched before it is dropped.
const sessionTTL = 30 * time.Minute

type session struct {
	state   dialogue.State
	touched time.Time
}

// NewServer wires the tools. db may be nil, in which case turns are not
// logged and session_history is unavailable.
func NewServer(engine *dialogue.Engine, db store.Store, version string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		engine:   engine,
		db:       db,
		logger:   logger,
		sessions: make(map[string]*session),
		now:      time.Now,
		mcp: sdk.NewServer(&sdk.Implementation{
			Name:    "hfparse",
			Version: version,
		}, nil),
	}
	s.registerTools()
	return s
}

// evictStale drops sessions untouched for longer than sessionTTL. The
// caller holds s.mu.
func (s *Server) evictStale(now time.Time) {
	for id, sess := range s.sessions {
		if now.Sub(sess.touched) > sessionTTL {
			delete(s.sessions, id)
			s.logger.Debug("session expired", zap.String("session", id))
		}
	}
}

func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	return s.mcp.Run(ctx, transport)
}
