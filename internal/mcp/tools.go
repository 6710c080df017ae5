package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"hfparse/internal/dialogue"
	"hfparse/internal/grammar"
	"hfparse/internal/parser"
	"hfparse/internal/state"
	"hfparse/internal/store"
)

type ParseUtteranceInput struct {
	Text      string `json:"text" jsonschema:"what the user said"`
	SessionID string `json:"session_id,omitempty" jsonschema:"dialogue session; when empty a new one is started and kept only while a clarification is pending"`
}

type GroundPhraseInput struct {
	Phrase string `json:"phrase" jsonschema:"referring phrase such as the red box on the left"`
}

type DescribeObjectsInput struct{}

type ListCommandsInput struct{}

type PushStateInput struct {
	Robot   *state.RobotState   `json:"robot,omitempty" jsonschema:"robot state; omitted keeps the current one"`
	Objects []state.WorldObject `json:"objects,omitempty" jsonschema:"visible objects; replaces the world when robot is omitted or objects are given"`
}

type ResetSessionInput struct {
	SessionID string `json:"session_id" jsonschema:"dialogue session to reset"`
}

type SessionHistoryInput struct {
	SessionID string `json:"session_id" jsonschema:"dialogue session"`
	Limit     int    `json:"limit,omitempty" jsonschema:"most recent turns to return"`
}

type ParseOutput struct {
	SessionID string         `json:"session_id"`
	Turn      int            `json:"turn"`
	Outcome   string         `json:"outcome"`
	Command   *ParseSummary  `json:"command,omitempty"`
	Prompt    string         `json:"prompt,omitempty"`
	Slot      string         `json:"slot,omitempty"`
	Choices   []ChoiceOutput `json:"choices,omitempty"`
	Reason    string         `json:"reason,omitempty"`
	Ranked    []ParseSummary `json:"ranked,omitempty"`
}

type ParseSummary struct {
	Template string            `json:"template,omitempty"`
	Args     map[string]string `json:"args,omitempty"`
	Score    float64           `json:"score,omitempty"`
	Prior    float64           `json:"prior,omitempty"`
}

type ChoiceOutput struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type ObjectWeightOutput struct {
	ID     string  `json:"id"`
	Weight float64 `json:"weight"`
}

type GroundPhraseOutput struct {
	Resolved string               `json:"resolved,omitempty"`
	Matched  []string             `json:"matched"`
	Ranked   []ObjectWeightOutput `json:"ranked"`
}

type ObjectOutput struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

type DescribeObjectsOutput struct {
	Objects []ObjectOutput `json:"objects"`
}

type SlotOutput struct {
	Name    string   `json:"name"`
	Kind    string   `json:"kind"`
	Options []string `json:"options,omitempty"`
}

type CommandOutput struct {
	Name  string       `json:"name"`
	Slots []SlotOutput `json:"slots"`
}

type ListCommandsOutput struct {
	Commands []CommandOutput `json:"commands"`
}

type PushStateOutput struct {
	Objects int `json:"objects"`
}

type ResetSessionOutput struct {
	SessionID string `json:"session_id"`
	Phase     string `json:"phase"`
}

type TurnOutput struct {
	ID        string            `json:"id"`
	Turn      int               `json:"turn"`
	Utterance string            `json:"utterance"`
	Outcome   string            `json:"outcome"`
	Template  string            `json:"template,omitempty"`
	Args      map[string]string `json:"args,omitempty"`
	Prompt    string            `json:"prompt,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	CreatedAt string            `json:"created_at"`
}

type SessionHistoryOutput struct {
	Turns []TurnOutput `json:"turns"`
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "parse_utterance",
		Description: "Parse an utterance into a robot command, asking for clarification when needed",
	}, s.handleParseUtterance)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "ground_phrase",
		Description: "Rank visible objects against a referring phrase",
	}, s.handleGroundPhrase)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "describe_objects",
		Description: "Shortest unambiguous description of every visible object",
	}, s.handleDescribeObjects)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_commands",
		Description: "List command templates and the options of each slot",
	}, s.handleListCommands)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "push_state",
		Description: "Replace the robot and world state used for scoring and grounding",
	}, s.handlePushState)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "reset_session",
		Description: "Drop any pending clarification of a session",
	}, s.handleResetSession)

	if s.db != nil {
		sdk.AddTool(s.mcp, &sdk.Tool{
			Name:        "session_history",
			Description: "Logged turns of a session, oldest first",
		}, s.handleSessionHistory)
	}
}

func (s *Server) handleParseUtterance(ctx context.Context, req *sdk.CallToolRequest, input ParseUtteranceInput) (*sdk.CallToolResult, ParseOutput, error) {
	sessionID := input.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	s.mu.Lock()
	now := s.now()
	s.evictStale(now)
	st := dialogue.NewState(sessionID)
	if sess, ok := s.sessions[sessionID]; ok {
		st = sess.state
	}
	out, st := s.engine.Turn(st, parser.NewUtterance(input.Text))
	// A generated session that ended idle has nothing to come back to.
	if input.SessionID == "" && st.Phase == dialogue.PhaseIdle {
		delete(s.sessions, sessionID)
	} else {
		s.sessions[sessionID] = &session{state: st, touched: now}
	}
	s.mu.Unlock()

	if s.db != nil {
		rec := store.NewTurnRecord(sessionID, st.Turn, input.Text, out, time.Now())
		if err := s.db.RecordTurn(ctx, rec); err != nil {
			s.logger.Warn("recording turn", zap.String("session", sessionID), zap.Error(err))
		}
	}
	return nil, parseOutput(sessionID, st.Turn, out), nil
}

func (s *Server) handleGroundPhrase(ctx context.Context, req *sdk.CallToolRequest, input GroundPhraseInput) (*sdk.CallToolResult, GroundPhraseOutput, error) {
	tokens := grammar.Words(input.Phrase)
	if len(tokens) == 0 {
		return nil, GroundPhraseOutput{}, fmt.Errorf("phrase is required")
	}
	snap := s.engine.Adapter().Snapshot()
	if snap.World == nil {
		return nil, GroundPhraseOutput{}, state.ErrStateUnavailable
	}

	res := s.engine.Grounder().Ground(tokens, snap.World)
	output := GroundPhraseOutput{
		Matched: append([]string{}, res.Matched...),
		Ranked:  make([]ObjectWeightOutput, 0, len(res.Ranked)),
	}
	if id, ok := res.Resolved(); ok {
		output.Resolved = id
	}
	for _, ow := range res.Ranked {
		output.Ranked = append(output.Ranked, ObjectWeightOutput{ID: ow.ID, Weight: ow.Weight})
	}
	return nil, output, nil
}

func (s *Server) handleDescribeObjects(ctx context.Context, req *sdk.CallToolRequest, input DescribeObjectsInput) (*sdk.CallToolResult, DescribeObjectsOutput, error) {
	snap := s.engine.Adapter().Snapshot()
	if snap.World == nil {
		return nil, DescribeObjectsOutput{}, state.ErrStateUnavailable
	}
	descs := s.engine.Describer().Describe(snap.World)
	output := make([]ObjectOutput, 0, len(descs))
	for _, d := range descs {
		output = append(output, ObjectOutput{ID: d.ID, Description: d.Text})
	}
	return nil, DescribeObjectsOutput{Objects: output}, nil
}

func (s *Server) handleListCommands(ctx context.Context, req *sdk.CallToolRequest, input ListCommandsInput) (*sdk.CallToolResult, ListCommandsOutput, error) {
	templates := s.engine.Model().Templates()
	output := make([]CommandOutput, 0, len(templates))
	for _, t := range templates {
		cmd := CommandOutput{Name: t.Name, Slots: make([]SlotOutput, 0, len(t.Slots))}
		for _, slot := range t.Slots {
			so := SlotOutput{Name: slot.Name, Kind: slot.Kind.String()}
			if slot.Param != nil {
				for _, opt := range slot.Param.Options {
					so.Options = append(so.Options, opt.Name)
				}
			}
			cmd.Slots = append(cmd.Slots, so)
		}
		output = append(output, cmd)
	}
	return nil, ListCommandsOutput{Commands: output}, nil
}

func (s *Server) handlePushState(ctx context.Context, req *sdk.CallToolRequest, input PushStateInput) (*sdk.CallToolResult, PushStateOutput, error) {
	for i, obj := range input.Objects {
		if err := obj.Validate(); err != nil {
			return nil, PushStateOutput{}, fmt.Errorf("object %d: %w", i, err)
		}
	}
	adapter := s.engine.Adapter()
	if input.Robot != nil {
		adapter.PushRobot(*input.Robot)
	}
	if input.Robot == nil || input.Objects != nil {
		adapter.PushWorld(state.WorldState{Objects: input.Objects})
	}
	s.logger.Debug("state pushed", zap.Bool("robot", input.Robot != nil), zap.Int("objects", len(input.Objects)))
	return nil, PushStateOutput{Objects: len(input.Objects)}, nil
}

func (s *Server) handleResetSession(ctx context.Context, req *sdk.CallToolRequest, input ResetSessionInput) (*sdk.CallToolResult, ResetSessionOutput, error) {
	if input.SessionID == "" {
		return nil, ResetSessionOutput{}, fmt.Errorf("session_id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[input.SessionID]
	if !ok {
		return nil, ResetSessionOutput{}, fmt.Errorf("session not found")
	}
	st := sess.state.Reset()
	sess.state = st
	sess.touched = s.now()
	return nil, ResetSessionOutput{SessionID: input.SessionID, Phase: st.Phase.String()}, nil
}

func (s *Server) handleSessionHistory(ctx context.Context, req *sdk.CallToolRequest, input SessionHistoryInput) (*sdk.CallToolResult, SessionHistoryOutput, error) {
	if input.SessionID == "" {
		return nil, SessionHistoryOutput{}, fmt.Errorf("session_id is required")
	}
	if s.db == nil {
		return nil, SessionHistoryOutput{}, errors.New("turn log is not configured")
	}
	turns, err := s.db.ListTurns(ctx, store.TurnFilter{SessionID: input.SessionID, Limit: input.Limit})
	if err != nil {
		return nil, SessionHistoryOutput{}, err
	}
	output := make([]TurnOutput, 0, len(turns))
	for _, t := range turns {
		output = append(output, turnOutputFromStore(t))
	}
	return nil, SessionHistoryOutput{Turns: output}, nil
}

func parseOutput(sessionID string, turn int, out dialogue.Outcome) ParseOutput {
	output := ParseOutput{SessionID: sessionID, Turn: turn, Outcome: string(out.Kind)}
	if out.Command != nil {
		cmd := parseSummary(*out.Command)
		output.Command = &cmd
	}
	if c := out.Clarification; c != nil {
		output.Prompt = c.Prompt
		output.Slot = c.Slot
		for _, choice := range c.Choices {
			output.Choices = append(output.Choices, ChoiceOutput{Value: choice.Value, Label: choice.Label})
		}
	}
	if out.Reason != nil {
		output.Reason = out.Reason.Error()
	}
	for _, p := range out.Ranked {
		output.Ranked = append(output.Ranked, parseSummary(p))
	}
	return output
}

func parseSummary(p parser.CommandParse) ParseSummary {
	return ParseSummary{Template: p.Template, Args: p.Args(), Score: p.Score, Prior: p.Prior}
}

func turnOutputFromStore(t store.TurnRecord) TurnOutput {
	return TurnOutput{
		ID:        t.ID.String(),
		Turn:      t.Turn,
		Utterance: t.Utterance,
		Outcome:   t.Outcome,
		Template:  t.Template,
		Args:      t.Args,
		Prompt:    t.Prompt,
		Reason:    t.Reason,
		CreatedAt: t.CreatedAt.Format(time.RFC3339Nano),
	}
}
