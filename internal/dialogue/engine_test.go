package dialogue

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"hfparse/internal/assets"
	"hfparse/internal/config"
	"hfparse/internal/grammar"
	"hfparse/internal/parser"
	"hfparse/internal/state"
)

func newEngine(t *testing.T, grammarData []byte, adapter *state.Adapter) *Engine {
	t.Helper()
	model, err := grammar.Parse(grammarData)
	if err != nil {
		t.Fatalf("compiling grammar: %v", err)
	}
	return New(model, adapter, config.DefaultProjectConfig(), nil)
}

func object(id string, props map[string]any) state.WorldObject {
	return state.WorldObject{ID: id, Properties: props}
}

// twoRedBoxes is a scene where "the red box" cannot be grounded alone.
func twoRedBoxes() *state.Adapter {
	a := state.NewAdapter()
	a.PushRobot(state.RobotState{LastCmdSide: "right_hand", GripperStates: []string{"open", "open"}})
	a.PushWorld(state.WorldState{Objects: []state.WorldObject{
		object("obj0", map[string]any{"type": "box", "color": "red", "is_leftmost": true}),
		object("obj1", map[string]any{"type": "box", "color": "red", "is_rightmost": true}),
		object("obj2", map[string]any{"type": "cup", "color": "blue", "is_middle": true}),
	}})
	return a
}

func turn(t *testing.T, e *Engine, st State, text string) (Outcome, State) {
	t.Helper()
	return e.Turn(st, parser.NewUtterance(text))
}

func TestCommitWithDefaultSide(t *testing.T) {
	a := state.NewAdapter()
	fx, err := state.ParseFixture(assets.World)
	if err != nil {
		t.Fatalf("parsing world: %v", err)
	}
	fx.Apply(a)
	e := newEngine(t, assets.Grammar, a)

	out, st := turn(t, e, NewState("s1"), "pick up the biggest box")
	if out.Kind != OutcomeCommitted {
		t.Fatalf("got %s (%v), want committed", out.Kind, out.Reason)
	}
	want := map[string]string{"pick_up": "pick_up", "obj": "obj0", "side": "right_hand"}
	if diff := cmp.Diff(want, out.Command.Args()); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
	if st.Phase != PhaseIdle || st.Turn != 1 {
		t.Errorf("state after commit: phase %s turn %d", st.Phase, st.Turn)
	}
	if st.Context.LastSide != "right_hand" || st.Context.LastAction != "pick_up" {
		t.Errorf("context not updated: %+v", st.Context)
	}
}

func TestCommandClarification(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "ambiguous.yml"))
	if err != nil {
		t.Fatal(err)
	}
	a := state.NewAdapter()
	a.PushWorld(state.WorldState{Objects: []state.WorldObject{
		object("obj0", map[string]any{"type": "box", "color": "red"}),
	}})

	tests := []struct {
		name   string
		answer string
		want   string
	}{
		{name: "ordinal", answer: "the second one", want: "move_rel"},
		{name: "option phrase", answer: "above", want: "move_rel"},
		{name: "template name", answer: "move abs", want: "move_abs"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t, data, a)
			out, st := turn(t, e, NewState("s1"), "move right hand up")
			if out.Kind != OutcomeClarify {
				t.Fatalf("got %s, want clarify", out.Kind)
			}
			if out.Clarification.Kind != ClarifyCommand {
				t.Fatalf("got %s clarification, want command", out.Clarification.Kind)
			}
			if diff := cmp.Diff([]string{"move_abs", "move_rel"}, out.Clarification.Values()); diff != "" {
				t.Fatalf("choices mismatch (-want +got):\n%s", diff)
			}
			if st.Phase != PhaseAwaitingCommand || len(st.Candidates) != 2 {
				t.Fatalf("phase %s with %d candidates", st.Phase, len(st.Candidates))
			}

			out, st = turn(t, e, st, tt.answer)
			if out.Kind != OutcomeCommitted {
				t.Fatalf("got %s (%v), want committed", out.Kind, out.Reason)
			}
			if out.Command.Template != tt.want {
				t.Errorf("committed %s, want %s", out.Command.Template, tt.want)
			}
			if side, _ := out.Command.Slot("side"); side.Option != "right_hand" {
				t.Errorf("side = %q, want right_hand", side.Option)
			}
			if st.Phase != PhaseIdle {
				t.Errorf("phase = %s, want idle", st.Phase)
			}
		})
	}
}

func TestObjectClarification(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   string
	}{
		{name: "ordinal", answer: "the second", want: "obj1"},
		{name: "descriptor", answer: "the leftmost box", want: "obj0"},
		{name: "description words", answer: "the left one", want: "obj0"},
		{name: "object id", answer: "obj1", want: "obj1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t, assets.Grammar, twoRedBoxes())
			out, st := turn(t, e, NewState("s1"), "pick up the red box with your right hand")
			if out.Kind != OutcomeClarify {
				t.Fatalf("got %s (%v), want clarify", out.Kind, out.Reason)
			}
			var amb *AmbiguousGroundingError
			if !errors.As(out.Reason, &amb) {
				t.Fatalf("reason = %v, want ambiguous grounding", out.Reason)
			}
			if diff := cmp.Diff([]string{"obj0", "obj1"}, out.Clarification.Values()); diff != "" {
				t.Fatalf("choices mismatch (-want +got):\n%s", diff)
			}
			if out.Clarification.Slot != grammar.ObjectSlot {
				t.Errorf("slot = %q, want obj", out.Clarification.Slot)
			}

			out, _ = turn(t, e, st, tt.answer)
			if out.Kind != OutcomeCommitted {
				t.Fatalf("got %s (%v), want committed", out.Kind, out.Reason)
			}
			if got := out.Command.Args()["obj"]; got != tt.want {
				t.Errorf("obj = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnresolvedSlotClarification(t *testing.T) {
	e := newEngine(t, assets.Grammar, nil)

	out, st := turn(t, e, NewState("s1"), "move up")
	if out.Kind != OutcomeClarify {
		t.Fatalf("got %s (%v), want clarify", out.Kind, out.Reason)
	}
	var unresolved *UnresolvedSlotError
	if !errors.As(out.Reason, &unresolved) {
		t.Fatalf("reason = %v, want unresolved slot", out.Reason)
	}
	if diff := cmp.Diff([]string{"side"}, unresolved.Slots); diff != "" {
		t.Errorf("slots mismatch (-want +got):\n%s", diff)
	}
	if out.Clarification.Kind != ClarifyArgument || out.Clarification.Slot != "side" {
		t.Errorf("clarification = %s on %q, want argument on side", out.Clarification.Kind, out.Clarification.Slot)
	}
	if diff := cmp.Diff([]string{"right_hand", "left_hand"}, out.Clarification.Values()); diff != "" {
		t.Errorf("choices mismatch (-want +got):\n%s", diff)
	}

	out, st = turn(t, e, st, "left hand")
	if out.Kind != OutcomeCommitted {
		t.Fatalf("got %s (%v), want committed", out.Kind, out.Reason)
	}
	want := map[string]string{"move_abs": "move_abs", "side": "left_hand", "abs_dir": "up"}
	if diff := cmp.Diff(want, out.Command.Args()); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}

	// The side answered above carries over to the next command.
	out, _ = turn(t, e, st, "move down")
	if out.Kind != OutcomeCommitted {
		t.Fatalf("got %s (%v), want committed", out.Kind, out.Reason)
	}
	side, _ := out.Command.Slot("side")
	if side.Option != "left_hand" || side.Status != parser.SlotDefaulted {
		t.Errorf("side = %q (%s), want defaulted left_hand", side.Option, side.Status)
	}
}

func TestCancelClarification(t *testing.T) {
	e := newEngine(t, assets.Grammar, twoRedBoxes())
	_, st := turn(t, e, NewState("s1"), "pick up the red box")
	if st.Phase != PhaseAwaitingArgument {
		t.Fatalf("phase = %s, want awaiting argument", st.Phase)
	}

	out, st := turn(t, e, st, "never mind")
	if out.Kind != OutcomeCancelled {
		t.Fatalf("got %s, want cancelled", out.Kind)
	}
	if st.Phase != PhaseIdle || st.Pending != nil || st.Candidates != nil {
		t.Errorf("state not reset: %+v", st)
	}
	if st.Turn != 2 {
		t.Errorf("turn = %d, want 2", st.Turn)
	}
}

func TestCancelWithoutCancelOption(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "ambiguous.yml"))
	if err != nil {
		t.Fatal(err)
	}
	a := state.NewAdapter()
	a.PushWorld(state.WorldState{Objects: []state.WorldObject{
		object("obj0", map[string]any{"type": "box", "color": "red"}),
	}})
	e := newEngine(t, data, a)
	if _, ok := e.model.Option("stop"); ok {
		t.Fatal("grammar should not define stop")
	}

	_, st := turn(t, e, NewState("s1"), "move hand up")
	if st.Phase != PhaseAwaitingCommand {
		t.Fatalf("phase = %s, want awaiting command", st.Phase)
	}
	out, st := turn(t, e, st, "stop")
	if out.Kind != OutcomeCancelled {
		t.Fatalf("got %s, want cancelled", out.Kind)
	}
	if st.Phase != PhaseIdle {
		t.Errorf("phase = %s, want idle", st.Phase)
	}
}

func TestClarificationAttempts(t *testing.T) {
	e := newEngine(t, assets.Grammar, twoRedBoxes())
	_, st := turn(t, e, NewState("s1"), "pick up the red box")

	var out Outcome
	for i := 1; i < e.cfg.MaxAttempts; i++ {
		out, st = turn(t, e, st, "banana")
		if out.Kind != OutcomeClarify {
			t.Fatalf("attempt %d: got %s, want clarify", i, out.Kind)
		}
		if st.Attempts != i {
			t.Fatalf("attempt %d: attempts = %d", i, st.Attempts)
		}
	}
	out, st = turn(t, e, st, "banana")
	if out.Kind != OutcomeNotUnderstood {
		t.Fatalf("got %s, want not understood", out.Kind)
	}
	if !errors.Is(out.Reason, ErrClarificationUnanswered) {
		t.Errorf("reason = %v, want %v", out.Reason, ErrClarificationUnanswered)
	}
	if st.Phase != PhaseIdle {
		t.Errorf("phase = %s, want idle", st.Phase)
	}
}

func TestNotUnderstood(t *testing.T) {
	e := newEngine(t, assets.Grammar, twoRedBoxes())

	tests := []struct {
		name  string
		text  string
		empty bool
	}{
		{name: "empty", text: "  ", empty: true},
		{name: "gibberish", text: "banana"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, st := turn(t, e, NewState("s1"), tt.text)
			if out.Kind != OutcomeNotUnderstood {
				t.Fatalf("got %s, want not understood", out.Kind)
			}
			var nv *NoViableTemplateError
			if !errors.As(out.Reason, &nv) {
				t.Fatalf("reason = %v, want no viable template", out.Reason)
			}
			if nv.Empty != tt.empty {
				t.Errorf("empty = %v, want %v", nv.Empty, tt.empty)
			}
			if st.Phase != PhaseIdle {
				t.Errorf("phase = %s, want idle", st.Phase)
			}
		})
	}
}

func TestTiedTemplatesAskBeforeArguments(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "ambiguous.yml"))
	if err != nil {
		t.Fatal(err)
	}
	a := state.NewAdapter()
	a.PushRobot(state.RobotState{LastCmdSide: "left_hand", GripperStates: []string{"open", "open"}})
	a.PushWorld(state.WorldState{Objects: []state.WorldObject{
		object("obj0", map[string]any{"type": "box", "color": "red"}),
		object("obj1", map[string]any{"type": "box", "color": "green"}),
	}})
	e := newEngine(t, data, a)

	out, st := turn(t, e, NewState("s1"), "move hand up")
	if out.Kind != OutcomeClarify {
		t.Fatalf("got %s (%v), want clarify", out.Kind, out.Reason)
	}
	if out.Clarification.Kind != ClarifyCommand {
		t.Errorf("got %s clarification, want command", out.Clarification.Kind)
	}
	if st.Phase != PhaseAwaitingCommand {
		t.Errorf("phase = %s, want awaiting command", st.Phase)
	}
}

func TestHandThatCanReachObject(t *testing.T) {
	scene := func(pickupable []any) *state.Adapter {
		a := state.NewAdapter()
		a.PushRobot(state.RobotState{LastCmdSide: "right_hand", GripperStates: []string{"open", "open"}})
		a.PushWorld(state.WorldState{Objects: []state.WorldObject{
			object("obj0", map[string]any{"type": "box", "color": "red", "is_pickupable": pickupable}),
		}})
		return a
	}

	t.Run("defaulted hand switches", func(t *testing.T) {
		e := newEngine(t, assets.Grammar, scene([]any{false, true}))
		out, st := turn(t, e, NewState("s1"), "pick up the box")
		if out.Kind != OutcomeCommitted {
			t.Fatalf("got %s (%v), want committed", out.Kind, out.Reason)
		}
		want := map[string]string{"pick_up": "pick_up", "obj": "obj0", "side": "left_hand"}
		if diff := cmp.Diff(want, out.Command.Args()); diff != "" {
			t.Errorf("args mismatch (-want +got):\n%s", diff)
		}
		if st.Context.LastSide != "left_hand" {
			t.Errorf("last side = %q, want left_hand", st.Context.LastSide)
		}
	})

	t.Run("named hand is kept", func(t *testing.T) {
		e := newEngine(t, assets.Grammar, scene([]any{false, true}))
		out, _ := turn(t, e, NewState("s1"), "pick up the box with your right hand")
		if out.Kind != OutcomeCommitted {
			t.Fatalf("got %s (%v), want committed", out.Kind, out.Reason)
		}
		if side, _ := out.Command.Slot("side"); side.Option != "right_hand" {
			t.Errorf("side = %q, want right_hand", side.Option)
		}
		if out.Command.Prior < e.priors.UnreachableObject {
			t.Errorf("prior = %v, want at least %v", out.Command.Prior, e.priors.UnreachableObject)
		}
	})

	t.Run("no hand reaches", func(t *testing.T) {
		e := newEngine(t, assets.Grammar, scene([]any{false, false}))
		out, st := turn(t, e, NewState("s1"), "pick up the box")
		if out.Kind != OutcomeClarify {
			t.Fatalf("got %s (%v), want clarify", out.Kind, out.Reason)
		}
		if out.Clarification.Kind != ClarifyArgument || out.Clarification.Slot != "side" {
			t.Fatalf("clarification = %+v, want side argument", out.Clarification)
		}
		if diff := cmp.Diff([]string{"right_hand", "left_hand"}, out.Clarification.Values()); diff != "" {
			t.Errorf("choices mismatch (-want +got):\n%s", diff)
		}

		out, _ = turn(t, e, st, "right hand")
		if out.Kind != OutcomeCommitted {
			t.Fatalf("got %s (%v), want committed", out.Kind, out.Reason)
		}
		if side, _ := out.Command.Slot("side"); side.Option != "right_hand" {
			t.Errorf("side = %q, want right_hand", side.Option)
		}
	})
}
