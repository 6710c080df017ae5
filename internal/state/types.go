package state

import "fmt"

// Gripper states reported in RobotState.GripperStates.
const (
	GripperOpen        = "open"
	GripperClosedEmpty = "closed_empty"
	GripperHasObject   = "has_obj"
)

type RobotState struct {
	LastCmdSide        string   `yaml:"last_cmd_side" json:"last_cmd_side,omitempty"`
	LastReferredObject string   `yaml:"last_referred_obj_name" json:"last_referred_obj_name,omitempty"`
	IsExecuting        bool     `yaml:"is_executing" json:"is_executing"`
	ActionCount        *int     `yaml:"action_count" json:"action_count,omitempty"`
	GripperStates      []string `yaml:"gripper_states" json:"gripper_states,omitempty"`
	// Capabilities holds per-hand flags such as can_move_up: [true, false].
	Capabilities map[string][]bool `yaml:",inline" json:"capabilities,omitempty"`
}

// Gripper returns the gripper state for the hand at side index idx.
func (r *RobotState) Gripper(idx int) (string, bool) {
	if r == nil || idx < 0 || idx >= len(r.GripperStates) {
		return "", false
	}
	return r.GripperStates[idx], true
}

// Can reports a per-hand capability flag. ok is false when unknown.
func (r *RobotState) Can(name string, idx int) (can bool, ok bool) {
	if r == nil {
		return false, false
	}
	flags, exists := r.Capabilities[name]
	if !exists || idx < 0 || idx >= len(flags) {
		return false, false
	}
	return flags[idx], true
}

func (r *RobotState) Clone() *RobotState {
	if r == nil {
		return nil
	}
	out := *r
	if r.ActionCount != nil {
		n := *r.ActionCount
		out.ActionCount = &n
	}
	out.GripperStates = append([]string(nil), r.GripperStates...)
	if r.Capabilities != nil {
		out.Capabilities = make(map[string][]bool, len(r.Capabilities))
		for k, v := range r.Capabilities {
			out.Capabilities[k] = append([]bool(nil), v...)
		}
	}
	return &out
}

// WorldObject is an object the robot can see. Property values are bool,
// string or []bool with one entry per hand.
type WorldObject struct {
	ID         string         `yaml:"name" json:"name"`
	Properties map[string]any `yaml:",inline" json:"properties,omitempty"`
}

// String returns a string-valued property.
func (o WorldObject) String(name string) (string, bool) {
	v, ok := o.Properties[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Flag returns a boolean property. Per-hand arrays count as true when any
// hand has the flag set.
func (o WorldObject) Flag(name string) (value bool, ok bool) {
	v, exists := o.Properties[name]
	if !exists {
		return false, false
	}
	switch t := v.(type) {
	case bool:
		return t, true
	case []bool:
		for _, b := range t {
			if b {
				return true, true
			}
		}
		return false, true
	case []any:
		for _, item := range t {
			if b, isBool := item.(bool); isBool && b {
				return true, true
			}
		}
		return false, true
	default:
		return false, false
	}
}

// FlagAt returns a per-hand flag for the hand at side index idx. A plain
// bool applies to every hand; idx < 0 asks whether all hands have it.
func (o WorldObject) FlagAt(name string, idx int) (value bool, ok bool) {
	v, exists := o.Properties[name]
	if !exists {
		return false, false
	}
	var flags []bool
	switch t := v.(type) {
	case bool:
		return t, true
	case []bool:
		flags = t
	case []any:
		for _, item := range t {
			b, isBool := item.(bool)
			if !isBool {
				return false, false
			}
			flags = append(flags, b)
		}
	default:
		return false, false
	}
	if idx >= len(flags) || len(flags) == 0 {
		return false, false
	}
	if idx >= 0 {
		return flags[idx], true
	}
	for _, b := range flags {
		if !b {
			return false, true
		}
	}
	return true, true
}

func (o WorldObject) Validate() error {
	if o.ID == "" {
		return fmt.Errorf("world object is missing a name")
	}
	return nil
}

type WorldState struct {
	Objects []WorldObject `yaml:"objects" json:"objects"`
}

func (w *WorldState) Len() int {
	if w == nil {
		return 0
	}
	return len(w.Objects)
}

func (w *WorldState) Object(id string) (WorldObject, bool) {
	if w == nil {
		return WorldObject{}, false
	}
	for _, o := range w.Objects {
		if o.ID == id {
			return o, true
		}
	}
	return WorldObject{}, false
}

// Subset keeps the objects named in ids, in world order.
func (w *WorldState) Subset(ids []string) *WorldState {
	out := &WorldState{}
	if w == nil {
		return out
	}
	for _, o := range w.Objects {
		for _, id := range ids {
			if o.ID == id {
				out.Objects = append(out.Objects, o)
				break
			}
		}
	}
	return out
}

func (w *WorldState) Clone() *WorldState {
	if w == nil {
		return nil
	}
	out := &WorldState{Objects: make([]WorldObject, len(w.Objects))}
	for i, o := range w.Objects {
		props := make(map[string]any, len(o.Properties))
		for k, v := range o.Properties {
			props[k] = v
		}
		out.Objects[i] = WorldObject{ID: o.ID, Properties: props}
	}
	return out
}
