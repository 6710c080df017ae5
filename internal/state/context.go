package state

import (
	"strings"

	"hfparse/internal/config"
	"hfparse/internal/grammar"
	"hfparse/internal/parser"
)

// Templates whose plausibility depends on robot state.
const (
	TemplateStop     = "stop"
	TemplateExecute  = "execute"
	TemplateSwitchTo = "switch_to"
	TemplateOpen     = "open"
	TemplateClose    = "close"
	TemplatePickUp   = "pick_up"
	TemplatePlace    = "place"
	TemplatePlaceLoc = "place_loc"
	TemplateMoveAbs  = "move_abs"
	TemplateMoveRel  = "move_rel"
	TemplateMoveDir  = "move_rel_dir"

	absDirSlot = "abs_dir"
	relPosSlot = "rel_pos"
	relDirSlot = "rel_dir"
	objSlot    = "obj"

	// PickupableFlag is the per-hand object flag saying a hand can pick it up.
	PickupableFlag = "is_pickupable"
)

// reachFlags names the per-hand object flag for a relative position.
var reachFlags = map[string]string{
	"above":       "is_above_reachable",
	"next_to":     "is_nextto_reachable",
	"to_left_of":  "is_leftof_reachable",
	"to_right_of": "is_rightof_reachable",
	"in_front_of": "is_frontof_reachable",
	"behind":      "is_behind_reachable",
	"on_top_of":   "is_topof_reachable",
	"near":        "is_near_reachable",
	"towards":     "is_towards_reachable",
	"away":        "is_away_reachable",
}

// Robot state keys a grammar default may name.
const (
	KeyLastCmdSide        = "last_cmd_side"
	KeyLastReferredObject = "last_referred_obj_name"
)

var _ parser.Context = (*Context)(nil)

// Context exposes a snapshot to the scorer as defaults and priors.
type Context struct {
	model    *grammar.Model
	snap     Snapshot
	priors   config.Priors
	fallback map[string]string
}

func NewContext(model *grammar.Model, snap Snapshot, priors config.Priors) *Context {
	return &Context{model: model, snap: snap, priors: priors, fallback: make(map[string]string)}
}

// WithFallback records an option to use for param when the robot state
// has nothing to offer, typically remembered from earlier turns.
func (c *Context) WithFallback(param, option string) *Context {
	if option != "" {
		c.fallback[param] = option
	}
	return c
}

func (c *Context) Snapshot() Snapshot {
	return c.snap
}

func (c *Context) Default(param *grammar.Parameter) (string, bool) {
	if param.Default != "" {
		if v := c.robotValue(param.Default); v != "" && param.Has(v) {
			return v, true
		}
	}
	if v, ok := c.fallback[param.Name]; ok && param.Has(v) {
		return v, true
	}
	return "", false
}

func (c *Context) ObjectsVisible() bool {
	return c.snap.World.Len() > 0
}

func (c *Context) Prior(p *parser.CommandParse) float64 {
	r := c.snap.Robot
	if r == nil {
		return 0
	}
	side := c.sideIndex(p)
	gripper, known := r.Gripper(side)

	switch p.Template {
	case TemplateStop:
		if !r.IsExecuting {
			return c.priors.DumbStop
		}
	case TemplateExecute:
		total := 0.0
		if r.IsExecuting {
			total += c.priors.DumbExecute
		}
		if r.ActionCount != nil && *r.ActionCount == 0 {
			total += c.priors.NoActions
		}
		return total
	case TemplateSwitchTo:
		if r.ActionCount != nil && *r.ActionCount <= 1 {
			return c.priors.NoActions
		}
	case TemplateOpen:
		if known && gripper == GripperOpen {
			return c.priors.GripperState
		}
	case TemplateClose:
		if known && (gripper == GripperClosedEmpty || gripper == GripperHasObject) {
			return c.priors.GripperState
		}
	case TemplatePickUp:
		if known && gripper == GripperHasObject {
			return c.priors.BadPickPlace
		}
	case TemplatePlace, TemplatePlaceLoc:
		if known && (gripper == GripperOpen || gripper == GripperClosedEmpty) {
			return c.priors.BadPickPlace
		}
	case TemplateMoveAbs:
		dir, ok := p.Slot(absDirSlot)
		if !ok || dir.Option == "" {
			return 0
		}
		if can, ok := r.Can(CapabilityFor(dir.Option), side); ok && !can {
			return c.priors.Unreachable
		}
	}
	return 0
}

// ObjectPrior penalises a command whose grounded object the chosen hand
// cannot handle: picking up what it cannot grasp, or moving to a spot
// beside the object it cannot reach. With no hand chosen every hand must
// manage. Objects without the flag are not penalised.
func (c *Context) ObjectPrior(p *parser.CommandParse) float64 {
	flag := ObjectFlag(p)
	if flag == "" {
		return 0
	}
	v, ok := p.Slot(objSlot)
	if !ok || v.Object == "" {
		return 0
	}
	obj, ok := c.snap.World.Object(v.Object)
	if !ok {
		return 0
	}
	if can, ok := obj.FlagAt(flag, c.sideIndex(p)); ok && !can {
		return c.priors.UnreachableObject
	}
	return 0
}

// ObjectFlag names the object flag a command depends on, or "" when it
// depends on none.
func ObjectFlag(p *parser.CommandParse) string {
	slot := ""
	switch p.Template {
	case TemplatePickUp:
		return PickupableFlag
	case TemplateMoveRel, TemplatePlace:
		slot = relPosSlot
	case TemplateMoveDir:
		slot = relDirSlot
	default:
		return ""
	}
	v, ok := p.Slot(slot)
	if !ok || v.Option == "" {
		return ""
	}
	return ReachFlagFor(v.Option)
}

// ReachFlagFor names the object flag saying a hand can reach the relative
// position pos, e.g. to_left_of -> is_leftof_reachable.
func ReachFlagFor(pos string) string {
	if flag, ok := reachFlags[pos]; ok {
		return flag
	}
	return "is_" + strings.ReplaceAll(pos, "_", "") + "_reachable"
}

// CapabilityFor names the robot flag that says a hand can move in dir,
// e.g. to_left -> can_move_toleft.
func CapabilityFor(dir string) string {
	return "can_move_" + strings.ReplaceAll(dir, "_", "")
}

func (c *Context) sideIndex(p *parser.CommandParse) int {
	v, ok := p.Slot(c.priors.SideParam)
	if !ok || v.Option == "" {
		return -1
	}
	param, ok := c.model.Parameter(c.priors.SideParam)
	if !ok {
		return -1
	}
	return param.Index(v.Option)
}

func (c *Context) robotValue(key string) string {
	r := c.snap.Robot
	if r == nil {
		return ""
	}
	switch key {
	case KeyLastCmdSide:
		return r.LastCmdSide
	case KeyLastReferredObject:
		return r.LastReferredObject
	default:
		return ""
	}
}
