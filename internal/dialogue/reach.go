package dialogue

import (
	"go.uber.org/zap"

	"hfparse/internal/parser"
	"hfparse/internal/state"
)

// settleHand checks a grounded command against what each hand can reach.
// A defaulted hand that cannot manage the object is swapped for the one
// hand that can; when no hand or several can, the returned request asks
// which hand to use. A hand the user named is kept and only penalised.
func (e *Engine) settleHand(p *parser.CommandParse, ctx *state.Context, log *zap.Logger) *ClarificationRequest {
	penalty := ctx.ObjectPrior(p)
	if penalty == 0 {
		return nil
	}
	side, ok := p.Slot(e.priors.SideParam)
	if !ok || side.Status != parser.SlotDefaulted {
		p.Prior += penalty
		log.Warn("object out of reach of the chosen hand", zap.String("command", p.String()))
		return nil
	}

	var reachable []string
	for _, opt := range e.parameterOptions(p.Template, side.Slot) {
		if opt == side.Option {
			continue
		}
		alt := p.Clone()
		v := side
		v.Option = opt
		v.Phrase = e.model.Label(opt)
		alt.SetSlot(v)
		if ctx.ObjectPrior(&alt) == 0 {
			reachable = append(reachable, opt)
		}
	}
	if len(reachable) == 1 {
		log.Info("switching to the hand that can reach the object",
			zap.String("from", side.Option), zap.String("to", reachable[0]))
		side.Option = reachable[0]
		side.Phrase = e.model.Label(reachable[0])
		p.SetSlot(side)
		return nil
	}
	if len(reachable) == 0 {
		reachable = e.parameterOptions(p.Template, side.Slot)
	}
	return e.optionRequest(side.Slot, reachable)
}
