package router

import (
	"context"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/button"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/shared/types"
)

// HandleClick dispatches a click and sets ev.Cancelled.
func (r *Router) HandleClick(ctx context.Context, ev *types.ClickEvent) Outcome {
	if ev.Region == types.RegionOutside {
		return r.record("click", Passthrough)
	}
	t, out := r.acquire(ev.Identity, ev.Surface, "click")
	if t == nil {
		return r.record("click", out)
	}
	defer t.release()

	switch {
	case ev.Action == types.ActionCollectToCursor:
		ev.Cancelled = r.collect(ctx, t, ev)
	case ev.Region == types.RegionManaged:
		ev.Cancelled = r.slotClick(ctx, t, ev)
	case ev.Action == types.ActionMoveToOther:
		ev.Cancelled = r.transfer(ctx, t, ev)
	default:
		ev.Cancelled = false
	}
	return r.finish(t, "click", ev.Cancelled)
}

func (r *Router) slotClick(ctx context.Context, t *target, ev *types.ClickEvent) bool {
	b, ok := t.w.ButtonAt(t.s, ev.Slot, r.globals(t))
	if !ok {
		t.log.Debug("click on unmanaged slot", zap.Int("slot", ev.Slot))
		return true
	}
	return r.invoke(ctx, t, ev.Slot, b, ev)
}

// collect offers a collect-to-cursor to every input slot.
func (r *Router) collect(ctx context.Context, t *target, ev *types.ClickEvent) bool {
	cancel, found := false, false
	for _, sb := range t.w.Occupied(t.s, r.globals(t)) {
		if !button.CapturesInput(sb.Button) {
			continue
		}
		found = true
		if r.invoke(ctx, t, sb.Slot, sb.Button, ev) {
			cancel = true
		}
	}
	return cancel || !found
}

// transfer routes a shift-click from the player inventory to the slot the
// item would land in.
func (r *Router) transfer(ctx context.Context, t *target, ev *types.ClickEvent) bool {
	slot := -1
	if !ev.Item.IsEmpty() {
		slot = t.v.FirstSimilar(ev.Item)
	}
	if slot < 0 {
		slot = t.v.FirstEmpty()
	}
	if slot < 0 {
		return true
	}
	b, ok := t.w.ButtonAt(t.s, slot, r.globals(t))
	if !ok {
		return true
	}
	return r.invoke(ctx, t, slot, b, ev)
}
