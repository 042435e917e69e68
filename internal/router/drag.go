package router

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/button"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/session"
	"github.com/GriffinCanCode/AgentOS/windowing/internal/shared/types"
)

// DragNotice is delivered to drag listeners before any button runs.
type DragNotice struct {
	Session   *session.Session
	Window    types.Key
	Event     *types.DragEvent
	Cancelled bool
}

// DragListener observes, and may veto, a drag.
type DragListener func(ctx context.Context, n *DragNotice)

// OnDrag registers a drag listener.
func (r *Router) OnDrag(fn DragListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// HandleDrag dispatches a multi-slot drag and sets ev.Cancelled.
func (r *Router) HandleDrag(ctx context.Context, ev *types.DragEvent) Outcome {
	t, out := r.acquire(ev.Identity, ev.Surface, "drag")
	if t == nil {
		return r.record("drag", out)
	}
	defer t.release()
	ev.Cancelled = r.drag(ctx, t, ev)
	return r.finish(t, "drag", ev.Cancelled)
}

type dragTarget struct {
	button button.Button
	slot   int
	item   *types.Item
}

func (r *Router) drag(ctx context.Context, t *target, ev *types.DragEvent) bool {
	slots := make([]int, 0, len(ev.Slots))
	for raw := range ev.Slots {
		if !t.v.Contains(raw) {
			t.log.Debug("drag leaves the managed surface", zap.Int("slot", raw))
			return true
		}
		slots = append(slots, raw)
	}
	if len(slots) == 0 {
		return false
	}
	sort.Ints(slots)

	notice := &DragNotice{Session: t.s, Window: t.key, Event: ev}
	r.mu.RLock()
	listeners := append([]DragListener(nil), r.listeners...)
	r.mu.RUnlock()
	for _, fn := range listeners {
		fn(ctx, notice)
	}
	if notice.Cancelled {
		return true
	}

	// Resolve every slot first: one unbound slot cancels the whole drag.
	var targets []*dragTarget
	byID := make(map[string]*dragTarget)
	for _, slot := range slots {
		b, ok := t.w.ButtonAt(t.s, slot, r.globals(t))
		if !ok {
			t.log.Debug("drag over unmanaged slot", zap.Int("slot", slot))
			return true
		}
		item := ev.Slots[slot]
		dt, seen := byID[b.ID()]
		if !seen {
			dt = &dragTarget{button: b, slot: slot, item: item.Clone()}
			byID[b.ID()] = dt
			targets = append(targets, dt)
			continue
		}
		dt.item.Amount += item.Amount
	}

	cancel := false
	for _, dt := range targets {
		click := &types.ClickEvent{
			Identity: ev.Identity,
			Surface:  ev.Surface,
			Region:   types.RegionManaged,
			Slot:     dt.slot,
			Action:   types.ActionPlaceSome,
			Cursor:   dt.item,
		}
		if r.invoke(ctx, t, dt.slot, dt.button, click) {
			cancel = true
		}
	}
	return cancel
}
