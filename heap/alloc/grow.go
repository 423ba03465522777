package alloc

import (
	"github.com/cockroachdb/errors"
)

// grow extends the break by one growth step and folds the new region into
// the free list: the Tail absorbs it when the Tail ends at the old break,
// otherwise it becomes a new Tail block.
func (h *Heap) grow() error {
	step := h.cfg.GrowthStep
	start, err := h.st.ExtendBreak(step)
	if err != nil {
		h.log.Debug("grow denied", "step", step, "break", h.st.Break(), "capacity", h.st.Capacity())
		return errors.Wrapf(err, "alloc: grow by %d", step)
	}
	h.stats.GrowCalls++
	h.stats.GrowBytes += int64(step)

	if h.tail != nilRef && h.end(h.tail) == start {
		h.setSize(h.tail, h.size(h.tail)+step)
	} else {
		b := blockRef(start)
		h.setSize(b, step-HeaderSize)
		h.link(b, h.tail, nilRef)
	}

	h.log.Debug("grow", "step", step, "from", start, "break", h.st.Break(), "tail", int(h.tail),
		"tailSize", h.size(h.tail))

	if h.onGrow != nil {
		h.onGrow(step)
	}
	return nil
}

// canGrowTo reports whether growth alone could produce a free block of need
// bytes. Checked up front so a hopeless request fails without committing
// the rest of the store.
func (h *Heap) canGrowTo(need int) bool {
	step := h.cfg.GrowthStep
	avail := (h.st.Capacity() - h.st.Break()) / step * step
	if h.tail != nilRef && h.end(h.tail) == h.st.Break() {
		return h.size(h.tail)+avail >= need
	}
	return avail-HeaderSize >= need
}

// Grow commits n growth steps up front. It stops at the first step the
// store refuses and reports ErrOutOfSpace.
func (h *Heap) Grow(n int) error {
	if n <= 0 {
		return errors.Wrapf(ErrInvalidSize, "grow by %d steps", n)
	}
	defer h.checkAfter("grow")
	for range n {
		if err := h.grow(); err != nil {
			return err
		}
	}
	return nil
}

// Trim gives whole growth steps at the top of the heap back to the store.
// Only memory inside a Tail block that reaches the break is released; the
// break never drops below the initial extent and the Tail survives (possibly
// with size zero). Returns the number of bytes released.
func (h *Heap) Trim() (int, error) {
	if h.tail == nilRef || h.end(h.tail) != h.st.Break() {
		return 0, nil
	}
	step := h.cfg.GrowthStep
	steps := min(h.size(h.tail)/step, (h.st.Break()-h.cfg.InitialSize)/step)
	if steps <= 0 {
		return 0, nil
	}
	release := steps * step
	if _, err := h.st.ExtendBreak(-release); err != nil {
		return 0, errors.Wrapf(err, "alloc: trim %d bytes", release)
	}
	h.setSize(h.tail, h.size(h.tail)-release)
	h.stats.TrimCalls++
	h.stats.TrimBytes += int64(release)
	h.log.Debug("trim", "released", release, "break", h.st.Break(), "tailSize", h.size(h.tail))
	h.checkAfter("trim")
	return release, nil
}
