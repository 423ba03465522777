// Package report renders heap state for people and for tools.
//
// JSON streams a single object through jwriter while the free list and
// the live registry are walked. Text writes the same information as
// aligned columns.
package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"

	"github.com/joshuapare/heapkit/heap/alloc"
)

// Options selects the optional sections of a report.
type Options struct {
	FreeList bool // include every free block
	Live     bool // include every live block
	Stats    bool // include allocator counters
}

// Full turns every section on.
var Full = Options{FreeList: true, Live: true, Stats: true}

// JSON writes a report of h as one JSON object.
func JSON(w io.Writer, h *alloc.Heap, opts Options) error {
	jw := jwriter.NewStreamingWriter(w, 4096)
	obj := jw.Object()

	cfg := h.Config()
	c := obj.Name("config").Object()
	c.Maybe("name", cfg.Name != "").String(cfg.Name)
	c.Name("capacity").Int(cfg.Capacity)
	c.Name("initialSize").Int(cfg.InitialSize)
	c.Name("growthStep").Int(cfg.GrowthStep)
	c.Name("strategy").String(cfg.Strategy.String())
	c.End()

	u := h.Usage()
	uo := obj.Name("usage").Object()
	uo.Name("committed").Int(u.Committed)
	uo.Name("freeBlocks").Int(u.FreeBlocks)
	uo.Name("freeBytes").Int(u.FreeBytes)
	uo.Name("largestFree").Int(u.LargestFree)
	uo.Name("liveBlocks").Int(u.LiveBlocks)
	uo.Name("liveBytes").Int(u.LiveBytes)
	uo.Name("headerBytes").Int(u.HeaderBytes)
	uo.Name("fragmentation").Float64(u.Fragmentation)
	uo.End()

	obj.Name("head").Int(h.Head())
	obj.Name("tail").Int(h.Tail())

	if opts.Stats {
		writeStats(obj.Name("stats"), h.Stats())
	}

	if opts.FreeList {
		arr := obj.Name("freeList").Array()
		h.Walk(func(b alloc.FreeBlock) bool {
			bo := arr.Object()
			bo.Name("addr").Int(b.Addr)
			bo.Name("size").Int(b.Size)
			bo.Name("prev").Int(b.Prev)
			bo.Name("next").Int(b.Next)
			bo.End()
			return true
		})
		arr.End()
	}

	if opts.Live {
		arr := obj.Name("live").Array()
		h.Live(func(s alloc.Span) bool {
			so := arr.Object()
			so.Name("addr").Int(s.Addr)
			so.Name("ptr").Int(int(s.Data()))
			so.Name("size").Int(s.Size)
			so.End()
			return true
		})
		arr.End()
	}

	obj.End()
	if err := jw.Flush(); err != nil {
		return err
	}
	return jw.Error()
}

func writeStats(w *jwriter.Writer, s alloc.Stats) {
	o := w.Object()
	o.Name("allocCalls").Int(s.AllocCalls)
	o.Name("allocSlowPath").Int(s.AllocSlowPath)
	o.Name("allocFailures").Int(s.AllocFailures)
	o.Name("freeCalls").Int(s.FreeCalls)
	o.Name("freeRejected").Int(s.FreeRejected)
	o.Name("reallocCalls").Int(s.ReallocCalls)
	o.Name("splits").Int(s.SplitCount)
	o.Name("removes").Int(s.RemoveCount)
	o.Name("sentinelMisses").Int(s.SentinelMisses)
	o.Name("growCalls").Int(s.GrowCalls)
	o.Name("growBytes").Int(int(s.GrowBytes))
	o.Name("trimCalls").Int(s.TrimCalls)
	o.Name("trimBytes").Int(int(s.TrimBytes))
	o.Name("bytesInUse").Int(int(s.BytesInUse))

	m := o.Name("coalesce").Object()
	m.Name("seed").Int(s.FreeSeed)
	m.Name("mergeBeforeHead").Int(s.MergeBeforeHead)
	m.Name("insertBeforeHead").Int(s.InsertBeforeHead)
	m.Name("mergeAfterTail").Int(s.MergeAfterTail)
	m.Name("appendAfterTail").Int(s.AppendAfterTail)
	m.Name("mergeLeft").Int(s.MergeLeft)
	m.Name("mergeRight").Int(s.MergeRight)
	m.Name("mergeBoth").Int(s.MergeBoth)
	m.Name("insertMiddle").Int(s.InsertMiddle)
	m.End()

	o.End()
}

// Text writes a human-readable report of h.
func Text(w io.Writer, h *alloc.Heap, opts Options) error {
	cfg := h.Config()
	u := h.Usage()

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Strategy:\t%s\n", cfg.Strategy)
	fmt.Fprintf(tw, "Break:\t%d / %d bytes\n", u.Committed, u.Capacity)
	fmt.Fprintf(tw, "Free:\t%d bytes in %d blocks (largest %d)\n", u.FreeBytes, u.FreeBlocks, u.LargestFree)
	fmt.Fprintf(tw, "Live:\t%d bytes in %d blocks\n", u.LiveBytes, u.LiveBlocks)
	fmt.Fprintf(tw, "Headers:\t%d bytes\n", u.HeaderBytes)
	fmt.Fprintf(tw, "Fragmentation:\t%.1f%%\n", u.Fragmentation*100)

	if opts.Stats {
		s := h.Stats()
		fmt.Fprintf(tw, "Allocs:\t%d (%d slow, %d failed)\n", s.AllocCalls, s.AllocSlowPath, s.AllocFailures)
		fmt.Fprintf(tw, "Frees:\t%d (%d rejected)\n", s.FreeCalls, s.FreeRejected)
		fmt.Fprintf(tw, "Growth:\t%d steps, %d bytes\n", s.GrowCalls, s.GrowBytes)
		fmt.Fprintf(tw, "Trims:\t%d, %d bytes\n", s.TrimCalls, s.TrimBytes)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if !opts.FreeList && !opts.Live {
		return nil
	}
	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "ADDR\tSIZE\tKIND\tPREV\tNEXT\t")
	err := h.Blocks(func(b alloc.BlockHeader) bool {
		if b.Kind == alloc.KindFree && !opts.FreeList || b.Kind == alloc.KindAllocated && !opts.Live {
			return true
		}
		if b.Kind == alloc.KindFree {
			fmt.Fprintf(tw, "0x%x\t%d\t%s\t%s\t%s\t\n", b.Addr, b.Size, b.Kind, link(b.Prev), link(b.Next))
		} else {
			fmt.Fprintf(tw, "0x%x\t%d\t%s\t-\t-\t\n", b.Addr, b.Size, b.Kind)
		}
		return true
	})
	if err != nil {
		return err
	}
	return tw.Flush()
}

func link(addr int) string {
	if addr < 0 {
		return "nil"
	}
	return fmt.Sprintf("0x%x", addr)
}
