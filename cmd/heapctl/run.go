package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/spf13/cobra"
	"golang.org/x/text/encoding"

	"github.com/joshuapare/heapkit/cmd/heapctl/logger"
	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/heap/cstring"
	"github.com/joshuapare/heapkit/heap/report"
	"github.com/joshuapare/heapkit/heap/snapshot"
	"github.com/joshuapare/heapkit/heap/verify"
)

var (
	runLoad     string
	runSave     string
	runCapacity int
	runInitial  int
	runStep     int
	runStrategy string
	runParanoid bool
	runEncoding string
	runLevel    int
)

func init() {
	cmd := newRunCmd()
	cmd.Flags().StringVar(&runLoad, "load", "", "Start from a saved snapshot instead of a fresh heap")
	cmd.Flags().StringVar(&runSave, "save", "", "Write a snapshot of the final heap to this path")
	cmd.Flags().IntVar(&runCapacity, "capacity", alloc.ConfigSmall.Capacity, "Store capacity in bytes")
	cmd.Flags().IntVar(&runInitial, "initial", alloc.ConfigSmall.InitialSize, "Initial break in bytes")
	cmd.Flags().IntVar(&runStep, "step", alloc.ConfigSmall.GrowthStep, "Growth step in bytes")
	cmd.Flags().StringVar(&runStrategy, "strategy", "first-fit", "Search strategy (first-fit, best-fit)")
	cmd.Flags().BoolVar(&runParanoid, "paranoid", false, "Check the free list after every operation")
	cmd.Flags().StringVar(&runEncoding, "encoding", "", "Encoding for strdup and puts (default UTF-8)")
	cmd.Flags().IntVar(&runLevel, "level", 6, "Brotli level for --save (0-11)")
	rootCmd.AddCommand(cmd)
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <script>",
		Short: "Replay an allocation script",
		Long: `The run command replays a script against a heap, one operation per line.
Blank lines and lines starting with # are ignored. Use - to read stdin.

  alloc NAME SIZE       allocate SIZE bytes and bind them to NAME
  calloc NAME N SIZE    allocate N*SIZE zeroed bytes
  realloc NAME SIZE     resize NAME (an unbound NAME allocates)
  free NAME             free NAME
  fill NAME BYTE        set every byte of NAME to BYTE
  strdup NAME TEXT      copy TEXT, NUL-terminated, into a new block
  puts NAME             print the string at NAME
  check                 verify the heap invariants
  trim                  return unused growth steps to the store
  dump                  print the heap layout

NAME may also be a data address such as 0x18, which is how blocks in a
loaded snapshot are addressed.

Example:
  heapctl run workload.txt
  heapctl run workload.txt --strategy best-fit --save heap.snap
  heapctl run more.txt --load heap.snap --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(args)
		},
	}
	return cmd
}

func runRun(args []string) error {
	enc, err := cstring.Lookup(runEncoding)
	if err != nil {
		return err
	}

	var in io.Reader = os.Stdin
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open script: %w", err)
		}
		defer f.Close()
		in = f
	}

	h, err := openHeap()
	if err != nil {
		return err
	}
	defer h.Close()

	s := &session{h: h, enc: enc, vars: make(map[string]alloc.Ptr)}
	if err := s.run(in); err != nil {
		return err
	}

	if runSave != "" {
		if err := snapshot.WriteFile(runSave, h, runLevel); err != nil {
			return fmt.Errorf("failed to save snapshot: %w", err)
		}
		printVerbose("Saved snapshot: %s\n", runSave)
	}

	if jsonOut {
		return report.JSON(os.Stdout, h, report.Options{Stats: true})
	}
	u := h.Usage()
	printInfo("%d ops, break %d, %d live blocks, %d free blocks\n",
		s.ops, u.Committed, u.LiveBlocks, u.FreeBlocks)
	return nil
}

func openHeap() (*alloc.Heap, error) {
	if runLoad != "" {
		printVerbose("Loading snapshot: %s\n", runLoad)
		h, err := snapshot.ReadFile(runLoad, &alloc.Config{Paranoid: runParanoid, Logger: logger.L})
		if err != nil {
			return nil, fmt.Errorf("failed to load snapshot: %w", err)
		}
		return h, nil
	}
	strategy, err := alloc.ParseStrategy(runStrategy)
	if err != nil {
		return nil, err
	}
	return alloc.New(&alloc.Config{
		Name:        "heapctl",
		Capacity:    runCapacity,
		InitialSize: runInitial,
		GrowthStep:  runStep,
		Strategy:    strategy,
		Paranoid:    runParanoid,
		Logger:      logger.L,
	})
}

// session is the interpreter state for one script.
type session struct {
	h    *alloc.Heap
	enc  encoding.Encoding
	vars map[string]alloc.Ptr
	ops  int
}

func (s *session) run(r io.Reader) error {
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := s.exec(line); err != nil {
			return fmt.Errorf("line %d: %s: %w", n, line, err)
		}
		s.ops++
	}
	return sc.Err()
}

func (s *session) exec(line string) error {
	op, rest := cut(line)
	switch op {
	case "alloc":
		name, size, err := nameAndInts(rest, 1)
		if err != nil {
			return err
		}
		p, err := s.h.Allocate(size[0])
		if err != nil {
			return err
		}
		return s.bind(name, p)

	case "calloc":
		name, n, err := nameAndInts(rest, 2)
		if err != nil {
			return err
		}
		p, err := s.h.AllocateZeroed(n[0], n[1])
		if err != nil {
			return err
		}
		return s.bind(name, p)

	case "realloc":
		name, size, err := nameAndInts(rest, 1)
		if err != nil {
			return err
		}
		old, err := s.ptr(name)
		if err != nil {
			old = alloc.Null
		}
		p, err := s.h.Reallocate(old, size[0])
		if err != nil {
			return err
		}
		printVerbose("realloc %s %s -> %s\n", name, old, p)
		delete(s.vars, name)
		if p != alloc.Null && !isAddress(name) {
			s.vars[name] = p
		}
		return nil

	case "free":
		name, err := oneName(rest)
		if err != nil {
			return err
		}
		p, err := s.ptr(name)
		if err != nil {
			return err
		}
		if err := s.h.Free(p); err != nil {
			return err
		}
		delete(s.vars, name)
		printVerbose("free %s (%s)\n", name, p)
		return nil

	case "fill":
		name, v := cut(rest)
		p, err := s.ptr(name)
		if err != nil {
			return err
		}
		c, err := strconv.ParseUint(v, 0, 8)
		if err != nil {
			return fmt.Errorf("bad byte %q", v)
		}
		b, err := s.h.Bytes(p)
		if err != nil {
			return err
		}
		for i := range b {
			b[i] = byte(c)
		}
		return nil

	case "strdup":
		name, text := cut(rest)
		if name == "" {
			return fmt.Errorf("expected NAME TEXT")
		}
		if strings.HasPrefix(text, `"`) {
			u, err := strconv.Unquote(text)
			if err != nil {
				return fmt.Errorf("bad string %s: %w", text, err)
			}
			text = u
		}
		p, err := cstring.Dup(s.h, text, s.enc)
		if err != nil {
			return err
		}
		return s.bind(name, p)

	case "puts":
		name, err := oneName(rest)
		if err != nil {
			return err
		}
		p, err := s.ptr(name)
		if err != nil {
			return err
		}
		str, err := cstring.Read(s.h, p, s.enc)
		if err != nil {
			return err
		}
		printInfo("%s = %q\n", name, str)
		return nil

	case "check":
		if err := verify.All(s.h); err != nil {
			return err
		}
		printVerbose("check ok\n")
		return nil

	case "trim":
		n, err := s.h.Trim()
		if err != nil {
			return err
		}
		printVerbose("trim released %d bytes\n", n)
		return nil

	case "dump":
		if jsonOut {
			return report.JSON(os.Stdout, s.h, report.Full)
		}
		return report.Text(os.Stdout, s.h, report.Full)
	}
	return fmt.Errorf("unknown command %q", op)
}

// bind names p. On failure p is freed again so no block goes unnamed.
func (s *session) bind(name string, p alloc.Ptr) error {
	var err error
	if isAddress(name) {
		err = fmt.Errorf("name %q looks like an address", name)
	} else if old, ok := s.vars[name]; ok {
		err = fmt.Errorf("%s is already bound to %s", name, old)
	}
	if err != nil {
		_ = s.h.Free(p)
		return err
	}
	s.vars[name] = p
	printVerbose("%s = %s\n", name, p)
	return nil
}

// ptr resolves a bound name or a literal data address.
func (s *session) ptr(name string) (alloc.Ptr, error) {
	if p, ok := s.vars[name]; ok {
		return p, nil
	}
	n, err := strconv.ParseInt(name, 0, 64)
	if err != nil {
		return alloc.Null, fmt.Errorf("unknown name %q", name)
	}
	return alloc.Ptr(n), nil
}

func isAddress(name string) bool {
	_, err := strconv.ParseInt(name, 0, 64)
	return err == nil
}

// cut splits off the first whitespace-separated field of s.
func cut(s string) (field, rest string) {
	s = strings.TrimSpace(s)
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}

func oneName(s string) (string, error) {
	f := strings.Fields(s)
	if len(f) != 1 {
		return "", fmt.Errorf("expected NAME, got %d argument(s)", len(f))
	}
	return f[0], nil
}

func nameAndInts(s string, n int) (string, []int, error) {
	f := strings.Fields(s)
	if len(f) != n+1 {
		return "", nil, fmt.Errorf("expected NAME and %d number(s), got %d argument(s)", n, len(f))
	}
	out := make([]int, n)
	for i, v := range f[1:] {
		x, err := strconv.Atoi(v)
		if err != nil {
			return "", nil, fmt.Errorf("bad number %q", v)
		}
		out[i] = x
	}
	return f[0], out, nil
}
