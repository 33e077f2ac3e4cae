// Command ink runs an Ink script from the command line: load the given
// file, print content lines as the VM produces them, and prompt for a
// choice whenever one is offered. It is a thin consumer of package ink —
// everything interesting lives in the library.
package main

import (
	"bufio"
	"bytes"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ink-lang/ink"
)

const (
	ansiBold  = "\x1b[1m"
	ansiCyan  = "\x1b[36m"
	ansiReset = "\x1b[0m"
)

func main() {
	var (
		color    = flag.Bool("color", false, "colorize choices and diagnostics")
		dumpAST  = flag.Bool("dump-ast", false, "print the parsed AST and exit before running")
		dumpBC   = flag.Bool("dump-bytecode", false, "print the compiled bytecode and exit before running")
		traceGC  = flag.Bool("trace-gc", false, "log GC mark/sweep activity to stderr")
		traceVM  = flag.Bool("trace-vm", false, "log VM instruction dispatch to stderr")
		stressGC = flag.Bool("stress-gc", false, "collect at the start of every Continue (slow; for GC testing)")
		enableGC = flag.Bool("gc", true, "enable the garbage collector")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <script.ink>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	path := flag.Arg(0)

	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ink: %v\n", err)
		os.Exit(1)
	}

	var flags ink.Flag
	if *color {
		flags |= ink.FlagColor
	}
	if *dumpAST {
		flags |= ink.FlagDumpAST
	}
	if *dumpBC {
		flags |= ink.FlagDumpBytecode
	}
	if *traceGC {
		flags |= ink.FlagTraceGC
	}
	if *traceVM {
		flags |= ink.FlagTraceVM
	}
	if *stressGC {
		flags |= ink.FlagStressGC
	}
	if *enableGC {
		flags |= ink.FlagEnableGC
	}

	story := ink.Open()
	defer story.Close()

	err = story.Load(ink.Options{Filename: path, Source: src, Flags: flags})
	if err != nil {
		var ierr *ink.Error
		if errors.As(err, &ierr) && ierr.Status == ink.StatusParse {
			var buf bytes.Buffer
			story.RenderDiagnostics(&buf)
			os.Stderr.Write(buf.Bytes())
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "ink: %v\n", err)
		os.Exit(1)
	}

	if *dumpAST || *dumpBC {
		return
	}

	run(story, *color)
}

func run(story *ink.Story, color bool) {
	reader := bufio.NewReader(os.Stdin)
	for {
		for story.CanContinue() {
			line, err := story.Continue()
			if err != nil {
				fmt.Fprintf(os.Stderr, "ink: %v\n", err)
				os.Exit(1)
			}
			if line != "" {
				fmt.Println(line)
			}
		}

		choices := story.ChoiceNext()
		if len(choices) == 0 {
			return
		}

		for _, c := range choices {
			if color {
				fmt.Printf("%s%d:%s %s%s\n", ansiBold, c.Index+1, ansiReset, ansiCyan, c.Text+ansiReset)
			} else {
				fmt.Printf("%d: %s\n", c.Index+1, c.Text)
			}
		}

		choice := prompt(reader, len(choices))
		if err := story.Choose(choice); err != nil {
			fmt.Fprintf(os.Stderr, "ink: %v\n", err)
			os.Exit(1)
		}
	}
}

// prompt reads a 1-based choice number from stdin, re-prompting on
// anything out of [1, n], and returns it converted to a 0-based index.
func prompt(r *bufio.Reader, n int) int {
	for {
		fmt.Print("> ")
		text, err := r.ReadString('\n')
		if err != nil {
			os.Exit(0)
		}
		text = strings.TrimSpace(text)
		idx, err := strconv.Atoi(text)
		if err != nil || idx < 1 || idx > n {
			fmt.Printf("enter a number from 1 to %d\n", n)
			continue
		}
		return idx - 1
	}
}
