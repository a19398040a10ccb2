package repl

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"

	perrors "github.com/ruchy-lang/ruchy/pkg/ruchy/errors"
)

const (
	DefaultPrompt      = "ruchy> "
	ContinuationPrompt = "   ... "
)

// storeSeed is how many stored inputs are loaded into line history.
const storeSeed = 500

// Start runs the interactive loop with line editing, history and tab
// completion until :quit, Ctrl+D or an unrecoverable read error.
func Start(r *Repl, out io.Writer, version string) error {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(func(input string) []string {
		word := lastWord(input)
		if strings.HasPrefix(input, ":") && !strings.ContainsAny(input, " \t") {
			word = input
		}
		var full []string
		for _, c := range r.Complete(input) {
			full = append(full, input[:len(input)-len(word)]+c)
		}
		return full
	})

	if r.opts.Store != nil {
		if entries, err := r.opts.Store.Recent(storeSeed); err == nil {
			for _, e := range entries {
				line.AppendHistory(e.Input)
			}
		} else {
			fmt.Fprintf(r.stderr, "[WARN] loading stored history: %v\n", err)
		}
	}
	if path := r.opts.HistoryFile; path != "" {
		if f, err := os.Open(path); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
		defer func() {
			if f, err := os.Create(path); err == nil {
				line.WriteHistory(f)
				f.Close()
			}
		}()
	}

	fmt.Fprintf(out, "Ruchy REPL v%s\n", version)
	fmt.Fprintln(out, "Type :help for commands, :quit or Ctrl+D to exit")
	fmt.Fprintln(out, "")

	prompt := r.opts.Prompt
	if prompt == "" {
		prompt = DefaultPrompt
	}

	for {
		current := prompt
		if r.Pending() {
			current = ContinuationPrompt
		}
		input, err := line.Prompt(current)
		if err != nil {
			if err == liner.ErrPromptAborted {
				if r.Pending() {
					r.pending = ""
					fmt.Fprintln(out, "^C (cleared)")
				} else {
					fmt.Fprintln(out, "^C")
				}
				continue
			}
			if err == io.EOF {
				fmt.Fprintln(out, "\nGoodbye!")
				return r.stopRecordingOnExit(out)
			}
			return fmt.Errorf("reading input: %w", err)
		}

		if strings.TrimSpace(input) != "" {
			line.AppendHistory(input)
		}

		result, err := r.Eval(input)
		switch {
		case stderrors.Is(err, ErrQuit):
			fmt.Fprintln(out, "Goodbye!")
			return r.stopRecordingOnExit(out)
		case stderrors.Is(err, ErrIncomplete):
			continue
		case err != nil:
			printError(out, err)
		case result != "":
			fmt.Fprintln(out, result)
		}
	}
}

// stopRecordingOnExit saves an active recording so it is not lost.
func (r *Repl) stopRecordingOnExit(out io.Writer) error {
	if r.recorder == nil {
		return nil
	}
	msg, err := r.StopRecording()
	if err != nil {
		return err
	}
	fmt.Fprintln(out, msg)
	return nil
}

func printError(out io.Writer, err error) {
	var re *perrors.RuchyError
	if stderrors.As(err, &re) {
		io.WriteString(out, re.PrettyString())
		io.WriteString(out, "\n")
		if stderrors.Is(err, ErrRecoveryExhausted) {
			fmt.Fprintf(out, "  %v\n", ErrRecoveryExhausted)
		}
		return
	}
	fmt.Fprintf(out, "Error: %v\n", err)
}
