// Command atticctl ("attic") is the minimal IPC client binary called out
// in spec.md §6: it discovers a running AtticServer's socket, connects,
// and either sends one command from argv or drops into an interactive
// line-editing loop. It is intentionally thin — mode switching, BASIC
// program editing, and the help catalog are the GUI-adjacent CLI shell
// spec.md places out of scope; this binary only exercises the
// socket-discovery and line-transport mechanics §6 describes.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ergochat/readline"
	"golang.org/x/term"

	"github.com/attic/atticcore/internal/ipc"
)

const (
	version        = "0.2.0"
	historyFile    = ".attic_history"
	historySize    = 500
	defaultTimeout = ipc.ReadTimeout
)

func main() {
	args := os.Args[1:]

	if len(args) > 0 && (args[0] == "--help" || args[0] == "-h") {
		printUsage()
		return
	}
	if len(args) > 0 && (args[0] == "--version" || args[0] == "-v") {
		fmt.Printf("attic %s\n", version)
		return
	}

	socketPath := ipc.DiscoverSocket()
	if socketPath == "" {
		fmt.Fprintln(os.Stderr, "attic: no running AtticServer found (looked for /tmp/attic-*.sock)")
		os.Exit(1)
	}

	client := ipc.NewClient()
	if err := client.Connect(socketPath); err != nil {
		fmt.Fprintf(os.Stderr, "attic: failed to connect to %s: %v\n", socketPath, err)
		os.Exit(1)
	}
	defer client.Disconnect()

	if len(args) > 0 {
		os.Exit(runOneShot(client, strings.Join(args, " ")))
	}
	os.Exit(runInteractive(client))
}

// runOneShot sends a single command line (built from argv) and prints its
// response, exiting non-zero on a protocol "err" reply.
func runOneShot(client *ipc.Client, line string) int {
	resp, err := client.Send(line)
	if err != nil {
		fmt.Fprintf(os.Stderr, "attic: %v\n", err)
		return 1
	}
	printResponse(resp)
	if !resp.OK {
		return 1
	}
	return 0
}

// runInteractive drives a readline-backed REPL, sending every line typed
// to the server and printing its response, until EOF (Ctrl-D) or "quit".
func runInteractive(client *ipc.Client) int {
	editor := newLineEditor()
	defer editor.Close()

	for {
		line, err := editor.GetLine("attic> ")
		if err != nil {
			if err == io.EOF {
				return 0
			}
			fmt.Fprintf(os.Stderr, "attic: %v\n", err)
			return 1
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		resp, err := client.Send(trimmed)
		if err != nil {
			fmt.Fprintf(os.Stderr, "attic: %v\n", err)
			if !client.IsConnected() {
				return 1
			}
			continue
		}
		printResponse(resp)

		word, _, _ := strings.Cut(strings.ToLower(trimmed), " ")
		if word == "quit" || word == "shutdown" {
			return 0
		}
	}
}

func printResponse(resp ipc.Response) {
	if resp.OK {
		if resp.Data != "" {
			fmt.Println(resp.Data)
		}
		return
	}
	fmt.Fprintf(os.Stderr, "err: %s\n", resp.Data)
}

func printUsage() {
	fmt.Print(`USAGE: attic [command ...]

With no arguments, starts an interactive session against the most
recently active AtticServer socket (discovered by globbing
/tmp/attic-*.sock). With arguments, sends them as a single command line
and prints the response, exiting non-zero on an "err" reply.

OPTIONS:
  --help, -h      Show this help
  --version, -v   Show version

EXAMPLES:
  attic                       Interactive session
  attic status                One-shot status query
  attic "breakpoint set $0600"
`)
}

// lineEditor wraps ergochat/readline for an interactive TTY and falls
// back to bufio.Scanner when stdin is piped (batch mode, Emacs comint,
// or any other non-interactive caller).
type lineEditor struct {
	interactive bool
	rl          *readline.Instance
	scanner     *bufio.Scanner
}

func newLineEditor() *lineEditor {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return &lineEditor{scanner: bufio.NewScanner(os.Stdin)}
	}

	historyPath := ""
	if home, err := os.UserHomeDir(); err == nil {
		historyPath = filepath.Join(home, historyFile)
	}

	rl, err := readline.NewFromConfig(&readline.Config{
		HistoryFile:            historyPath,
		HistoryLimit:           historySize,
		DisableAutoSaveHistory: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "attic: readline init failed (%v), falling back to plain input\n", err)
		return &lineEditor{scanner: bufio.NewScanner(os.Stdin)}
	}
	return &lineEditor{interactive: true, rl: rl}
}

func (le *lineEditor) GetLine(prompt string) (string, error) {
	if le.interactive {
		le.rl.SetPrompt(prompt)
		line, err := le.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				return "", io.EOF
			}
			return "", err
		}
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			le.rl.SaveToHistory(trimmed)
		}
		return line, nil
	}

	fmt.Print(prompt)
	if !le.scanner.Scan() {
		if err := le.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return le.scanner.Text(), nil
}

func (le *lineEditor) Close() {
	if le.interactive {
		le.rl.Close()
	}
}
