package listener

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/chzyer/readline"
)

var rl *readline.Instance
var mu sync.Mutex
var holdAsync bool
var heldLines []string

func Init() error {
	var err error
	rl, err = readline.NewEx(&readline.Config{
		Prompt:          "> ",
		InterruptPrompt: "",
		EOFPrompt:       "",
	})
	return err
}

func Close() {
	if rl != nil {
		_ = rl.Close()
	}
}

func SetPrompt(p string) {
	mu.Lock()
	defer mu.Unlock()
	if rl != nil {
		rl.SetPrompt(p)
	}
}

// BeginInteractive holds async output so a question and its answer stay
// adjacent on screen. EndInteractive flushes whatever queued up meanwhile.
func BeginInteractive() {
	mu.Lock()
	holdAsync = true
	mu.Unlock()
}

func EndInteractive() {
	mu.Lock()
	defer mu.Unlock()
	holdAsync = false
	for _, s := range heldLines {
		if rl == nil {
			fmt.Println(s)
		} else {
			_, _ = rl.Write([]byte("\r\n" + s + "\r\n"))
		}
	}
	heldLines = nil
	if rl != nil {
		rl.Refresh()
	}
}

func printAboveUnlocked(s string) {
	if rl == nil {
		fmt.Println(s)
		return
	}
	_, _ = rl.Write([]byte("\r\n" + s + "\r\n"))
	rl.Refresh()
}

func PrintAbove(s string) {
	mu.Lock()
	defer mu.Unlock()
	printAboveUnlocked(s)
}

func GetInput() string {
	line, err := rl.Readline()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(line)
}

func readWithPrompt(prompt string) string {
	mu.Lock()
	old := rl.Config.Prompt
	rl.SetPrompt(prompt)
	mu.Unlock()

	line, err := rl.Readline()
	if err != nil {
		line = ""
	}

	mu.Lock()
	rl.SetPrompt(old)
	mu.Unlock()
	return strings.TrimSpace(line)
}

// Ask prints a question and reads one free-text line. An empty line or a
// closed terminal yields "".
func Ask(question string) string {
	BeginInteractive()
	defer EndInteractive()

	PrintAbove(question)
	return readWithPrompt("? ")
}

// Choose prints a question with numbered options and reads the answer.
// Typing an option's number returns that option verbatim; anything else is
// returned as typed, so callers can accept free-text amendments.
func Choose(question string, options []string) string {
	if len(options) == 0 {
		return Ask(question)
	}

	BeginInteractive()
	defer EndInteractive()

	var sb strings.Builder
	sb.WriteString(question)
	for i, opt := range options {
		sb.WriteString(fmt.Sprintf("\n  %d) %s", i+1, opt))
	}
	PrintAbove(sb.String())

	ans := readWithPrompt("? ")
	if n, err := strconv.Atoi(ans); err == nil && n >= 1 && n <= len(options) {
		return options[n-1]
	}
	return ans
}

func AsyncPrintln(s string) {
	mu.Lock()
	defer mu.Unlock()
	if holdAsync {
		heldLines = append(heldLines, s)
		return
	}
	if rl == nil {
		fmt.Println(s)
		return
	}
	_, _ = rl.Write([]byte("\r\n" + s + "\r\n"))
	rl.Refresh()
}
