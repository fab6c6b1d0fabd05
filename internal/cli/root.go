package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/aaaa47080/stock-agent-sub003/internal/config"
	"github.com/aaaa47080/stock-agent-sub003/internal/display"
	"github.com/aaaa47080/stock-agent-sub003/internal/listener"
	"github.com/aaaa47080/stock-agent-sub003/internal/logger"
)

var (
	cfgFile string
	debug   bool
	cfg     config.Config
)

const replHelp = `Commands:
  exit, quit  leave the assistant
  reset       start a fresh conversation
  usage       show tool usage for this run
  metrics     show timings for the last request
  codebook    list the learned plans
Anything else is treated as a request.`

var rootCmd = &cobra.Command{
	Use:   "assistant",
	Short: "A crypto market assistant that plans and dispatches its own work",
	Long: `An assistant for crypto market questions. It classifies each request,
plans the steps, asks before running anything non-trivial, dispatches the
steps to news, technical and chat agents, and remembers plans that worked.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if debug {
			c.Log.Debug = true
		}
		if err := logger.Init(c.Log.File, c.Log.Debug); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		cfg = c
		return nil
	},
	RunE: runREPL,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./assistant.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(codebookCmd)
}

func runREPL(cmd *cobra.Command, args []string) error {
	if err := listener.Init(); err != nil {
		return fmt.Errorf("init terminal input: %w", err)
	}
	defer listener.Close()

	app, err := buildApp(cfg, consoleTransport{})
	if err != nil {
		return err
	}
	defer app.Close()

	sessionID := newSessionID()

	// One request runs at a time; a signal while it runs cancels it, a
	// signal at the prompt quits.
	var runMu sync.Mutex
	var cancelRun context.CancelFunc

	sigC := make(chan os.Signal, 1)
	signal.Notify(sigC, os.Interrupt, syscall.SIGTERM)
	go func() {
		for range sigC {
			runMu.Lock()
			cancel := cancelRun
			runMu.Unlock()
			if cancel != nil {
				cancel()
				listener.AsyncPrintln("Stopping the current request...")
				continue
			}
			fmt.Println("\nGoodbye!")
			os.Exit(0)
		}
	}()

	listener.AsyncPrintln("Hello! Ask me about crypto news, prices or charts. (type 'help' for commands)")

	for {
		input := listener.GetInput()
		if input == "" {
			continue
		}

		switch strings.ToLower(input) {
		case "exit", "quit":
			fmt.Println("Goodbye!")
			return nil
		case "help":
			listener.AsyncPrintln(replHelp)
			continue
		case "reset":
			app.Memory.Forget(sessionID)
			app.HITL.ResetSession(sessionID)
			sessionID = newSessionID()
			listener.AsyncPrintln("Conversation cleared.")
			continue
		case "usage":
			listener.AsyncPrintln(display.FormatUsageSummary(app.Registry.UsageSummary()))
			continue
		case "metrics":
			if sm := app.Manager.LastMetrics(); sm != nil {
				listener.AsyncPrintln(display.FormatSessionMetrics(sm))
			} else {
				listener.AsyncPrintln("No request has run yet.")
			}
			continue
		case "codebook":
			listener.AsyncPrintln(display.FormatCodebook(app.Codebook.Entries()))
			continue
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		runMu.Lock()
		cancelRun = cancel
		runMu.Unlock()

		report, err := app.Manager.Process(ctx, input, sessionID)

		runMu.Lock()
		cancelRun = nil
		runMu.Unlock()
		cancel()

		if err != nil {
			listener.AsyncPrintln("Request stopped.")
			continue
		}
		listener.AsyncPrintln(display.FormatReport(report))
		if cfg.Log.Debug {
			if sm := app.Manager.LastMetrics(); sm != nil {
				listener.AsyncPrintln(display.FormatSessionMetrics(sm))
			}
		}
	}
}

func newSessionID() string {
	return uuid.NewString()[:8]
}
