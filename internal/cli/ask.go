package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aaaa47080/stock-agent-sub003/internal/hitl"
)

// ask runs one request without a terminal session. No human is attached,
// so plans execute directly and agents never wait on questions.
var askCmd = &cobra.Command{
	Use:   "ask \"question\"",
	Short: "Answer a single question and exit",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cfg, hitl.NonInteractive{})
		if err != nil {
			return err
		}
		defer app.Close()

		query := strings.Join(args, " ")
		report, err := app.Manager.Process(cmd.Context(), query, newSessionID())
		if err != nil {
			return err
		}
		fmt.Println(report)
		return nil
	},
}
