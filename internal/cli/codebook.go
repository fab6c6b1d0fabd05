package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aaaa47080/stock-agent-sub003/internal/codebook"
	"github.com/aaaa47080/stock-agent-sub003/internal/display"
)

// codebook inspects the learned-plan cache without starting the
// assistant, so it works offline.
var codebookCmd = &cobra.Command{
	Use:   "codebook",
	Short: "List the plans the assistant has learned",
	RunE: func(cmd *cobra.Command, args []string) error {
		cb, err := codebook.Open(cfg.Codebook.Path, cfg.Codebook.Threshold)
		if err != nil {
			return err
		}
		fmt.Println(display.FormatCodebook(cb.Entries()))
		return nil
	},
}
