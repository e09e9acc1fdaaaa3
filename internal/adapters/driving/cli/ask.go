package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/localrag/internal/logger"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a single question",
	Long: `Answers one question with the same pipeline as the default run.
The vector store is built first if it does not exist yet.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger.SetVerbose(cfg.Verbose)

	out := newConsole(cmd.OutOrStdout())

	svc, cleanup, err := newService(cmd.Context(), cfg, out)
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err := svc.Prepare(cmd.Context()); err != nil {
		return err
	}

	out.Question(question)
	answer, err := svc.Ask(cmd.Context(), question)
	if err != nil {
		return err
	}
	out.Answer(answer)
	return nil
}
