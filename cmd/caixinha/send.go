package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mfigueira/caixinha/internal/config"
)

func sendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send [message]",
		Short: "Send a single message and print the reply",
		Long: `Process one message without opening the interactive chat. Useful for
scripting and for wiring the assistant behind an external chat gateway:

  caixinha send "Botox 2800 3x"
  caixinha send --owner clinic-a "quanto entrou esse mês?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSend,
	}

	cmd.Flags().String("owner", "default", "conversation owner id (one set of books per owner)")

	return cmd
}

func runSend(cmd *cobra.Command, args []string) error {
	ownerID, _ := cmd.Flags().GetString("owner")
	text := strings.Join(args, " ")

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	eng, cleanup, err := buildEngine(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer cleanup()

	reply, err := eng.HandleMessage(ctx, ownerID, text)
	if err != nil {
		return fmt.Errorf("failed to process message: %w", err)
	}

	fmt.Println(reply)
	return nil
}
