package main

import (
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/mfigueira/caixinha/internal/config"
	"github.com/mfigueira/caixinha/internal/tui"
)

func chatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive bookkeeping conversation",
		Long: `Open a chat session with the assistant. Type messages the way you
would text a person:

  Botox 2800 3x
  insumos 1500
  quanto entrou esse mês?`,
		RunE: runChat,
	}

	cmd.Flags().String("owner", "default", "conversation owner id (one set of books per owner)")

	return cmd
}

func runChat(cmd *cobra.Command, _ []string) error {
	ownerID, _ := cmd.Flags().GetString("owner")

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

	program := tea.NewProgram(tui.NewModel(ctx, eng.HandleMessage, ownerID))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("chat session failed: %w", err)
	}

	return nil
}
