package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Octopus-DP/octopus-privacy-sub001/internal/repo"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/seed"
	"github.com/Octopus-DP/octopus-privacy-sub001/internal/store"
)

var seedCmd = &cobra.Command{
	Use:   "seed-templates",
	Short: "Install the built-in global phishing templates",
	RunE:  runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := store.NewBolt(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	return seed.Install(repo.NewTemplates(st, nil), logger)
}
