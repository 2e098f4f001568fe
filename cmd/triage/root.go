package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/godilite/ticket-triage/internal/app"
	"github.com/godilite/ticket-triage/internal/config"
	"github.com/godilite/ticket-triage/internal/display"
	"github.com/godilite/ticket-triage/internal/service"
)

type globalFlags struct {
	model   string
	demo    bool
	verbose bool
}

type triageFlags struct {
	json bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	f := &triageFlags{}

	cmd := &cobra.Command{
		Use:   "triage [file]",
		Short: "Turn a customer email into a structured support ticket",
		Long: "Reads an email from a file or stdin, extracts entities, sentiment and urgency,\n" +
			"and produces a ticket with a recommended next action.",
		Args:          cobra.MaximumNArgs(1),
		Version:       service.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTriage(cmd, args, g, f)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&g.model, "model", "", "LLM model to use (default from LLM_MODEL)")
	pf.BoolVar(&g.demo, "demo", false, "skip the LLM and use the rule-based ticket")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "log to stderr")

	cmd.Flags().BoolVar(&f.json, "json", false, "print the ticket as JSON")

	cmd.AddCommand(newBatchCmd(g))
	cmd.AddCommand(newMCPCmd(g))
	return cmd
}

// loadPipeline reads the configuration and builds the triage pipeline. Logs
// go to stderr only with --verbose.
func loadPipeline(g *globalFlags) (*app.Pipeline, *config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	if g.model != "" {
		cfg.LLM.Model = g.model
	}

	logger := zap.NewNop()
	if g.verbose {
		if logger, err = config.NewLogger(cfg); err != nil {
			return nil, nil, nil, err
		}
	}
	return app.NewPipeline(cfg, logger), cfg, logger, nil
}

func readEmail(cmd *cobra.Command, args []string) (string, error) {
	var (
		data []byte
		err  error
	)
	if len(args) == 1 {
		data, err = os.ReadFile(args[0])
	} else {
		data, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return "", fmt.Errorf("read email: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", errors.New("no email text provided")
	}
	return text, nil
}

func runTriage(cmd *cobra.Command, args []string, g *globalFlags, f *triageFlags) error {
	email, err := readEmail(cmd, args)
	if err != nil {
		return err
	}

	pipeline, _, logger, err := loadPipeline(g)
	if err != nil {
		return err
	}
	defer pipeline.Close()
	defer logger.Sync()

	res, err := pipeline.Service.Triage(cmd.Context(), service.Request{EmailText: email, DisableLLM: g.demo})
	if err != nil {
		return fmt.Errorf("error processing email: %w", err)
	}

	out := cmd.OutOrStdout()
	if f.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Ticket)
	}
	_, err = fmt.Fprint(out, display.Ticket(res.Ticket, email))
	return err
}
