package main

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/godilite/ticket-triage/internal/display"
	"github.com/godilite/ticket-triage/internal/export"
	"github.com/godilite/ticket-triage/internal/service"
)

type batchFlags struct {
	format      string
	output      string
	summary     bool
	concurrency int
}

func newBatchCmd(g *globalFlags) *cobra.Command {
	f := &batchFlags{}
	cmd := &cobra.Command{
		Use:   "batch <file>",
		Short: "Triage every email in a file",
		Long: "Emails are separated by blank lines; a file without blank lines holds one\n" +
			"email per line. Failed emails are skipped and counted.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, args[0], g, f)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.format, "format", "f", "json", "output format: json, csv or yaml")
	fl.StringVarP(&f.output, "output", "o", "", "write results to this file instead of stdout")
	fl.BoolVar(&f.summary, "summary", false, "print a summary table")
	fl.IntVarP(&f.concurrency, "concurrency", "c", 0, "emails processed in parallel (default from BATCH_CONCURRENCY)")
	return cmd
}

func runBatch(cmd *cobra.Command, path string, g *globalFlags, f *batchFlags) error {
	format, err := export.ParseFormat(f.format)
	if err != nil {
		return err
	}
	emails, err := service.LoadEmailsFile(path)
	if err != nil {
		return err
	}

	pipeline, cfg, logger, err := loadPipeline(g)
	if err != nil {
		return err
	}
	defer pipeline.Close()
	defer logger.Sync()

	concurrency := f.concurrency
	if concurrency <= 0 {
		concurrency = cfg.BatchConcurrency
	}

	status := cmd.ErrOrStderr()
	fmt.Fprintf(status, "Processing %d emails with model %s...\n", len(emails), cfg.LLM.Model)

	var (
		mu       sync.Mutex
		reported int
	)
	runner := service.NewBatchRunner(pipeline.Service, logger,
		service.WithConcurrency(concurrency),
		service.WithProgress(func(done, total int) {
			mu.Lock()
			defer mu.Unlock()
			if done <= reported {
				return
			}
			reported = done
			fmt.Fprintf(status, "\r%d/%d", done, total)
			if done == total {
				fmt.Fprintln(status)
			}
		}))
	result := runner.Run(cmd.Context(), emails, g.demo)
	if result.Failed > 0 {
		fmt.Fprintf(status, "%d of %d emails failed\n", result.Failed, len(emails))
	}

	tickets := result.Tickets()
	var out io.Writer = cmd.OutOrStdout()
	if f.output != "" {
		file, err := os.Create(f.output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer file.Close()
		out = file
	}
	if err := export.Write(out, format, tickets); err != nil {
		return fmt.Errorf("export results: %w", err)
	}
	if f.output != "" {
		fmt.Fprintf(status, "Results exported to %s\n", f.output)
	}

	if f.summary {
		summaryOut := status
		if f.output != "" {
			summaryOut = cmd.OutOrStdout()
		}
		fmt.Fprint(summaryOut, display.BatchSummary(tickets, service.SummarizeBatch(tickets)))
	}
	return nil
}
