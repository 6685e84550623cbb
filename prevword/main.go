package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/DeafMist/prevword/internal/bootstrap"
	"github.com/DeafMist/prevword/internal/config"
	"github.com/DeafMist/prevword/internal/extract"
	"github.com/DeafMist/prevword/internal/fetch"
	"github.com/DeafMist/prevword/internal/logger"
	"github.com/DeafMist/prevword/internal/models"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := newRootCmd(os.Stdout, logger.NewStderr("prevword")).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer, log *slog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:          "prevword",
		Short:        "Show the word of the day before a puzzle date",
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.AddCommand(newResolveCmd(log), newExtractCmd(log), newVersionCmd())
	return root
}

func newResolveCmd(log *slog.Logger) *cobra.Command {
	var (
		date   string
		path   string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the previous word using the configured cache and source",
		Long: "Resolve the word for the day before --date (or the date at the end of --path, " +
			"or today). Configuration is read from the same environment variables as the api.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadCommon()
			if err != nil {
				return err
			}
			svc, err := bootstrap.Build(*cfg, log)
			if err != nil {
				return err
			}
			defer svc.Close()

			var res models.Resolution
			if date == "" && path != "" {
				res, err = svc.Resolver.ResolveForPath(cmd.Context(), path)
			} else {
				res, err = svc.Resolver.Resolve(cmd.Context(), date)
			}
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			origin := "fetched"
			if res.FromCache {
				origin = "cached"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  (%s)\n", res.TargetDate, res.Display(), origin)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "puzzle date (YYYY-MM-DD), defaults to today")
	cmd.Flags().StringVar(&path, "path", "", "host page path whose last segment is the puzzle date")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full resolution as JSON")
	return cmd
}

func newExtractCmd(log *slog.Logger) *cobra.Command {
	var (
		file      string
		strategy  string
		rulesFile string
	)
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Run extraction against a saved answers page and print the records",
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := extract.LoadRules(rulesFile)
			if err != nil {
				return err
			}
			if strategy != "" {
				rules.Strategy = strategy
			}
			ex, err := extract.New(rules, log)
			if err != nil {
				return err
			}

			doc, err := fetch.FileFetcher{}.Fetch(cmd.Context(), file)
			if err != nil {
				return err
			}
			records, err := ex.Extract(doc)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, r := range records {
				fmt.Fprintf(w, "%s  #%-5d %s\n", r.Date, r.Number, r.Word)
			}
			fmt.Fprintf(w, "%d records (%s)\n", len(records), ex.Strategy())
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "saved HTML page")
	cmd.Flags().StringVar(&strategy, "strategy", "", "tabular or flowtext, overrides the rules file")
	cmd.Flags().StringVar(&rulesFile, "rules", "", "YAML rules file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "prevword %s (commit: %s)\n", version, commit)
		},
	}
}
