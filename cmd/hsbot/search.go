package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/liteapi-travel/hscode-assistant/internal/app"
	"github.com/liteapi-travel/hscode-assistant/internal/catalog"
	"github.com/liteapi-travel/hscode-assistant/internal/config"
	"github.com/liteapi-travel/hscode-assistant/internal/override"
)

func newSearchCmd() *cobra.Command {
	var (
		limit   int
		noColor bool
	)

	cmd := &cobra.Command{
		Use:   "search <keyword>",
		Short: "Search the tariff catalog and stored overrides",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if noColor {
				color.NoColor = true
			}

			cfg, err := config.LoadFile(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			cat, err := catalog.LoadDir(cfg.Catalog.Dir)
			if err != nil {
				return fmt.Errorf("load catalog: %w", err)
			}

			st, err := app.OpenStore(cmd.Context(), cfg.Store)
			if err != nil {
				return err
			}
			defer st.Close()

			keyword := strings.TrimSpace(strings.Join(args, " "))
			matches := cat.Search(keyword)

			o, found, err := st.LatestOverride(cmd.Context(), keyword)
			if err != nil {
				return fmt.Errorf("resolve override: %w", err)
			}
			if found {
				matches = append([]catalog.TariffRecord{override.Record(o)}, matches...)
			}

			printResults(cmd.OutOrStdout(), keyword, matches, limit)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum records to print (0 for all)")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
	return cmd
}

func printResults(w io.Writer, keyword string, matches []catalog.TariffRecord, limit int) {
	if len(matches) == 0 {
		color.New(color.FgYellow).Fprintf(w, "No records match %q\n", keyword)
		return
	}

	color.New(color.FgGreen, color.Bold).Fprintf(w, "%d record(s) match %q\n", len(matches), keyword)

	shown := matches
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}

	code := color.New(color.FgCyan, color.Bold)
	for _, r := range shown {
		code.Fprintf(w, "%s", r.Code)
		if r.Override {
			color.New(color.FgMagenta).Fprint(w, "  [override]")
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  EN: %s\n  TH: %s\n  Duty: %s  FE: %s\n", r.NameEN, r.NameTH, r.Duty, r.FE)
	}

	if rest := len(matches) - len(shown); rest > 0 {
		color.New(color.Faint).Fprintf(w, "... %d more\n", rest)
	}
}
