package main

import (
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sydlexius/autotagger/internal/filesystem"
	"github.com/sydlexius/autotagger/internal/report"
	"github.com/sydlexius/autotagger/internal/tagread"
)

func newMatchCommand(ctx *commandContext) *cobra.Command {
	var (
		jsonOut   bool
		breakdown bool
		limit     int
		script    string
		output    string
	)

	cmd := &cobra.Command{
		Use:   "match <file-or-directory>",
		Short: "Rank catalogue candidates for a track or album on disk",
		Long: "Reads tags from an audio file (a track) or from the audio files in a\n" +
			"directory (an album), queries every enabled provider and prints the\n" +
			"ranked candidates with a confidence recommendation.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			local, err := tagread.Read(args[0])
			if err != nil {
				return err
			}
			if s := strings.TrimSpace(script); s != "" {
				local.Script = s
			}

			a, err := openApp(cmd.Context(), cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.pipeline.Run(cmd.Context(), local)
			if err != nil {
				return err
			}

			opts := report.Options{Format: report.FormatTable, Limit: limit, Breakdown: breakdown}
			if jsonOut {
				opts.Format = report.FormatJSON
			}
			if output == "" {
				return report.Write(cmd.OutOrStdout(), result, opts)
			}
			return filesystem.WriteAtomic(output, 0o644, func(w io.Writer) error {
				return report.Write(w, result, opts)
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the full result as JSON")
	cmd.Flags().BoolVar(&breakdown, "breakdown", false, "Show per-field distances and penalties")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum candidates to show in the table; 0 shows all")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the result to this file instead of stdout")
	cmd.Flags().StringVar(&script, "script", "", "ISO 15924 script of the local tags, e.g. Latn or Jpan")
	return cmd
}
