package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sydlexius/autotagger/internal/provider"
)

func newProvidersCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "Inspect and configure catalogue providers",
	}
	cmd.AddCommand(newProvidersListCommand(ctx))
	cmd.AddCommand(newProvidersSetKeyCommand(ctx))
	cmd.AddCommand(newProvidersDeleteKeyCommand(ctx))
	cmd.AddCommand(newProvidersTestCommand(ctx))
	return cmd
}

// withApp opens the application with logs on stderr and closes it after fn.
func withApp(cmd *cobra.Command, ctx *commandContext, fn func(a *app) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	a, err := openApp(cmd.Context(), cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func newProvidersListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List providers and their credential status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, ctx, func(a *app) error {
				statuses, err := a.settings.ListProviderKeyStatuses(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, statuses)
				}
				rows := make([][]string, 0, len(statuses))
				for _, s := range statuses {
					enabled := "no"
					if a.registry.Get(s.Name) != nil {
						enabled = "yes"
					}
					rate := "-"
					if s.RateLimit != nil && s.RateLimit.RequestsPerSecond > 0 {
						rate = strconv.FormatFloat(s.RateLimit.RequestsPerSecond, 'g', -1, 64) + "/s"
					}
					rows = append(rows, []string{s.DisplayName, string(s.Name), enabled, string(s.AccessTier), s.Status, rate})
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Provider", "Name", "Enabled", "Access", "Credential", "Rate"}, rows, 5))
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print as JSON")
	return cmd
}

func newProvidersSetKeyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set-key <provider> [credential]",
		Short: "Store a provider credential",
		Long: "Stores an API token (Discogs) or client_id:client_secret pair (Spotify,\n" +
			"Beatport). When the credential is omitted it is read from the terminal\n" +
			"without echo, or from stdin when stdin is not a terminal.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := keyedProviderArg(args[0])
			if err != nil {
				return err
			}
			var key string
			if len(args) == 2 {
				key = args[1]
			} else {
				key, err = readSecret(cmd, fmt.Sprintf("%s credential: ", name.DisplayName()))
				if err != nil {
					return err
				}
			}
			key = strings.TrimSpace(key)
			if key == "" {
				return errors.New("credential is empty")
			}
			return withApp(cmd, ctx, func(a *app) error {
				if err := a.settings.SetAPIKey(cmd.Context(), name, key); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Saved %s credential\n", name.DisplayName())
				return err
			})
		},
	}
}

func newProvidersDeleteKeyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-key <provider>",
		Short: "Remove a stored provider credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := keyedProviderArg(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, ctx, func(a *app) error {
				if err := a.settings.DeleteAPIKey(cmd.Context(), name); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s credential\n", name.DisplayName())
				return err
			})
		},
	}
}

func newProvidersTestCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test [provider...]",
		Short: "Check connectivity and credentials for enabled providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, ctx, func(a *app) error {
				targets := a.registry.All()
				if len(args) > 0 {
					targets = targets[:0]
					for _, arg := range args {
						name, ok := provider.ParseSourceName(strings.ToLower(arg))
						p := a.registry.Get(name)
						if !ok || p == nil {
							return fmt.Errorf("unknown or disabled provider %q", arg)
						}
						targets = append(targets, p)
					}
				}

				var failed int
				rows := make([][]string, 0, len(targets))
				for _, p := range targets {
					result := "ok"
					if err := testProvider(cmd.Context(), a, p); err != nil {
						result = err.Error()
						failed++
					}
					rows = append(rows, []string{p.Name().DisplayName(), result})
				}
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Provider", "Result"}, rows)); err != nil {
					return err
				}
				if failed > 0 {
					return fmt.Errorf("%d provider(s) failed", failed)
				}
				return nil
			})
		},
	}
}

// testProvider runs a connection test and records the credential status,
// the same way the HTTP API does.
func testProvider(ctx context.Context, a *app, p provider.Provider) error {
	testable, ok := p.(provider.TestableProvider)
	if !ok {
		return nil
	}
	testCtx, cancel := context.WithTimeout(ctx, a.cfg.Providers.Timeout)
	defer cancel()
	err := testable.TestConnection(testCtx)
	if p.RequiresAuth() {
		if status := provider.KeyStatusFromTest(err); status != "" {
			if serr := a.settings.SetKeyStatus(ctx, p.Name(), status); serr != nil {
				a.logger.Warn("recording key status", "provider", p.Name(), "error", serr)
			}
		}
	}
	return err
}

func keyedProviderArg(arg string) (provider.SourceName, error) {
	name, ok := provider.ParseSourceName(strings.ToLower(strings.TrimSpace(arg)))
	if !ok || name == provider.SourceMusicBrainzPseudo {
		return "", fmt.Errorf("unknown provider %q", arg)
	}
	if !provider.ProviderRequiresKey(name) {
		return "", fmt.Errorf("%s does not use credentials", name.DisplayName())
	}
	return name, nil
}

// readSecret prompts on a terminal without echo, or reads one line from the
// command's input otherwise.
func readSecret(cmd *cobra.Command, prompt string) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), prompt)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("reading credential: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading credential: %w", err)
	}
	return line, nil
}
