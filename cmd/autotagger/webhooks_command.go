package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sydlexius/autotagger/internal/webhook"
)

func newWebhooksCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhooks",
		Short: "Manage notifications sent when matching finishes",
	}
	cmd.AddCommand(newWebhooksListCommand(ctx))
	cmd.AddCommand(newWebhooksAddCommand(ctx))
	cmd.AddCommand(newWebhooksRemoveCommand(ctx))
	cmd.AddCommand(newWebhooksTestCommand(ctx))
	return cmd
}

func newWebhooksListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured webhooks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, ctx, func(a *app) error {
				hooks, err := a.webhooks.List(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, hooks)
				}
				rows := make([][]string, 0, len(hooks))
				for _, h := range hooks {
					enabled := "no"
					if h.Enabled {
						enabled = "yes"
					}
					rows = append(rows, []string{h.ID, h.Name, h.Type, strings.Join(h.Events, ","), enabled, h.URL})
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Name", "Type", "Events", "Enabled", "URL"}, rows))
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print as JSON")
	return cmd
}

func newWebhooksAddCommand(ctx *commandContext) *cobra.Command {
	var (
		hookType string
		events   []string
		disabled bool
	)
	var known []string
	for _, t := range webhook.Subscribable() {
		known = append(known, string(t))
	}

	cmd := &cobra.Command{
		Use:   "add <name> <url>",
		Short: "Register a webhook",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			hook := &webhook.Webhook{
				Name:    args[0],
				URL:     args[1],
				Type:    hookType,
				Events:  events,
				Enabled: !disabled,
			}
			if err := hook.Validate(); err != nil {
				return err
			}
			return withApp(cmd, ctx, func(a *app) error {
				if err := a.webhooks.Create(cmd.Context(), hook); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Created webhook %s\n", hook.ID)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&hookType, "type", webhook.TypeGeneric, "Payload format: generic, discord, slack or gotify")
	cmd.Flags().StringSliceVar(&events, "events", known, "Event types to deliver")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Create the webhook without enabling it")
	return cmd
}

func newWebhooksRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete a webhook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, ctx, func(a *app) error {
				if err := a.webhooks.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Deleted webhook %s\n", args[0])
				return err
			})
		},
	}
}

func newWebhooksTestCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test <id>",
		Short: "Send a sample notification to a webhook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, ctx, func(a *app) error {
				hook, err := a.webhooks.GetByID(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				testCtx, cancel := context.WithTimeout(cmd.Context(), a.cfg.Providers.Timeout)
				defer cancel()
				if err := a.dispatcher.Test(testCtx, hook); err != nil {
					return fmt.Errorf("webhook %s: %w", hook.Name, err)
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Delivered test notification to %s\n", hook.Name)
				return err
			})
		},
	}
}
