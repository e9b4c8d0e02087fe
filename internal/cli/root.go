// Package cli implements flowctl, a headless driver for the flow editor.
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"whatsapp-flow-editor/internal/apiclient"
	"whatsapp-flow-editor/internal/blocks"
	"whatsapp-flow-editor/internal/config"
	"whatsapp-flow-editor/internal/schema"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format         string // "json" | "text"
	APIURL         string
	Token          string
	OrganizationID string
	UserID         string
	Retries        int

	AutosaveDelay    time.Duration
	PropagationDelay time.Duration
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command. Flag defaults come from cfg.
func NewRootCommand(cfg *config.Config) *cobra.Command {
	opts := &RootOptions{
		Retries:          cfg.ReferenceRetries,
		AutosaveDelay:    cfg.AutosaveDelay,
		PropagationDelay: cfg.PropagationDelay,
	}

	cmd := &cobra.Command{
		Use:           "flowctl",
		Short:         "Inspect, validate and publish conversational flows",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				msg := fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
				fmt.Fprintln(cmd.ErrOrStderr(), "Error:", msg)
				return &ExitError{Code: ExitCommandError, Message: msg}
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.APIURL, "api", cfg.APIURL, "Flow API base URL")
	cmd.PersistentFlags().StringVar(&opts.Token, "token", cfg.APIToken, "Flow API bearer token")
	cmd.PersistentFlags().StringVar(&opts.OrganizationID, "org", cfg.OrganizationID, "organization id")
	cmd.PersistentFlags().StringVar(&opts.UserID, "user", cfg.UserID, "user id recorded as flow owner")

	cmd.AddCommand(NewBlocksCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewNormalizeCommand(opts))
	cmd.AddCommand(NewPushCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewToggleCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
	}
}

func (o *RootOptions) client() *apiclient.Client {
	c := apiclient.New(o.APIURL, o.Token)
	c.OrganizationID = o.OrganizationID
	c.UserID = o.UserID
	return c
}

func interpreter() *schema.Interpreter {
	return schema.New(blocks.Default())
}
