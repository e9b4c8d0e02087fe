package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"whatsapp-flow-editor/internal/canvas"
	"whatsapp-flow-editor/internal/editor"
	"whatsapp-flow-editor/internal/flow"
	"whatsapp-flow-editor/internal/persistence"
	"whatsapp-flow-editor/internal/refdata"
	"whatsapp-flow-editor/internal/ws"
)

// FlowSummary is one row of list and the payload of push.
type FlowSummary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Channel string `json:"channel"`
	Active  bool   `json:"active"`
	Nodes   int    `json:"nodes"`
	Edges   int    `json:"edges"`
}

func summarize(f *flow.Flow) FlowSummary {
	return FlowSummary{
		ID:      f.ID,
		Name:    f.Name,
		Channel: f.Channel,
		Active:  f.Active,
		Nodes:   len(f.Nodes),
		Edges:   len(f.Edges),
	}
}

func (o *RootOptions) coordinator(cmd *cobra.Command) *persistence.Coordinator {
	opts := []persistence.Option{persistence.WithNotifier(notifier{w: cmd.ErrOrStderr()})}
	if o.AutosaveDelay > 0 {
		opts = append(opts, persistence.WithAutosaveDelay(o.AutosaveDelay))
	}
	return persistence.NewCoordinator(o.client(), interpreter(), opts...)
}

// NewPushCommand saves a flow file through an editor session.
func NewPushCommand(rootOpts *RootOptions) *cobra.Command {
	var publish, refreshRefs bool

	cmd := &cobra.Command{
		Use:   "push <flow-file>",
		Short: "Save a flow file to the Flow API",
		Long: `Save a flow file to the Flow API. The file is opened in an editor
session, validated, normalized and saved; with --publish it is then
activated. With --refresh-refs the agent, department, team and AI agent
lists are fetched first and selections that no longer exist are cleared.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			f, err := LoadFlowFile(args[0])
			if err != nil {
				return out.Fail(ExitCommandError, err, nil, func(w io.Writer) {
					fmt.Fprintf(w, "✗ %v\n", err)
				})
			}
			if f.OrganizationID == "" {
				f.OrganizationID = rootOpts.OrganizationID
			}
			if f.Channel == "" {
				f.Channel = flow.ChannelWhatsApp
			}

			client := rootOpts.client()
			policy := refdata.DefaultRetryPolicy
			policy.MaxRetries = rootOpts.Retries
			sessOpts := []editor.Option{
				editor.WithLoader(refdata.NewLoader(client.References(), policy)),
				editor.WithUploader(client),
			}
			if rootOpts.PropagationDelay > 0 {
				sessOpts = append(sessOpts, editor.WithCanvasOptions(canvas.WithDelay(rootOpts.PropagationDelay)))
			}
			sess := editor.New(interpreter(), rootOpts.coordinator(cmd), sessOpts...)
			defer sess.Close()
			sess.Open(f)

			ctx := cmd.Context()
			if refreshRefs {
				if err := sess.ReloadReferences(ctx); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "! reference lists: %v\n", err)
				}
			}

			saved, err := sess.Update(ctx)
			if err == nil && publish {
				saved, err = sess.Publish(ctx)
			}
			if err != nil {
				return out.Fail(ExitFailure, err, nil, nil)
			}

			summary := summarize(saved)
			return out.Success(summary, func(w io.Writer) {
				fmt.Fprintf(w, "%s\n", summary.ID)
			})
		},
	}

	cmd.Flags().BoolVar(&publish, "publish", false, "activate the flow after saving")
	cmd.Flags().BoolVar(&refreshRefs, "refresh-refs", false, "reload reference lists and clear stale selections before saving")
	return cmd
}

// NewListCommand lists the flows of the organization.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the flows of the organization",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			flows, err := persistence.NewFlowList(rootOpts.client(), rootOpts.OrganizationID).Flows(cmd.Context())
			if err != nil {
				return out.Fail(ExitFailure, err, nil, func(w io.Writer) {
					fmt.Fprintf(w, "✗ %v\n", err)
				})
			}

			rows := make([]FlowSummary, len(flows))
			for i := range flows {
				rows[i] = summarize(&flows[i])
			}
			return out.Success(rows, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tCHANNEL\tACTIVE\tNODES")
				for _, r := range rows {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%d\n", r.ID, r.Name, r.Channel, r.Active, r.Nodes)
				}
				tw.Flush()
			})
		},
	}
}

// NewDeleteCommand deletes a flow.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <flow-id>",
		Short: "Delete a flow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			if err := rootOpts.coordinator(cmd).Delete(cmd.Context(), args[0]); err != nil {
				return out.Fail(ExitFailure, err, nil, nil)
			}
			return out.Success(map[string]string{"id": args[0]}, func(io.Writer) {})
		},
	}
}

// NewToggleCommand activates or deactivates a flow.
func NewToggleCommand(rootOpts *RootOptions) *cobra.Command {
	var active bool

	cmd := &cobra.Command{
		Use:   "toggle <flow-id>",
		Short: "Activate or deactivate a flow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			if err := rootOpts.coordinator(cmd).ToggleActive(cmd.Context(), args[0], active); err != nil {
				return out.Fail(ExitFailure, err, nil, nil)
			}
			return out.Success(map[string]any{"id": args[0], "active": active}, func(io.Writer) {})
		},
	}

	cmd.Flags().BoolVar(&active, "active", true, "activate (true) or deactivate (false)")
	return cmd
}

// NewWatchCommand prints flow change events until interrupted.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream flow change events from the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			err := ws.Listen(cmd.Context(), wsURL(rootOpts.APIURL), func(ev ws.WSEvent) {
				if rootOpts.Format == "json" {
					fmt.Fprintf(out.Writer, "{\"type\":%q,\"data\":%s}\n", ev.Type, ev.Data)
					return
				}
				fmt.Fprintf(out.Writer, "%s %s\n", ev.Type, ev.Data)
			})
			if err != nil && cmd.Context().Err() == nil {
				return out.Fail(ExitFailure, err, nil, func(w io.Writer) {
					fmt.Fprintf(w, "✗ %v\n", err)
				})
			}
			return nil
		},
	}
}

func wsURL(apiURL string) string {
	u := strings.TrimRight(apiURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws"
}
