package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	api "github.com/apc-foundation/exam-pipeline/api/v1alpha1"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/thoas/go-funk"
)

type StatusOptions struct {
	GlobalOptions

	Limit int
}

func DefaultStatusOptions() *StatusOptions {
	return &StatusOptions{
		GlobalOptions: DefaultGlobalOptions(),
		Limit:         10,
	}
}

func NewCmdStatus() *cobra.Command {
	o := DefaultStatusOptions()
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Display recent runs and exam statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd.Context(), cmd.OutOrStdout())
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *StatusOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.IntVarP(&o.Limit, "limit", "l", o.Limit, "Number of runs to display (1-100)")
}

func (o *StatusOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	if o.Limit < 1 || o.Limit > 100 {
		return fmt.Errorf("limit must be between 1 and 100")
	}
	return nil
}

func (o *StatusOptions) Run(ctx context.Context, w io.Writer) error {
	c, err := o.Client()
	if err != nil {
		return err
	}

	resp, err := c.Status(ctx, o.Limit)
	if err != nil {
		return fmt.Errorf("reading status: %w", err)
	}

	if printed, err := printStructured(w, o.Output, resp); printed || err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 8, 1, '\t', 0)
	printStatsTable(tw, resp.Stats)
	fmt.Fprintln(tw)
	printRunsTable(tw, resp.Runs...)
	return tw.Flush()
}

func printStatsTable(w *tabwriter.Writer, stats api.ExamStats) {
	fmt.Fprintln(w, "ACTIVE\tOPEN\tCLOSED\tCOMING SOON")
	fmt.Fprintf(w, "%d\t%d\t%d\t%d\n", stats.TotalActive, stats.Open, stats.Closed, stats.ComingSoon)

	if len(stats.ByOrganization) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "ORGANIZATION\tEXAMS")
	organizations := funk.Keys(stats.ByOrganization).([]string)
	sort.Strings(organizations)
	for _, org := range organizations {
		fmt.Fprintf(w, "%s\t%d\n", org, stats.ByOrganization[org])
	}
}

func printRunsTable(w *tabwriter.Writer, runs ...api.Run) {
	fmt.Fprintln(w, "ID\tTYPE\tSTATUS\tFOUND\tNEW\tUPDATED\tERRORS\tSTARTED")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			r.ID, r.RunType, r.Status, r.Found, r.New, r.Updated, r.Errors, r.StartedAt.Format("2006-01-02 15:04:05"))
	}
}
