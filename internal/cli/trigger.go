package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	api "github.com/apc-foundation/exam-pipeline/api/v1alpha1"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/thoas/go-funk"
)

var legalRunTypes = []string{string(api.RunTypeManual), string(api.RunTypeScheduled)}

type TriggerOptions struct {
	GlobalOptions

	RunType string
}

func DefaultTriggerOptions() *TriggerOptions {
	return &TriggerOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdTrigger() *cobra.Command {
	o := DefaultTriggerOptions()
	cmd := &cobra.Command{
		Use:     "trigger",
		Short:   "Start a status refresh run on the server",
		Example: "trigger --run-type scheduled -o json",
		Args:    cobra.NoArgs,
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

func (o *TriggerOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.StringVar(&o.RunType, "run-type", o.RunType, fmt.Sprintf("Run type recorded in the ledger when calling with an admin session. Secret callers always start scheduled runs. One of: (%s).", strings.Join(legalRunTypes, ", ")))
}

func (o *TriggerOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	if o.RunType != "" && !funk.ContainsString(legalRunTypes, o.RunType) {
		return fmt.Errorf("run type must be one of %s", strings.Join(legalRunTypes, ", "))
	}
	return nil
}

func (o *TriggerOptions) Run(ctx context.Context, w io.Writer) error {
	c, err := o.Client()
	if err != nil {
		return err
	}

	resp, err := c.TriggerRun(ctx, o.RunType)
	if err != nil {
		return fmt.Errorf("triggering run: %w", err)
	}

	if printed, err := printStructured(w, o.Output, resp); printed || err != nil {
		return err
	}

	fmt.Fprintf(w, "run %s finished in %dms\n", deref(resp.RunID), resp.DurationMs)
	fmt.Fprintf(w, "closed: %d opened: %d coming soon: %d\n",
		resp.StatusChanges.Closed, resp.StatusChanges.Opened, resp.StatusChanges.ComingSoon)
	fmt.Fprintf(w, "active exams: %d open exams: %d\n", resp.Totals.ActiveExams, resp.Totals.OpenExams)
	return nil
}
