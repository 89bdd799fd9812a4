package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	api "github.com/apc-foundation/exam-pipeline/api/v1alpha1"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type PushOptions struct {
	GlobalOptions

	FilePath string
}

func DefaultPushOptions() *PushOptions {
	return &PushOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdPush() *cobra.Command {
	o := DefaultPushOptions()
	cmd := &cobra.Command{
		Use:          "push",
		Short:        "Push a scraper batch to the webhook",
		Example:      "push --file /path/to/batch.json",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd.Context(), cmd.OutOrStdout())
		},
	}
	o.Bind(cmd.Flags())

	if err := cmd.MarkFlagRequired("file"); err != nil {
		panic(err)
	}

	return cmd
}

func (o *PushOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.StringVarP(&o.FilePath, "file", "f", o.FilePath, "Path to the JSON batch (required)")
}

func (o *PushOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	if !exists(o.FilePath) {
		return fmt.Errorf("file %q does not exist", o.FilePath)
	}
	return nil
}

func (o *PushOptions) Run(ctx context.Context, w io.Writer) error {
	batch, err := ReadWebhookFile(o.FilePath)
	if err != nil {
		return err
	}

	c, err := o.Client()
	if err != nil {
		return err
	}

	resp, err := c.Push(ctx, *batch)
	if err != nil {
		return fmt.Errorf("pushing batch: %w", err)
	}

	if printed, err := printStructured(w, o.Output, resp); printed || err != nil {
		return err
	}

	fmt.Fprintf(w, "run %s finished in %dms\n", deref(resp.RunID), resp.DurationMs)
	fmt.Fprintf(w, "new: %d updated: %d errors: %d\n", resp.New, resp.Updated, resp.Errors)
	fmt.Fprintf(w, "closed: %d opened: %d coming soon: %d\n",
		resp.StatusChanges.Closed, resp.StatusChanges.Opened, resp.StatusChanges.ComingSoon)
	if !resp.Success {
		return errRunNotSuccessful
	}
	return nil
}

// ReadWebhookFile reads a scraper batch. Unknown fields are rejected the same way the
// webhook rejects them.
func ReadWebhookFile(path string) (*api.WebhookRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading batch: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var batch api.WebhookRequest
	if err := dec.Decode(&batch); err != nil {
		return nil, fmt.Errorf("decoding batch %s: %w", path, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("decoding batch %s: trailing data after the JSON document", path)
	}
	return &batch, nil
}
