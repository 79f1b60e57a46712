package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	shared "github.com/fitglue/crm-pipeline/pkg"
	"github.com/fitglue/crm-pipeline/pkg/bootstrap"
	"github.com/fitglue/crm-pipeline/pkg/framework"
	"github.com/fitglue/crm-pipeline/pkg/pipeline"
)

type InvokeOptions struct {
	RecordID string
}

// NewInvokeCommand creates the invoke command.
func NewInvokeCommand() *cobra.Command {
	opts := &InvokeOptions{}

	cmd := &cobra.Command{
		Use:   "invoke --record-id <id>",
		Short: "Run the pipeline once for a record",
		Long: `Run the pipeline once for a record against the configured services and
print the response the HTTP trigger would return.

Example:
  crm-pipeline invoke --record-id 001xx000003DUM1AAG`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			svc, err := bootstrap.NewService(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()
			return invoke(ctx, svc, opts.RecordID, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.RecordID, "record-id", "", "CRM record id")
	_ = cmd.MarkFlagRequired("record-id")

	return cmd
}

func invoke(ctx context.Context, svc *bootstrap.Service, recordID string, out io.Writer) error {
	body, err := json.Marshal(pipeline.InboundEvent{RecordID: recordID})
	if err != nil {
		return err
	}

	fwCtx := framework.NewContext(shared.ServiceName, "cli", svc)
	outcome := svc.Pipeline.Handle(ctx, fwCtx.Invocation(), body)

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(outcome.Response()); err != nil {
		return err
	}
	fmt.Fprintf(out, "status: %d\n", outcome.StatusCode())

	if outcome.Kind == pipeline.Failure {
		return fmt.Errorf("record %s failed at %s: %s", recordID, outcome.Stage(), outcome.Code())
	}
	return nil
}
