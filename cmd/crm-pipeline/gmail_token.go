package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fitglue/crm-pipeline/pkg/infrastructure/oauth"
)

type GmailTokenOptions struct {
	ClientID     string
	ClientSecret string
	Addr         string
}

// NewGmailTokenCommand creates the gmail-token command.
func NewGmailTokenCommand() *cobra.Command {
	opts := &GmailTokenOptions{}

	cmd := &cobra.Command{
		Use:   "gmail-token",
		Short: "Obtain a Gmail refresh token for the notifier",
		Long: `Run the OAuth consent flow for the gmail.send scope and print the
refresh token. Store the printed token in Secret Manager under the
Gmail refresh token secret name.

The client id and secret default to $GMAIL_CLIENT_ID and $GMAIL_CLIENT_SECRET.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.ClientID == "" {
				opts.ClientID = os.Getenv("GMAIL_CLIENT_ID")
			}
			if opts.ClientSecret == "" {
				opts.ClientSecret = os.Getenv("GMAIL_CLIENT_SECRET")
			}
			if opts.ClientID == "" || opts.ClientSecret == "" {
				return errors.New("client id and client secret are required")
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			flow := &oauth.ConsentFlow{
				Config: oauth.NewGoogleExchanger().Config(opts.ClientID, opts.ClientSecret, oauth.GmailSendScope),
				Addr:   opts.Addr,
				Out:    cmd.ErrOrStderr(),
			}
			tok, err := flow.Run(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok.RefreshToken)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.ClientID, "client-id", "", "OAuth client id")
	cmd.Flags().StringVar(&opts.ClientSecret, "client-secret", "", "OAuth client secret")
	cmd.Flags().StringVar(&opts.Addr, "addr", "127.0.0.1:0", "loopback address for the redirect listener")

	return cmd
}
