package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"assessment-pipeline/internal/common/auth"
)

func newTokenCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint signed tokens for operators",
	}

	var ttl time.Duration
	process := &cobra.Command{
		Use:   "process <submission-id>",
		Short: "Mint a token that authorizes re-running stage 2 for one submission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			signer, err := auth.NewSigner(cfg.Tokens.Secret)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("ttl") {
				ttl = cfg.Tokens.ProcessTTL()
			}
			token, claims, err := signer.Issue(auth.PurposeProcess, args[0], "", ttl)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, token)
			if exp := claims.Expiry(); !exp.IsZero() {
				fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", exp.Format(time.RFC3339))
			}
			return nil
		},
	}
	process.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default: tokens.process_ttl_seconds, 0 means no expiry)")
	cmd.AddCommand(process)
	return cmd
}
