package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/modelkit/auth/jwt"
)

func newTokenCmd(root *rootOptions) *cobra.Command {
	var (
		subject string
		allowed []string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the gateway",
		Long: `Mint a bearer token signed with server.auth.jwt_secret. --models limits the
token to those configured models; without it every model is allowed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			jc := cfg.Server.Auth.JWT()
			if ttl > 0 {
				jc.TTL = ttl
			}
			svc, err := jwt.NewService(jc, func() *jwt.Claims { return &jwt.Claims{} })
			if err != nil {
				return err
			}
			for _, m := range allowed {
				if _, ok := cfg.Models[m]; !ok {
					return fmt.Errorf("--models: %q is not a configured model", m)
				}
			}
			token, err := svc.Mint(&jwt.Claims{Models: allowed}, subject)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "token subject")
	cmd.Flags().StringSliceVar(&allowed, "models", nil, "models the token may call")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default server.auth.token_ttl or 24h)")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
