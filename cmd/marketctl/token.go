package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"marketplace_admin/internal/config"
	"marketplace_admin/internal/middleware"
)

// ==================== token ====================

type tokenOptions struct {
	configFile string
	secret     string
	subject    string
	email      string
	role       string
	ttl        time.Duration
}

func newTokenCmd() *cobra.Command {
	opts := &tokenOptions{}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an HS256 access token for local development",
		Long: `Signs a token with the configured JWT secret (JWT_SECRET or --secret).
Production tokens come from the auth service; this is for local testing only.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runToken(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configFile, "config", "", "config file (yaml/json/toml)")
	f.StringVar(&opts.secret, "secret", "", "signing secret, overrides config")
	f.StringVar(&opts.subject, "sub", "", "user id (token subject)")
	f.StringVar(&opts.email, "email", "", "user email")
	f.StringVar(&opts.role, "role", middleware.RoleVendor, "app role: admin | moderator | vendor")
	f.DurationVar(&opts.ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("sub")
	return cmd
}

func runToken(cmd *cobra.Command, opts *tokenOptions) error {
	switch opts.role {
	case middleware.RoleAdmin, middleware.RoleModerator, middleware.RoleVendor:
	default:
		return fmt.Errorf("unknown role %q", opts.role)
	}
	if opts.ttl <= 0 {
		return errors.New("ttl must be positive")
	}

	jwtCfg := middleware.DefaultJWTConfig()
	if opts.secret != "" {
		jwtCfg.SecretKey = opts.secret
	} else {
		cfg, err := config.Load(opts.configFile)
		if err != nil {
			return err
		}
		jwtCfg.SecretKey = cfg.JWT.Secret
		jwtCfg.Issuer = cfg.JWT.Issuer
	}
	middleware.SetJWTConfig(jwtCfg)

	token, err := middleware.GenerateAccessToken(opts.subject, opts.email, opts.role, opts.ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
