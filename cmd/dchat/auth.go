package main

import (
	"context"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Dhanuzh/dchat/internal/chat"
	"github.com/Dhanuzh/dchat/internal/config"
	"github.com/Dhanuzh/dchat/internal/provider"
)

const credentialTimeout = 15 * time.Second

// checkCredential reports whether p accepts its configured key.
func checkCredential(p provider.Provider) bool {
	ctx, cancel := context.WithTimeout(context.Background(), credentialTimeout)
	defer cancel()
	svc := chat.NewService(chat.WithLogger(log.WithField("provider", p.Name())))
	svc.SetProvider(p)
	return svc.ValidateCredential(ctx)
}

func loginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login [provider]",
		Short: "Store an API key for a provider",
		Long: `Prompt for an API key, check it against the vendor and store it in the
credentials file. Environment variables and the config file still take
precedence over stored keys.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			name := a.cfg.DefaultProvider
			if len(args) > 0 {
				name = args[0]
			}
			reg, ok := a.registry.Registration(name)
			if !ok {
				return &provider.UnknownProviderError{Name: name}
			}

			key, err := config.ReadSecret(fmt.Sprintf("API key for %s: ", reg.DisplayName), os.Stdin, os.Stderr)
			if err != nil {
				return fmt.Errorf("failed to read key: %w", err)
			}
			if key == "" && !reg.KeyOptional {
				return fmt.Errorf("no key entered")
			}

			if force, _ := cmd.Flags().GetBool("force"); !force {
				p, err := reg.New(provider.Config{Name: name, APIKey: key, BaseURL: a.cfg.Providers[name].BaseURL})
				if err != nil {
					return err
				}
				if !checkCredential(p) {
					return fmt.Errorf("%s rejected the key; use --force to store it anyway", reg.DisplayName)
				}
			}

			if err := a.cfg.SetProviderKey(name, key); err != nil {
				return fmt.Errorf("failed to store key: %w", err)
			}
			fmt.Println(a.styles.Success.Render("✓ Stored key for " + reg.DisplayName))
			return nil
		},
	}
	cmd.Flags().Bool("force", false, "Store the key without checking it")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout <provider>",
		Short: "Remove a stored API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			if err := a.cfg.SetProviderKey(args[0], ""); err != nil {
				return err
			}
			fmt.Println(a.styles.Muted.Render("Removed stored key for " + args[0]))
			return nil
		},
	}
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and the active provider's credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			fmt.Println(a.styles.Success.Render("✓ Configuration is valid"))

			p, err := a.resolveProvider()
			if err != nil {
				return err
			}
			if !checkCredential(p) {
				return fmt.Errorf("%s rejected the configured credential", p.DisplayName())
			}
			fmt.Println(a.styles.Success.Render("✓ " + p.DisplayName() + " accepted the credential"))
			return nil
		},
	}
}
