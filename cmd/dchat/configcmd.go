package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Dhanuzh/dchat/internal/config"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or save the effective configuration",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			if f := a.cfg.File(); f != "" {
				fmt.Fprintln(os.Stderr, a.styles.Muted.Render("# loaded from "+f))
			}
			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(a.cfg)
		},
	}

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Show where configuration is read from",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			fmt.Println(config.GetConfigPrecedence())
			fmt.Printf("config dir:       %s\n", config.GetConfigDir())
			fmt.Printf("credentials file: %s\n", a.cfg.CredentialsFile)
			if f := a.cfg.File(); f != "" {
				fmt.Printf("loaded file:      %s\n", f)
			}
			return nil
		},
	}

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the effective configuration to a file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			path := ""
			if len(args) > 0 {
				path = args[0]
			}
			if err := a.cfg.SaveConfig(path); err != nil {
				return err
			}
			fmt.Println(a.styles.Success.Render("✓ Configuration written"))
			return nil
		},
	}

	cmd.AddCommand(showCmd, pathCmd, initCmd)
	return cmd
}
