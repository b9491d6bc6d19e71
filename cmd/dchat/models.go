package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Dhanuzh/dchat/internal/provider"
	"github.com/Dhanuzh/dchat/internal/theme"
)

func modelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models [provider]",
		Short: "List available models",
		Long:  "List the models of one provider, or of every configured provider when none is named.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			ctx := context.Background()

			var models []provider.ModelDescriptor
			if len(args) > 0 {
				p, err := a.cfg.ResolveProvider(a.registry, args[0])
				if err != nil {
					return err
				}
				if models, err = p.ListModels(ctx); err != nil {
					return fmt.Errorf("failed to list models: %w", err)
				}
			} else {
				d := provider.NewDiscovery(a.registry)
				models = d.All(ctx, a.cfg.ProviderConfigs(a.registry.Names()))
				if len(models) == 0 {
					return fmt.Errorf("no providers configured; run 'dchat login' or set a vendor API key")
				}
			}

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(models)
			}
			fmt.Print(renderModels(a.styles, models, terminalWidth()))
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "Print the descriptors as JSON")
	return cmd
}

func terminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 100
}

// renderModels draws one row per model. The model column shrinks to fit
// width.
func renderModels(styles theme.Styles, models []provider.ModelDescriptor, width int) string {
	const fixed = 12 + 9 + 10 + 8 + 12
	idWidth := width - fixed
	if idWidth < 20 {
		idWidth = 20
	}
	if idWidth > 48 {
		idWidth = 48
	}

	cell := func(s string, w int) string {
		if lipgloss.Width(s) > w-1 {
			r := []rune(s)
			s = string(r[:w-2]) + "…"
		}
		return lipgloss.NewStyle().Width(w).Render(s)
	}

	var b strings.Builder
	header := cell("PROVIDER", 12) + cell("MODEL", idWidth) + cell("CONTEXT", 9) + cell("CUTOFF", 10) + cell("VISION", 8) + "FLAGS"
	b.WriteString(styles.Header.Render(header) + "\n")
	b.WriteString(styles.Muted.Render(strings.Repeat("─", lipgloss.Width(header)+6)) + "\n")

	for _, m := range models {
		vision := styles.Muted.Render(cell("no", 8))
		if m.ImageSupport {
			vision = styles.Success.Render(cell("yes", 8))
		}
		var flags []string
		if m.Preferred {
			flags = append(flags, styles.Success.Render("preferred"))
		}
		if m.Deprecated {
			flags = append(flags, styles.Warning.Render("deprecated"))
		}
		cutoff := m.KnowledgeCutoff
		if cutoff == "" {
			cutoff = "-"
		}
		b.WriteString(cell(m.Provider, 12) +
			cell(m.ID, idWidth) +
			cell(formatContextSize(m.ContextWindow), 9) +
			cell(cutoff, 10) +
			vision +
			strings.Join(flags, " ") + "\n")
	}
	return b.String()
}

func providersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List known providers and whether they are configured",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			configs := a.cfg.ProviderConfigs(a.registry.Names())

			fmt.Println(a.styles.Header.Render(fmt.Sprintf("%-12s %-22s %s", "NAME", "DISPLAY NAME", "STATUS")))
			for _, reg := range a.registry.Registrations() {
				status := a.styles.Muted.Render("not configured")
				switch _, ok := configs[reg.Name]; {
				case ok:
					status = a.styles.Success.Render("configured")
				case reg.KeyOptional:
					status = a.styles.Muted.Render("no key needed")
				}
				marker := " "
				if reg.Name == a.cfg.DefaultProvider {
					marker = a.styles.Title.Render("*")
				}
				fmt.Printf("%-12s %-22s %s %s\n", reg.Name, reg.DisplayName, status, marker)
			}
			return nil
		},
	}
}
