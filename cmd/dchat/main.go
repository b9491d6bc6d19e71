package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Dhanuzh/dchat/internal/config"
	"github.com/Dhanuzh/dchat/internal/provider"
	"github.com/Dhanuzh/dchat/internal/theme"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "dchat",
		Short: "dchat - chat with OpenAI-compatible model vendors",
		Long: `dchat talks to OpenAI, xAI, Anthropic, Gemini, DeepSeek, Together and
Ollama through one OpenAI-compatible client. It can chat from the terminal
or serve a REST backend that stores conversations and streams replies.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (default: search ., .dchat and ~/.config/dchat)")
	rootCmd.PersistentFlags().StringP("provider", "p", "", "Provider (openai, xai, anthropic, gemini, deepseek, together, ollama)")
	rootCmd.PersistentFlags().StringP("model", "m", "", "Model to use (provider/model format supported)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		chatCmd(),
		serveCmd(),
		modelsCmd(),
		providersCmd(),
		loginCmd(),
		logoutCmd(),
		validateCmd(),
		speakCmd(),
		historyCmd(),
		configCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app is the state shared by every command.
type app struct {
	cfg      *config.Config
	registry *provider.Registry
	theme    *theme.Theme
	styles   theme.Styles
	// provider is the --provider flag; empty means the active provider.
	provider string
}

func setup(cmd *cobra.Command) (*app, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	a := &app{cfg: cfg, registry: provider.NewDefaultRegistry()}
	a.applyFlags(cmd)

	if err := cfg.SetupLogging(os.Stderr); err != nil {
		return nil, err
	}
	if v, _ := cmd.Flags().GetBool("verbose"); v {
		log.SetLevel(log.DebugLevel)
	}

	if cfg.VendorCatalog != "" {
		vendors, err := provider.LoadCatalog(cfg.VendorCatalog)
		if err != nil {
			return nil, err
		}
		a.registry.RegisterVendors(vendors...)
		log.WithField("count", len(vendors)).Debug("registered catalog vendors")
	}

	th, err := theme.Get(cfg.Theme)
	if err != nil {
		th = theme.Default()
	}
	a.theme = th
	a.styles = th.Styles()
	return a, nil
}

// renderMarkdown formats assistant text for a terminal and leaves it
// unchanged when stdout is redirected.
func (a *app) renderMarkdown(md string) string {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return md
	}
	r, err := a.theme.NewMarkdownRenderer(terminalWidth()-4, false)
	if err != nil {
		log.WithError(err).Debug("markdown renderer unavailable")
		return md
	}
	return r.Render(md)
}

func (a *app) applyFlags(cmd *cobra.Command) {
	if p, _ := cmd.Flags().GetString("provider"); p != "" {
		a.provider = p
		a.cfg.DefaultProvider = p
	}
	if m, _ := cmd.Flags().GetString("model"); m != "" {
		if name, model, ok := strings.Cut(m, "/"); ok && a.registry.Has(name) {
			a.provider = name
			a.cfg.DefaultProvider = name
			m = model
		}
		a.cfg.DefaultModel = m
	}
}

func (a *app) resolveProvider() (provider.Provider, error) {
	return a.cfg.ResolveProvider(a.registry, a.provider)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dchat version %s (%s)\n", version, commit)
			fmt.Printf("go version %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}

func formatContextSize(tokens int) string {
	switch {
	case tokens <= 0:
		return "-"
	case tokens >= 1000000:
		return fmt.Sprintf("%.1fM", float64(tokens)/1000000)
	default:
		return fmt.Sprintf("%dK", tokens/1000)
	}
}
