package main

import (
	"bufio"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Dhanuzh/dchat/internal/chat"
	"github.com/Dhanuzh/dchat/internal/provider"
	"github.com/Dhanuzh/dchat/internal/storage"
)

func chatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat [message...]",
		Short: "Chat with a model",
		Long: `Send a single message, or start an interactive session when no message
is given. Ctrl+C aborts the reply in progress; press it again at the
prompt to quit. Interactive commands: /clear, /model <id>, /exit.`,
		RunE: runChat,
	}
	cmd.Flags().StringP("system", "s", "", "System instructions")
	cmd.Flags().Float64P("temperature", "t", 0, "Sampling temperature")
	cmd.Flags().Int("max-tokens", 0, "Completion token limit")
	cmd.Flags().Bool("no-stream", false, "Wait for the full reply instead of streaming")
	cmd.Flags().Int64("preset", 0, "Use the saved chat settings with this id")
	cmd.Flags().StringSliceP("file", "f", nil, "Attach a file to the first message")
	cmd.Flags().Bool("save", false, "Save the conversation to the configured store")
	return cmd
}

// session is one terminal chat: the service, the transcript and the
// optional store it is saved to.
type session struct {
	app      *app
	svc      *chat.Service
	settings chat.Settings
	history  []storage.Message
	store    storage.Store
	busy     atomic.Bool
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p, err := a.resolveProvider()
	if err != nil {
		return err
	}

	s := &session{
		app: a,
		svc: chat.NewService(
			chat.WithCoalesceDelay(a.cfg.Chat.StreamCoalesce),
			chat.WithLogger(log.WithField("provider", p.Name())),
		),
		settings: a.cfg.ChatSettings(),
	}
	s.svc.SetProvider(p)

	save, _ := cmd.Flags().GetBool("save")
	preset, _ := cmd.Flags().GetInt64("preset")
	if save || preset != 0 {
		s.store, err = openStore(ctx, a)
		if err != nil {
			return err
		}
		defer s.store.Close()
	}
	if err := s.applyFlags(ctx, cmd, preset); err != nil {
		return err
	}
	if err := s.ensureModel(ctx); err != nil {
		return err
	}

	files, _ := cmd.Flags().GetStringSlice("file")
	refs, err := readAttachments(files)
	if err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			if s.busy.Load() {
				s.svc.AbortRequest()
				continue
			}
			cancel()
			os.Exit(130)
		}
	}()

	if len(args) > 0 {
		err = s.send(ctx, strings.Join(args, " "), refs)
	} else {
		err = s.interactive(ctx, os.Stdin, refs)
	}
	if err != nil {
		return err
	}

	if save {
		return s.save(ctx)
	}
	return nil
}

func (s *session) applyFlags(ctx context.Context, cmd *cobra.Command, preset int64) error {
	if preset != 0 {
		cs, err := s.store.GetChatSettings(ctx, preset)
		if err != nil {
			return fmt.Errorf("failed to load preset %d: %w", preset, err)
		}
		s.settings = s.settings.With(chat.SettingsFrom(cs))
		s.settings.Stream = cs.Stream
	}

	var over chat.Settings
	if v, _ := cmd.Flags().GetString("system"); v != "" {
		over.Instructions = v
	}
	if cmd.Flags().Changed("temperature") {
		v, _ := cmd.Flags().GetFloat64("temperature")
		over.Temperature = &v
	}
	if cmd.Flags().Changed("max-tokens") {
		v, _ := cmd.Flags().GetInt("max-tokens")
		over.MaxTokens = &v
	}
	s.settings = s.settings.With(over)
	if v, _ := cmd.Flags().GetBool("no-stream"); v {
		s.settings.Stream = false
	}
	return nil
}

// ensureModel picks the provider's preferred model when none is set.
func (s *session) ensureModel(ctx context.Context) error {
	if s.settings.Model != "" {
		return nil
	}
	models, err := s.svc.Models(ctx)
	if err != nil {
		return err
	}
	if len(models) == 0 {
		return &provider.ConfigurationError{Message: "No model specified and the provider lists none"}
	}
	s.settings.Model = models[0].ID
	for _, m := range models {
		if m.Preferred {
			s.settings.Model = m.ID
			break
		}
	}
	log.WithField("model", s.settings.Model).Debug("using preferred model")
	return nil
}

func (s *session) send(ctx context.Context, text string, refs []storage.FileDataRef) error {
	s.history = append(s.history, storage.Message{Role: provider.RoleUser, Content: text, FileDataRef: refs})

	s.busy.Store(true)
	defer s.busy.Store(false)

	styles := s.app.styles
	fmt.Print(styles.Role("assistant").Render(s.settings.Model+">") + " ")
	completion, err := s.svc.SendMessage(ctx, s.history, s.settings, func(fragment string) {
		fmt.Print(fragment)
	})
	if err != nil {
		s.history = s.history[:len(s.history)-1]
		fmt.Println()
		if errors.Is(err, provider.ErrRequestCancelled) {
			fmt.Println(styles.Warning.Render("(aborted)"))
			return nil
		}
		return err
	}
	if !s.settings.Stream {
		fmt.Print("\n" + s.app.renderMarkdown(completion.Content()))
	}
	fmt.Println()

	s.history = append(s.history, storage.Message{Role: provider.RoleAssistant, Content: completion.Content()})
	return nil
}

func (s *session) interactive(ctx context.Context, in io.Reader, refs []storage.FileDataRef) error {
	styles := s.app.styles
	fmt.Println(styles.Box.Render(fmt.Sprintf("%s  %s\n%s",
		styles.Title.Render("dchat"),
		styles.Muted.Render(s.svc.Provider().DisplayName()+" / "+s.settings.Model),
		styles.Muted.Render("/clear resets the transcript, /model <id> switches models, /exit quits"))))

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		fmt.Print(styles.Role("user").Render("you>") + " ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/exit" || line == "/quit":
			return nil
		case line == "/clear":
			s.history = nil
			fmt.Println(styles.Muted.Render("(transcript cleared)"))
			continue
		case strings.HasPrefix(line, "/model"):
			id := strings.TrimSpace(strings.TrimPrefix(line, "/model"))
			if _, err := s.svc.ModelByID(ctx, id); err != nil {
				fmt.Println(styles.Error.Render(err.Error()))
				continue
			}
			s.settings.Model = id
			fmt.Println(styles.Muted.Render("(model " + id + ")"))
			continue
		}

		if err := s.send(ctx, line, refs); err != nil {
			fmt.Println(styles.Error.Render(err.Error()))
		}
		refs = nil
	}
}

func (s *session) save(ctx context.Context) error {
	if len(s.history) == 0 {
		return nil
	}
	title := s.history[0].Content
	if r := []rune(title); len(r) > 50 {
		title = string(r[:50])
	}
	now := time.Now()
	id, err := s.store.AddConversation(ctx, &storage.Conversation{
		Timestamp:    now.UnixMilli(),
		Title:        title,
		Model:        s.settings.Model,
		SystemPrompt: s.settings.Instructions,
		Messages:     s.history,
	})
	if err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	fmt.Println(s.app.styles.Muted.Render(fmt.Sprintf("(saved as conversation %d)", id)))
	return nil
}

// readAttachments loads files as base64 data URLs.
func readAttachments(paths []string) ([]storage.FileDataRef, error) {
	var refs []storage.FileDataRef
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read attachment: %w", err)
		}
		mime := http.DetectContentType(data)
		if i := strings.IndexByte(mime, ';'); i >= 0 {
			mime = mime[:i]
		}
		encoded := base64.StdEncoding.EncodeToString(data)
		refs = append(refs, storage.FileDataRef{FileData: &storage.FileData{
			Data:     "data:" + mime + ";base64," + encoded,
			Type:     mime,
			Source:   "local",
			Filename: path,
			Size:     int64(len(data)),
		}})
	}
	return refs, nil
}

func openStore(ctx context.Context, a *app) (storage.Store, error) {
	return storage.Open(ctx, storage.Options{
		Driver:     a.cfg.Storage.Driver,
		DSN:        a.cfg.Storage.DSN,
		BackendURL: a.cfg.Storage.BackendURL,
	})
}
