package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Dhanuzh/dchat/internal/storage"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "history",
		Aliases: []string{"conversations"},
		Short:   "Browse saved conversations",
	}

	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List recent conversations",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, store, err := setupStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := context.Background()
			var convs []storage.Conversation
			if q, _ := cmd.Flags().GetString("search"); q != "" {
				convs, err = store.SearchConversationMessages(ctx, q)
			} else {
				limit, _ := cmd.Flags().GetInt("limit")
				convs, err = store.RecentConversations(ctx, limit)
			}
			if err != nil {
				return err
			}

			fmt.Println(a.styles.Header.Render(fmt.Sprintf("%-6s %-17s %-24s %s", "ID", "DATE", "MODEL", "TITLE")))
			for _, c := range convs {
				date := time.UnixMilli(c.Timestamp).Format("2006-01-02 15:04")
				fmt.Printf("%-6d %-17s %-24s %s\n", c.ID, date, c.Model, c.Title)
			}
			return nil
		},
	}
	listCmd.Flags().IntP("limit", "n", 20, "Number of conversations to show")
	listCmd.Flags().StringP("search", "s", "", "Only conversations whose messages contain this text")

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid conversation id: %s", args[0])
			}
			a, store, err := setupStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			c, err := store.GetConversation(context.Background(), id)
			if err != nil {
				return err
			}
			fmt.Println(a.styles.Title.Render(c.Title) + " " + a.styles.Muted.Render(c.Model))
			if c.SystemPrompt != "" {
				fmt.Println(a.styles.Role("system").Render("system> " + c.SystemPrompt))
			}
			for _, m := range c.Messages {
				content := m.Content
				if m.Role == "assistant" {
					content = "\n" + a.renderMarkdown(content)
				}
				fmt.Printf("%s %s\n", a.styles.Role(m.Role).Render(m.Role+">"), content)
				for _, ref := range m.FileDataRef {
					fmt.Println(a.styles.Muted.Render(fmt.Sprintf("  [attachment %d]", ref.ID)))
				}
			}
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a conversation and its attachments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid conversation id: %s", args[0])
			}
			_, store, err := setupStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close()
			return store.DeleteConversation(context.Background(), id)
		},
	}

	cmd.AddCommand(listCmd, showCmd, deleteCmd)
	return cmd
}

func setupStore(cmd *cobra.Command) (*app, storage.Store, error) {
	a, err := setup(cmd)
	if err != nil {
		return nil, nil, err
	}
	store, err := openStore(context.Background(), a)
	if err != nil {
		return nil, nil, err
	}
	return a, store, nil
}
