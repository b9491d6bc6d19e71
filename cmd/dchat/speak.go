package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Dhanuzh/dchat/internal/provider"
)

func speakCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "speak <text...>",
		Short: "Synthesize speech and print the audio file URL",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			p, err := a.resolveProvider()
			if err != nil {
				return err
			}

			settings := provider.SpeechSettings{Model: a.cfg.Speech.Model, Voice: a.cfg.Speech.Voice}
			if v, _ := cmd.Flags().GetString("voice"); v != "" {
				settings.Voice = v
			}
			if v, _ := cmd.Flags().GetString("speech-model"); v != "" {
				settings.Model = v
			}
			settings.Speed, _ = cmd.Flags().GetFloat64("speed")

			if list, _ := cmd.Flags().GetBool("list-models"); list {
				for _, m := range p.ListSpeechModels(context.Background()) {
					fmt.Printf("%-12s %s\n", m.ID, a.styles.Muted.Render(m.DisplayName))
				}
				return nil
			}

			url, err := p.TextToSpeech(context.Background(), strings.Join(args, " "), settings)
			if err != nil {
				return err
			}
			fmt.Println(url)
			return nil
		},
	}
	cmd.Flags().String("voice", "", "Voice (alloy, echo, fable, onyx, nova, shimmer)")
	cmd.Flags().String("speech-model", "", "Speech model (tts-1, tts-1-hd)")
	cmd.Flags().Float64("speed", 0, "Playback speed between 0.25 and 4.0")
	cmd.Flags().Bool("list-models", false, "List the provider's speech models instead")
	return cmd
}
