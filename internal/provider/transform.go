package provider

import (
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// FilterParameters returns a copy of req without the sampling parameters
// the target model rejects. Reasoning models lose temperature and both
// penalties; models without top_p support lose top_p. req is not modified.
func FilterParameters(req ChatRequest) ChatRequest {
	out := req
	if isReasoningModel(req.Model) {
		out.Temperature = nil
		out.FrequencyPenalty = nil
		out.PresencePenalty = nil
	}
	if !supportsTopP(req.Model) {
		out.TopP = nil
	}
	return out
}

// ConvertMessages adapts message content to what the vendor accepts. Vendors
// with flat content receive one text part holding the newline-joined text.
func ConvertMessages(v Vendor, msgs []ChatMessage) []ChatMessage {
	out := make([]ChatMessage, len(msgs))
	for i, m := range msgs {
		if v.FlatContent {
			out[i] = ChatMessage{Role: m.Role, Parts: []Part{{Type: PartText, Text: m.Text()}}}
			continue
		}
		out[i] = ChatMessage{Role: m.Role, Parts: append([]Part(nil), m.Parts...)}
	}
	return out
}

func toOpenAIMessages(v Vendor, msgs []ChatMessage) []openai.ChatCompletionMessage {
	converted := ConvertMessages(v, msgs)
	out := make([]openai.ChatCompletionMessage, 0, len(converted))
	for _, m := range converted {
		msg := openai.ChatCompletionMessage{Role: m.Role}
		if v.FlatContent || len(m.Parts) == 0 {
			msg.Content = m.Text()
			out = append(out, msg)
			continue
		}
		for _, p := range m.Parts {
			part := openai.ChatMessagePart{Type: openai.ChatMessagePartType(p.Type), Text: p.Text}
			if p.Type == PartImageURL {
				part.ImageURL = &openai.ChatMessageImageURL{URL: p.ImageURL, Detail: openai.ImageURLDetailAuto}
			}
			msg.MultiContent = append(msg.MultiContent, part)
		}
		out = append(out, msg)
	}
	return out
}

func toOpenAIRequest(v Vendor, req *ChatRequest, stream bool) openai.ChatCompletionRequest {
	filtered := FilterParameters(*req)
	out := openai.ChatCompletionRequest{
		Model:    filtered.Model,
		Messages: toOpenAIMessages(v, filtered.Messages),
		Stream:   stream,
		Stop:     filtered.Stop,
		Seed:     filtered.Seed,
	}
	if filtered.Temperature != nil {
		out.Temperature = float32(*filtered.Temperature)
	}
	if filtered.TopP != nil {
		out.TopP = float32(*filtered.TopP)
	}
	if filtered.FrequencyPenalty != nil {
		out.FrequencyPenalty = float32(*filtered.FrequencyPenalty)
	}
	if filtered.PresencePenalty != nil {
		out.PresencePenalty = float32(*filtered.PresencePenalty)
	}
	if filtered.MaxTokens != nil {
		out.MaxTokens = *filtered.MaxTokens
	}
	fitReasoningLimits(&out)
	return out
}

// fitReasoningLimits applies the client library's rules for o-series and
// gpt-5 models: max_tokens becomes max_completion_tokens and sampling values
// other than the defaults are left unset.
func fitReasoningLimits(req *openai.ChatCompletionRequest) {
	reasoning := false
	for _, prefix := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(req.Model, prefix) {
			reasoning = true
			break
		}
	}
	if !reasoning {
		return
	}
	if req.MaxTokens > 0 {
		req.MaxCompletionTokens = req.MaxTokens
		req.MaxTokens = 0
	}
	if req.Temperature != 1 {
		req.Temperature = 0
	}
	if req.TopP != 1 {
		req.TopP = 0
	}
	if req.FrequencyPenalty > 0 {
		req.FrequencyPenalty = 0
	}
	if req.PresencePenalty > 0 {
		req.PresencePenalty = 0
	}
}
