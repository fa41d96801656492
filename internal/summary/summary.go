// Package summary builds a conversation transcript, asks the assistant for a
// professional summary, and submits the result to the email delivery
// endpoint. Delivery of something useful beats no email: if summarization
// fails at any stage, the raw transcript goes out instead.
package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"vetdesk-backend/internal/assistant"
	"vetdesk-backend/internal/chat"
	"vetdesk-backend/internal/types"
)

type DeliveryErrorKind string

const (
	DeliveryInvalidEmail       DeliveryErrorKind = "invalid_email"
	DeliveryNoConversation     DeliveryErrorKind = "no_conversation"
	DeliveryRateLimited        DeliveryErrorKind = "rate_limited"
	DeliveryBackendUnavailable DeliveryErrorKind = "backend_unavailable"
)

type DeliveryError struct {
	Kind    DeliveryErrorKind
	Message string
}

func (e *DeliveryError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("summary delivery: %s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("summary delivery: %s", e.Kind)
}

const (
	subject  = "Your VetDesk Summary"
	userName = "Veteran"

	summaryInstruction = "Please create a professional summary of this VA benefits " +
		"conversation between a veteran and VetDesk. Focus on the questions asked and " +
		"the guidance provided, and keep it concise.\n\nConversation:\n"
)

// Service is the summary/email gateway used by the conversation controller.
type Service struct {
	assistant *assistant.Client
	endpoint  string
	http      *http.Client
}

func NewService(assist *assistant.Client, endpoint string, timeout time.Duration) *Service {
	return &Service{
		assistant: assist,
		endpoint:  endpoint,
		http:      &http.Client{Timeout: timeout},
	}
}

// Transcript renders the turns role-labeled and chronological, skipping
// unfilled pending turns.
func Transcript(turns []chat.Turn) string {
	var b strings.Builder
	for _, t := range turns {
		if t.Pending || strings.TrimSpace(t.Text) == "" {
			continue
		}
		label := "VetDesk"
		if t.Role == chat.RoleUser {
			label = "Veteran"
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(t.Text)
	}
	return b.String()
}

// SendSummary implements chat.SummaryGateway. It returns how many more
// summaries this sender may request in the current window.
func (s *Service) SendSummary(ctx context.Context, email string, turns []chat.Turn) (int, error) {
	transcript := Transcript(turns)
	if transcript == "" {
		return 0, &DeliveryError{Kind: DeliveryNoConversation, Message: "nothing to summarize"}
	}

	body := s.buildBody(ctx, transcript)
	return s.deliver(ctx, types.SummaryRequest{
		Email:    email,
		Subject:  subject,
		Content:  body,
		UserName: userName,
	})
}

// buildBody asks the assistant for a summary; on failure the email body is
// the raw transcript alone.
func (s *Service) buildBody(ctx context.Context, transcript string) string {
	prompt := summaryInstruction + transcript
	generated, err := s.assistant.Complete(ctx, []types.ChatMessage{
		{Role: "user", Parts: []types.ChatPart{{Text: prompt}}},
	})
	if err != nil {
		log.Printf("[summary] summarization failed, falling back to transcript: %v", err)
		return "FULL CONVERSATION\n\n" + transcript
	}
	return "SUMMARY\n\n" + generated + "\n\nFULL CONVERSATION\n\n" + transcript
}

func (s *Service) deliver(ctx context.Context, payload types.SummaryRequest) (int, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return 0, &DeliveryError{Kind: DeliveryBackendUnavailable, Message: err.Error()}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(b))
	if err != nil {
		return 0, &DeliveryError{Kind: DeliveryBackendUnavailable, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return 0, &DeliveryError{Kind: DeliveryBackendUnavailable, Message: err.Error()}
	}
	defer resp.Body.Close()

	var out types.SummaryResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&out); decodeErr != nil && resp.StatusCode == http.StatusOK {
		return 0, &DeliveryError{Kind: DeliveryBackendUnavailable, Message: decodeErr.Error()}
	}

	switch {
	case resp.StatusCode == http.StatusOK && out.Success:
		return out.Remaining, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return 0, &DeliveryError{Kind: DeliveryRateLimited, Message: out.Error}
	case resp.StatusCode == http.StatusBadRequest:
		return 0, &DeliveryError{Kind: DeliveryInvalidEmail, Message: out.Error}
	default:
		return 0, &DeliveryError{Kind: DeliveryBackendUnavailable, Message: out.Error}
	}
}
