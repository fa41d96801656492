package chat

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"vetdesk-backend/internal/assistant"
	"vetdesk-backend/internal/intent"
)

// AssistantGateway turns the conversation so far into the next reply.
type AssistantGateway interface {
	Complete(ctx context.Context, turns []Turn) (string, error)
}

// SummaryGateway summarizes the conversation and emails it. It returns how
// many more summaries the caller may send this hour.
type SummaryGateway interface {
	SendSummary(ctx context.Context, email string, turns []Turn) (remaining int, err error)
}

// OutcomeKind tells the caller what a submission resulted in.
type OutcomeKind string

const (
	KindAnswer         OutcomeKind = "answer"
	KindInstantRate    OutcomeKind = "instant_rate"
	KindEmailPrompt    OutcomeKind = "email_prompt"
	KindEmailRejected  OutcomeKind = "email_rejected"
	KindEmailInvalid   OutcomeKind = "email_invalid"
	KindEmailCancelled OutcomeKind = "email_cancelled"
	KindSummarySent    OutcomeKind = "summary_sent"
	KindSummaryFailed  OutcomeKind = "summary_failed"
	KindBusy           OutcomeKind = "busy"
	KindLocked         OutcomeKind = "locked"
)

type Outcome struct {
	Kind          OutcomeKind
	Reply         string
	QuestionsLeft int
}

// Canonical user-facing strings. One rule set, stated once.
const (
	msgBusy = "Please wait for the current response to finish."

	msgAskEmail = "I'd be happy to email you a summary of our conversation. " +
		"What email address should I send it to? (Type \"cancel\" to go back.)"
	msgNeedQuestion = "Please ask a question first, then I can email you a summary of our conversation."
	msgInvalidEmail = "That doesn't look like a valid email address. " +
		"Please enter a valid email or type \"cancel\"."
	msgCancelled = "No problem, I won't send a summary. What else can I help you with?"
	msgSending   = "Generating your summary and sending email..."
	msgSendFail  = "Failed to send summary. Please try again later."
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether s looks like a deliverable address.
func ValidEmail(s string) bool {
	return len(s) <= 254 && emailPattern.MatchString(s)
}

// Controller owns the per-session conversation flow: validation, the
// normal/awaiting-email mode switch, instant rate answers, the question cap,
// and dispatch to the assistant and summary gateways.
type Controller struct {
	store        *Store
	rates        intent.RateTable
	assistant    AssistantGateway
	summary      SummaryGateway
	maxQuestions int
	maxMessage   int
}

func NewController(store *Store, rates intent.RateTable, gw AssistantGateway, sum SummaryGateway, maxQuestions, maxMessage int) *Controller {
	return &Controller{
		store:        store,
		rates:        rates,
		assistant:    gw,
		summary:      sum,
		maxQuestions: maxQuestions,
		maxMessage:   maxMessage,
	}
}

func (c *Controller) Store() *Store { return c.store }

// Submit runs one user submission through the state machine. Validation
// failures come back as ErrEmptyInput/ErrTooLong with no state change;
// everything else is an Outcome.
func (c *Controller) Submit(ctx context.Context, sessionID, text string) (Outcome, error) {
	trimmed, err := Validate(text, c.maxMessage)
	if err != nil {
		return Outcome{}, err
	}

	if c.store.Pending(sessionID) {
		return c.outcome(sessionID, KindBusy, msgBusy), nil
	}

	// Address and cancel detection take priority over intent classification
	// while an email prompt is outstanding.
	if c.store.Mode(sessionID) == ModeAwaitingEmail {
		return c.submitEmail(ctx, sessionID, trimmed), nil
	}

	it := intent.Classify(trimmed)
	if it.Kind == intent.KindEmailSummary {
		return c.startEmailDialog(sessionID), nil
	}

	if c.store.Questions(sessionID) >= c.maxQuestions {
		// Soft lock: nothing is appended, and every further question gets
		// the same rejection until the session is reset externally.
		return c.outcome(sessionID, KindLocked, c.lockedMessage()), nil
	}

	if it.Kind == intent.KindRateLookup {
		if reply, ok := c.rates[it.RateKey]; ok {
			c.store.Append(sessionID, Turn{Role: RoleUser, Text: trimmed})
			c.store.Append(sessionID, Turn{Role: RoleAssistant, Text: reply})
			return c.outcome(sessionID, KindInstantRate, reply), nil
		}
		log.Printf("[chat] no rate entry for key %q, forwarding to assistant", it.RateKey)
	}

	return c.submitGeneral(ctx, sessionID, trimmed), nil
}

// submitGeneral forwards the question to the remote assistant. The user turn
// and the reply slot are claimed in one atomic step, so a submission that
// loses the race is rejected whole. A gateway failure still fills the pending
// turn, with the apology text, so the turn count stays consistent with the
// question counter.
func (c *Controller) submitGeneral(ctx context.Context, sessionID, text string) Outcome {
	if !c.store.BeginExchange(sessionID, text) {
		return c.outcome(sessionID, KindBusy, msgBusy)
	}
	reply, err := c.assistant.Complete(ctx, c.store.Turns(sessionID))
	if err != nil {
		log.Printf("[chat] assistant gateway error: %v", err)
		reply = assistant.Apology(err)
	}
	c.store.FillPending(sessionID, reply)
	return c.outcome(sessionID, KindAnswer, reply)
}

func (c *Controller) startEmailDialog(sessionID string) Outcome {
	if c.store.Questions(sessionID) == 0 {
		c.store.Append(sessionID, Turn{Role: RoleAssistant, Text: msgNeedQuestion})
		return c.outcome(sessionID, KindEmailRejected, msgNeedQuestion)
	}
	c.store.Append(sessionID, Turn{Role: RoleAssistant, Text: msgAskEmail})
	c.store.SetMode(sessionID, ModeAwaitingEmail)
	return c.outcome(sessionID, KindEmailPrompt, msgAskEmail)
}

// submitEmail handles the awaiting-email sub-dialog. None of these inputs
// count as questions, so no user turn is ever appended here.
func (c *Controller) submitEmail(ctx context.Context, sessionID, text string) Outcome {
	if strings.EqualFold(text, "cancel") {
		c.store.SetMode(sessionID, ModeNormal)
		c.store.Append(sessionID, Turn{Role: RoleAssistant, Text: msgCancelled})
		return c.outcome(sessionID, KindEmailCancelled, msgCancelled)
	}
	if !ValidEmail(text) {
		c.store.Append(sessionID, Turn{Role: RoleAssistant, Text: msgInvalidEmail})
		return c.outcome(sessionID, KindEmailInvalid, msgInvalidEmail)
	}

	// Leave the email mode before the request; the state machine does not
	// wait on delivery.
	c.store.SetMode(sessionID, ModeNormal)
	c.store.Append(sessionID, Turn{Role: RoleAssistant, Text: msgSending})
	remaining, err := c.summary.SendSummary(ctx, text, c.store.Turns(sessionID))
	if err != nil {
		log.Printf("[chat] summary gateway error: %v", err)
		c.store.Append(sessionID, Turn{Role: RoleAssistant, Text: msgSendFail})
		return c.outcome(sessionID, KindSummaryFailed, msgSendFail)
	}
	sent := fmt.Sprintf("Summary sent! You can send %d more this hour.", remaining)
	c.store.Append(sessionID, Turn{Role: RoleAssistant, Text: sent})
	return c.outcome(sessionID, KindSummarySent, sent)
}

func (c *Controller) lockedMessage() string {
	return fmt.Sprintf("You've reached the limit of %d questions for this session. "+
		"Please reload the page to start a new conversation.", c.maxQuestions)
}

func (c *Controller) outcome(sessionID string, kind OutcomeKind, reply string) Outcome {
	left := c.maxQuestions - c.store.Questions(sessionID)
	if left < 0 {
		left = 0
	}
	return Outcome{Kind: kind, Reply: reply, QuestionsLeft: left}
}
