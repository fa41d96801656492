package types

// MessageRequest is the widget-facing submit payload.
type MessageRequest struct {
	Message string `json:"message"`
}

// MessageResponse reports the outcome of one submission.
type MessageResponse struct {
	SessionID     string `json:"sessionId"`
	Reply         string `json:"reply"`
	Kind          string `json:"kind"`
	QuestionsLeft int    `json:"questionsLeft"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// Chat proxy wire format (Gemini-style candidates envelope).

type ChatPart struct {
	Text string `json:"text"`
}

type ChatMessage struct {
	Role  string     `json:"role"`
	Parts []ChatPart `json:"parts"`
}

type ChatProxyRequest struct {
	ChatHistory  []ChatMessage `json:"chatHistory"`
	SystemPrompt string        `json:"systemPrompt,omitempty"`
}

type ChatCandidate struct {
	Content struct {
		Parts []ChatPart `json:"parts"`
	} `json:"content"`
}

type ChatProxyResponse struct {
	Candidates []ChatCandidate `json:"candidates"`
}

// Summary delivery endpoint payloads.

type SummaryRequest struct {
	Email    string `json:"email"`
	Subject  string `json:"subject"`
	Content  string `json:"content"`
	UserName string `json:"userName,omitempty"`
}

type SummaryResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	MessageID string `json:"messageId,omitempty"`
	Remaining int    `json:"remaining"`
	Error     string `json:"error,omitempty"`
}

// News feed payloads.

type NewsArticle struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	PublishedAt string `json:"publishedAt,omitempty"`
	Source      string `json:"source,omitempty"`
}

type NewsResponse struct {
	Articles []NewsArticle `json:"articles"`
}
