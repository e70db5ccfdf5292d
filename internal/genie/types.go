// Package genie provides a client for the Databricks Genie Conversation API.
package genie

// MessageStatus is the lifecycle status of a Genie message.
type MessageStatus string

const (
	StatusCompleted MessageStatus = "COMPLETED"
	StatusFailed    MessageStatus = "FAILED"
	StatusCancelled MessageStatus = "CANCELLED"
)

// Terminal reports whether the status ends the poll loop. Every other status
// (SUBMITTED, EXECUTING_QUERY, ...) is treated as pending.
func (s MessageStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Rating is a feedback rating on a Genie answer.
type Rating string

const (
	RatingPositive Rating = "POSITIVE"
	RatingNegative Rating = "NEGATIVE"
)

// TextAttachment is a natural-language fragment of an answer.
type TextAttachment struct {
	Content string `json:"content"`
}

// QueryAttachment carries the SQL Genie generated for a question.
type QueryAttachment struct {
	Query       string `json:"query"`
	Description string `json:"description,omitempty"`
}

// Attachment is one fragment of a completed message. Exactly one of Text and
// Query is set for known kinds; both nil means an unrecognized kind, which is
// skipped during parsing.
type Attachment struct {
	AttachmentID string           `json:"attachment_id,omitempty"`
	Text         *TextAttachment  `json:"text,omitempty"`
	Query        *QueryAttachment `json:"query,omitempty"`
}

// MessageError is the backend-reported failure detail on a terminal message.
type MessageError struct {
	Type    string `json:"type,omitempty"`
	Message string `json:"message,omitempty"`
}

// Message is one question/answer exchange within a conversation.
type Message struct {
	ID             string        `json:"id"`
	ConversationID string        `json:"conversation_id,omitempty"`
	Status         MessageStatus `json:"status"`
	Content        string        `json:"content,omitempty"`
	Attachments    []Attachment  `json:"attachments,omitempty"`
	Error          *MessageError `json:"error,omitempty"`
}

// startConversationResponse is the shape of the start-conversation endpoint;
// the message nests under "message" there, unlike the create-message endpoint
// which returns the message directly.
type startConversationResponse struct {
	Conversation struct {
		ID string `json:"id"`
	} `json:"conversation"`
	Message Message `json:"message"`
}

// ResultColumn is one column of a query result schema.
type ResultColumn struct {
	Name string `json:"name"`
}

// ResultSchema is the ordered column list of a query result.
type ResultSchema struct {
	Columns []ResultColumn `json:"columns"`
}

// ResultManifest describes the shape of a query result.
type ResultManifest struct {
	Schema ResultSchema `json:"schema"`
}

// ResultData holds the returned rows. RowCount is the backend-reported total
// and may exceed len(DataArray).
type ResultData struct {
	DataArray [][]any `json:"data_array"`
	RowCount  int64   `json:"row_count"`
}

// QueryResult is the tabular payload for one query attachment.
type QueryResult struct {
	Manifest ResultManifest `json:"manifest"`
	Result   ResultData     `json:"result"`
}

// Columns returns the ordered column names, or nil if there is no schema.
func (qr *QueryResult) Columns() []string {
	cols := qr.Manifest.Schema.Columns
	if len(cols) == 0 {
		return nil
	}
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

// Answer is the normalized result of one ask. Success=false implies Error is
// set and Text/SQL/QueryResult are absent; Success=true implies Error is empty.
type Answer struct {
	Success        bool
	ConversationID string
	MessageID      string
	Text           string
	SQL            *string
	QueryResult    *QueryResult
	Error          string
}
