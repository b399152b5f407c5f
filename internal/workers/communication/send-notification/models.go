package sendnotification

// Message is one rendered email for one recipient.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// AdminResult reports an admin fan-out. Skipped holds malformed addresses, Failed the
// addresses whose delivery failed.
type AdminResult struct {
	SentCount int      `json:"sentCount"`
	Skipped   []string `json:"skipped,omitempty"`
	Failed    []string `json:"failed,omitempty"`
}

// Notified reports whether at least one admin received the message.
func (r AdminResult) Notified() bool {
	return r.SentCount > 0
}
