package notifysubmission

type Input struct {
	SubmissionID string `json:"submissionId"`
	PostingID    string `json:"postingId"`
}

type Output struct {
	NotificationID string   `json:"notificationId"`
	Status         string   `json:"notificationStatus"` // "sent", "failed", "disabled"
	Channels       []string `json:"notificationChannels"`
	SentAt         string   `json:"notificationSentAt"` // ISO 8601
}

const (
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
)

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

// recipient is the contact data of a stored application.
type recipient struct {
	Name         string
	Email        string
	Phone        string
	WhatsApp     string
	PostingTitle string
}
