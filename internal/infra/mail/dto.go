package mail

type LeadNotificationData struct {
	Name   string
	Email  string
	Phone  string
	Source string
	LeadID string
}

type EmailSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}
