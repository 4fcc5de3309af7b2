package domain

// CompanySettings holds per-tenant options.
type CompanySettings struct {
	MattermostWebhookURL string `json:"mattermost_webhook_url,omitempty"`
	SlackWebhookURL      string `json:"slack_webhook_url,omitempty"`
}

// Company is a tenant. Every other record is scoped to one.
type Company struct {
	AuditRecord
	Name     string          `json:"name"`
	Settings CompanySettings `json:"settings"`
}
