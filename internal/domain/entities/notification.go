package entities

// Notification is one upstream change event delivered by the webhook
type Notification struct {
	SubscriptionID string `json:"subscriptionId,omitempty"`
	TenantID       string `json:"tenantId" validate:"required"`
	Resource       string `json:"resource" validate:"required"`
	ChangeType     string `json:"changeType,omitempty"`
	ClientState    string `json:"clientState,omitempty"`
}

// NotificationBatch is the envelope the platform posts to the webhook endpoint
type NotificationBatch struct {
	Value []Notification `json:"value" validate:"required,min=1,dive"`
}
