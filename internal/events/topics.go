package events

// Topic constants for domain events.
const (
	TopicOrderCreated       = "order.created"
	TopicOrderStatusChanged = "order.status_changed"
)

// DefaultTopics returns the topics the worker delivers notifications for.
func DefaultTopics() []string {
	return []string{TopicOrderCreated, TopicOrderStatusChanged}
}
