package ntfy

type Notification struct {
	Topic   string `json:"topic"`
	Title   string `json:"title"`
	Message string `json:"message"`

	Priority int  `json:"priority,omitempty"`
	Markdown bool `json:"markdown,omitempty"`

	Tags []string `json:"tags,omitempty"`
}

type NotificationOption func(*Notification)

func WithPriority(priority int) NotificationOption {
	return func(n *Notification) {
		n.Priority = priority
	}
}

func WithMarkdown(enabled bool) NotificationOption {
	return func(n *Notification) {
		n.Markdown = enabled
	}
}

func WithTags(tags ...string) NotificationOption {
	return func(n *Notification) {
		n.Tags = append(n.Tags, tags...)
	}
}

func NewNotification(topic, title, message string, opts ...NotificationOption) Notification {
	notification := Notification{
		Topic:   topic,
		Title:   title,
		Message: message,
	}

	for _, opt := range opts {
		opt(&notification)
	}

	return notification
}
