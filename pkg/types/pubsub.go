package types

// PubSubMessage is the payload of a Pub/Sub push delivered as a CloudEvent.
type PubSubMessage struct {
	Message struct {
		Data       []byte            `json:"data"`
		Attributes map[string]string `json:"attributes,omitempty"`
		MessageID  string            `json:"messageId,omitempty"`
	} `json:"message"`
	Subscription string `json:"subscription,omitempty"`
}
