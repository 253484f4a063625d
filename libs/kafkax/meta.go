package kafkax

import (
	"strings"

	"github.com/segmentio/kafka-go"
)

// Header keys shared by every producer and consumer in the platform.
const (
	HeaderEventID   = "event_id"
	HeaderEventType = "event_type"
	HeaderTenantID  = "tenant_id"
)

// EventMeta is the metadata carried on Kafka messages. TenantID is empty for
// platform-wide events; tenant-scoped consumers check it before touching
// tenant data.
type EventMeta struct {
	EventID   string
	EventType string
	TenantID  string
}

// ExtractEventMeta reads the canonical headers, falling back to the message
// key and topic for events from producers that do not set them.
func ExtractEventMeta(msg kafka.Message) EventMeta {
	meta := EventMeta{
		EventID:   HeaderValue(msg.Headers, HeaderEventID),
		EventType: HeaderValue(msg.Headers, HeaderEventType),
		TenantID:  HeaderValue(msg.Headers, HeaderTenantID),
	}
	if meta.EventID == "" {
		meta.EventID = string(msg.Key)
	}
	if meta.EventType == "" {
		meta.EventType = msg.Topic
	}
	return meta
}

func HeaderValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
