package queue

import (
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"basegraph.app/crmsync/internal/attio"
)

// Message is one delivery read from the stream.
type Message struct {
	ID       string
	Delivery attio.Delivery
	Raw      redis.XMessage
}

// messageValues never carries the endpoint secret; signed deliveries travel with their signature.
func messageValues(d attio.Delivery) map[string]any {
	values := map[string]any{
		"delivery_id": d.ID,
		"endpoint_id": d.EndpointID,
		"url":         d.URL,
		"event":       d.Event,
		"body":        string(d.Body),
	}
	if sig := d.Signed(); sig != "" {
		values["signature"] = sig
	}
	if d.TraceID != "" {
		values["trace_id"] = d.TraceID
	}
	return values
}

func ParseMessage(msg redis.XMessage) (Message, error) {
	endpointID, err := parseInt64(msg.Values, "endpoint_id")
	if err != nil {
		return Message{}, err
	}
	deliveryID, err := parseString(msg.Values, "delivery_id")
	if err != nil {
		return Message{}, err
	}
	url, err := parseString(msg.Values, "url")
	if err != nil {
		return Message{}, err
	}
	event, err := parseString(msg.Values, "event")
	if err != nil {
		return Message{}, err
	}
	body, err := parseString(msg.Values, "body")
	if err != nil {
		return Message{}, err
	}

	return Message{
		ID: msg.ID,
		Delivery: attio.Delivery{
			ID:         deliveryID,
			EndpointID: endpointID,
			URL:        url,
			Signature:  parseOptionalString(msg.Values, "signature"),
			Event:      event,
			Body:       []byte(body),
			TraceID:    parseOptionalString(msg.Values, "trace_id"),
		},
		Raw: msg,
	}, nil
}

func parseInt64(values map[string]any, key string) (int64, error) {
	raw, ok := values[key]
	if !ok {
		return 0, fmt.Errorf("missing %s", key)
	}
	num, err := strconv.ParseInt(fmt.Sprint(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return num, nil
}

func parseString(values map[string]any, key string) (string, error) {
	raw, ok := values[key]
	if !ok {
		return "", fmt.Errorf("missing %s", key)
	}
	return fmt.Sprint(raw), nil
}

func parseOptionalString(values map[string]any, key string) string {
	raw, ok := values[key]
	if !ok {
		return ""
	}
	return fmt.Sprint(raw)
}
