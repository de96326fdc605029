package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// The reconciler and dispatcher enrich the context once per event/delivery so every log line
// below them carries the record being synced without passing it around.
type LogFields struct {
	LocalModel       *string // e.g. "user", "organization"
	ExternalObject   *string // Attio object slug, e.g. "users", "workspaces"
	ExternalRecordID *string // Attio record id
	EventType        *string // inbound "record.updated" or outbound "user.created"
	EndpointID       *int64  // Integration endpoint receiving a delivery
	DeliveryID       *string // Per-endpoint delivery id
	Component        string  // OTel semantic convention style, e.g. "crmsync.attio.reconciler"
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, next LogFields) LogFields {
	result := existing

	if next.LocalModel != nil {
		result.LocalModel = next.LocalModel
	}
	if next.ExternalObject != nil {
		result.ExternalObject = next.ExternalObject
	}
	if next.ExternalRecordID != nil {
		result.ExternalRecordID = next.ExternalRecordID
	}
	if next.EventType != nil {
		result.EventType = next.EventType
	}
	if next.EndpointID != nil {
		result.EndpointID = next.EndpointID
	}
	if next.DeliveryID != nil {
		result.DeliveryID = next.DeliveryID
	}
	if next.Component != "" {
		result.Component = next.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{EventType: logger.Ptr(t)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen characters, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
