package attio

import "basegraph.app/crmsync/internal/store"

// RecordIDKey is the key ExtractRecord stores the external record id under.
const RecordIDKey = "record_id"

// ExtractValue flattens an envelope: nil when empty, the element's value when there is
// exactly one, and an ordered []any otherwise. Callers branch on that cardinality.
func ExtractValue(env ValueEnvelope) any {
	switch len(env) {
	case 0:
		return nil
	case 1:
		return extractElement(env[0])
	}
	out := make([]any, len(env))
	for i, el := range env {
		out[i] = extractElement(el)
	}
	return out
}

func extractElement(el map[string]any) any {
	switch el["attribute_type"] {
	case string(AttributeEmailAddress):
		return el["email_address"]
	case string(AttributePhoneNumber):
		if v, ok := el["phone_number"]; ok && v != nil && v != "" {
			return v
		}
		return el["original_phone_number"]
	case string(AttributeRecordReference):
		return el["target_record_id"]
	case string(AttributePersonalName):
		return el["full_name"]
	}
	if v, ok := el["value"]; ok {
		return v
	}
	if v, ok := el["referenced_actor_id"]; ok {
		return v
	}
	return nil
}

// ExtractRecord flattens every attribute of rec and adds the record id under RecordIDKey.
func ExtractRecord(rec *WebhookRecord) store.Record {
	out := make(store.Record, len(rec.Values)+1)
	for field, env := range rec.Values {
		out[field] = ExtractValue(env)
	}
	out[RecordIDKey] = rec.ID.RecordID
	return out
}

// ValueList normalizes an extracted value to a list: nil is empty and a scalar is one element.
func ValueList(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	}
	return []any{v}
}
