package attio

import (
	"github.com/invopop/jsonschema"

	"basegraph.app/crmsync/internal/store"
)

// Payload is the JSON envelope POSTed to every integration endpoint.
type Payload struct {
	Event     string         `json:"event" jsonschema:"example=user.created"`
	Data      store.Record   `json:"data"`
	Timestamp string         `json:"timestamp" jsonschema:"format=date-time"`
	Adapter   PayloadAdapter `json:"adapter"`
}

type PayloadAdapter struct {
	LocalModel     string      `json:"localModel"`
	ExternalObject string      `json:"externalObject"`
	ExternalSchema []Attribute `json:"externalSchema"`
}

func payloadAdapter(meta AdapterMeta) PayloadAdapter {
	schema := meta.Schema
	if schema == nil {
		schema = []Attribute{}
	}
	return PayloadAdapter{
		LocalModel:     meta.LocalModel,
		ExternalObject: meta.ExternalObject,
		ExternalSchema: schema,
	}
}

// EnvelopeSchema returns the JSON Schema of Payload for receivers that validate deliveries.
func EnvelopeSchema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		DoNotReference: true,
	}
	s := r.Reflect(&Payload{})
	s.Title = "crmsync outbound event"
	return s
}
