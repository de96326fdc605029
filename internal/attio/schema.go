package attio

// AttributeType is the Attio attribute type an external field is provisioned with.
type AttributeType string

const (
	AttributeText            AttributeType = "text"
	AttributeNumber          AttributeType = "number"
	AttributeCheckbox        AttributeType = "checkbox"
	AttributeTimestamp       AttributeType = "timestamp"
	AttributeEmailAddress    AttributeType = "email-address"
	AttributePhoneNumber     AttributeType = "phone-number"
	AttributeRecordReference AttributeType = "record-reference"
	AttributePersonalName    AttributeType = "personal-name"
	AttributeActorReference  AttributeType = "actor-reference"
	AttributeSelect          AttributeType = "select"
)

// Valid reports whether t is one of the known attribute types.
func (t AttributeType) Valid() bool {
	switch t {
	case AttributeText, AttributeNumber, AttributeCheckbox, AttributeTimestamp, AttributeEmailAddress,
		AttributePhoneNumber, AttributeRecordReference, AttributePersonalName, AttributeActorReference, AttributeSelect:
		return true
	}
	return false
}

// Attribute declares one external field so receivers can provision it on the Attio side.
type Attribute struct {
	Slug          string        `json:"slug" yaml:"slug"`
	Title         string        `json:"title" yaml:"title"`
	Type          AttributeType `json:"type" yaml:"type" jsonschema:"enum=text,enum=number,enum=checkbox,enum=timestamp,enum=email-address,enum=phone-number,enum=record-reference,enum=personal-name,enum=actor-reference,enum=select"`
	IsRequired    bool          `json:"is_required" yaml:"is_required"`
	IsUnique      bool          `json:"is_unique" yaml:"is_unique"`
	IsMultiselect bool          `json:"is_multiselect" yaml:"is_multiselect"`
	// Relationship is the target object slug of a record-reference.
	Relationship string `json:"relationship,omitempty" yaml:"relationship,omitempty"`
}
