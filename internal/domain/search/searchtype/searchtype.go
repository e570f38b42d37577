package searchtype

// Type is the domain a search runs against.
type Type string

// Search type constants.
const (
	Users  Type = "users"
	Events Type = "events"
	Videos Type = "videos"
	// All fans out across every concrete type and merges the results.
	All Type = "all"
)

// IsValid checks if the type is one of the supported values.
func (t Type) IsValid() bool {
	return t == Users || t == Events || t == Videos || t == All
}

// Concrete returns the concrete types a search of this type resolves to.
func (t Type) Concrete() []Type {
	if t == All {
		return []Type{Users, Events, Videos}
	}
	return []Type{t}
}
