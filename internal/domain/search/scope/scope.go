package scope

// Scope selects which entity kinds a search covers.
type Scope string

// Search scope constants.
const (
	// All searches malls and stores together.
	All    Scope = "all"
	Malls  Scope = "malls"
	Stores Scope = "stores"
)

// IsValid checks if the scope is one of the supported values.
func (s Scope) IsValid() bool {
	return s == All || s == Malls || s == Stores
}

// IncludesMalls reports whether malls are searched.
func (s Scope) IncludesMalls() bool { return s == All || s == Malls }

// IncludesStores reports whether stores are searched.
func (s Scope) IncludesStores() bool { return s == All || s == Stores }
