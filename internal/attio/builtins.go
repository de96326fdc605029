package attio

// Features are the optional capabilities that decide which built-in adapters exist.
// They are read once when the registry is built, never per request.
type Features struct {
	Organizations bool
}

// Builtins returns the first-class adapters for the enabled features.
// Without organizations there is no organization adapter and membership changes sync nothing.
func Builtins(f Features) []Adapter {
	adapters := []Adapter{NewUserAdapter()}
	if f.Organizations {
		adapters = append(adapters, NewOrganizationAdapter())
	}
	return adapters
}
