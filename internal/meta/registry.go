package meta

import "fmt"

// Registry holds every entity descriptor, keyed by logical name. It is
// populated once by InitRegistry and read-only afterwards.
var Registry = map[string]*EntityDescriptor{}

// InitRegistry loads, links and validates all entity descriptors from dir.
func InitRegistry(dir string) error {
	if err := LoadEntitiesFromDir(dir); err != nil {
		return fmt.Errorf("load error: %w", err)
	}
	if err := LinkRegistry(); err != nil {
		return fmt.Errorf("link error: %w", err)
	}
	return nil
}

// ResetRegistry clears the registry. Test hook only.
func ResetRegistry() {
	Registry = map[string]*EntityDescriptor{}
}
