package substrate

import (
	"fmt"
	"sort"
	"strings"

	"wagerd/escrow"

	"gorm.io/gorm"
)

// Backend is a ledger substrate holding match records and account balances.
type Backend interface {
	escrow.Store
	escrow.Accounts
}

// Deps carries the shared resources a driver may need.
type Deps struct {
	DB *gorm.DB
}

type Factory func(deps Deps) (Backend, error)

var drivers = map[string]Factory{}

// Register makes a driver available under name. Drivers call it from init.
func Register(name string, factory Factory) {
	drivers[strings.ToLower(name)] = factory
}

func Open(name string, deps Deps) (Backend, error) {
	factory, ok := drivers[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown substrate %q (registered: %s)", name, strings.Join(Names(), ", "))
	}
	return factory(deps)
}

func Names() []string {
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
