package fetch

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Balance is a successfully fetched account balance.
type Balance struct {
	Value decimal.Decimal
	AsOf  time.Time
}

// Result is the completion of one Fetch invocation: either a Balance or an Err.
type Result struct {
	Balance Balance
	Err     error
}

// Service fetches the account balance from some source. Each call produces
// exactly one result; there is no built-in retry or timeout. Transport,
// status, and decode errors are all collapsed into the returned error.
type Service interface {
	Fetch(ctx context.Context) (Balance, error)

	// Close releases the underlying connection, if any.
	Close() error
}

// Driver opens a Service for a given source address. The meaning of addr is
// driver-specific (URL, host:port, or ignored).
type Driver interface {
	Open(addr string) (Service, error)
}

// DriverDescriptor allows a driver to describe itself to the view.
type DriverDescriptor interface {
	DisplayOrder() int
	DisplayName() string
	DisplayDescription() string
}

type NamedDriver struct {
	Driver Driver
	Name   string
}

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Driver)
)

// Register makes a balance source driver available by the provided name.
// If Register is called twice with the same name or if driver is nil,
// it panics.
func Register(name string, driver Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if driver == nil {
		panic("fetch: Register driver is nil")
	}
	if _, dup := drivers[name]; dup {
		panic("fetch: Register called twice for driver " + name)
	}
	drivers[name] = driver
}

// Drivers returns the registered drivers sorted by name.
func Drivers() []NamedDriver {
	driversMu.RLock()
	defer driversMu.RUnlock()
	list := make([]NamedDriver, 0, len(drivers))
	for name, driver := range drivers {
		list = append(list, NamedDriver{Name: name, Driver: driver})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// DriverByName finds a registered driver by name.
func DriverByName(name string) (NamedDriver, bool) {
	driversMu.RLock()
	defer driversMu.RUnlock()
	driver, ok := drivers[name]
	return NamedDriver{Name: name, Driver: driver}, ok
}

// Open opens a Service from the named driver.
func Open(driverName, addr string) (Service, error) {
	driversMu.RLock()
	driveri, ok := drivers[driverName]
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("fetch: unknown driver %q (forgotten import?)", driverName)
	}

	return driveri.Open(addr)
}
