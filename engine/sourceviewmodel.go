package engine

import (
	"bmon/fetch"
	"bmon/interfaces"
	"fmt"
	"log"
)

// Must be JSON serializable
type SourceViewModel struct {
	commands map[string]interfaces.Command

	c       *ViewModel
	isClean bool

	Sources     []*SourceDriverViewModel `json:"sources"`
	Selected    string                   `json:"selected"`
	Addr        string                   `json:"addr"`
	IsConnected bool                     `json:"isConnected"`
}

type SourceDriverViewModel struct {
	namedDriver fetch.NamedDriver

	Name string `json:"name"`

	DisplayName        string `json:"displayName"`
	DisplayDescription string `json:"displayDescription"`
	DisplayOrder       int    `json:"displayOrder"`
}

type SourceConfiguration struct {
	Driver string `json:"driver"`
	Addr   string `json:"addr"`
}

func NewSourceViewModel(c *ViewModel) *SourceViewModel {
	v := &SourceViewModel{c: c}

	// supported commands:
	v.commands = map[string]interfaces.Command{
		"select":     &SelectSourceCommandExecutor{v},
		"disconnect": &DisconnectSourceCommandExecutor{v},
	}

	return v
}

func (v *SourceViewModel) Init() {
	nds := fetch.Drivers()
	v.Sources = make([]*SourceDriverViewModel, len(nds))
	for i, nd := range nds {
		dvm := &SourceDriverViewModel{
			namedDriver: nd,
			Name:        nd.Name,
		}
		v.Sources[i] = dvm

		if descriptor, ok := nd.Driver.(fetch.DriverDescriptor); ok {
			dvm.DisplayOrder = descriptor.DisplayOrder()
			dvm.DisplayName = descriptor.DisplayName()
			dvm.DisplayDescription = descriptor.DisplayDescription()
		} else {
			dvm.DisplayOrder = 0
			dvm.DisplayName = nd.Name
			dvm.DisplayDescription = nd.Name + " driver"
		}
	}
}

func (v *SourceViewModel) Update() {
	v.IsConnected = v.c.IsConnected()
	v.Selected = v.c.serviceName
	v.Addr = v.c.serviceAddr

	v.isClean = false
}

func (v *SourceViewModel) IsDirty() bool {
	return !v.isClean
}

func (v *SourceViewModel) ClearDirty() {
	v.isClean = true
}

func (v *SourceViewModel) MarkDirty() {
	v.isClean = false
	v.c.NotifyViewOf("source", v)
}

func (v *SourceViewModel) LoadConfiguration(config *SourceConfiguration) {
	if config == nil {
		log.Printf("sourceviewmodel: loadConfiguration: no config\n")
		return
	}
	if config.Driver == "" {
		return
	}

	// Init() has already been called
	dvm := v.FindNamedDriver(config.Driver)
	if dvm == nil {
		log.Printf("sourceviewmodel: loadConfiguration: driver '%s' not found\n", config.Driver)
		return
	}

	v.Select(config.Driver, config.Addr)
}

func (v *SourceViewModel) SaveConfiguration(config *SourceConfiguration) {
	if config == nil {
		log.Printf("sourceviewmodel: saveConfiguration: no config\n")
		return
	}

	config.Driver = v.c.serviceName
	config.Addr = v.c.serviceAddr
}

// Commands:
func (v *SourceViewModel) CommandFor(command string) (ce interfaces.Command, err error) {
	var ok bool
	ce, ok = v.commands[command]
	if !ok {
		err = errNoCommand(command)
	}
	return
}

type SelectSourceCommandExecutor struct{ v *SourceViewModel }
type SelectSourceCommandArgs struct {
	Driver string `json:"driver"`
	Addr   string `json:"addr"`
}

func (c *SelectSourceCommandExecutor) CreateArgs() interfaces.CommandArgs {
	return &SelectSourceCommandArgs{}
}
func (c *SelectSourceCommandExecutor) Execute(args interfaces.CommandArgs) error {
	ca, ok := args.(*SelectSourceCommandArgs)
	if !ok {
		return fmt.Errorf("command args not of expected type")
	}
	return c.v.Select(ca.Driver, ca.Addr)
}

func (v *SourceViewModel) Select(driverName, addr string) error {
	dvm := v.FindNamedDriver(driverName)
	if dvm == nil {
		return fmt.Errorf("balance source driver not found by name '%s'", driverName)
	}

	service, err := dvm.namedDriver.Driver.Open(addr)
	if err != nil {
		return fmt.Errorf("could not open balance source '%s': %w", driverName, err)
	}

	// hand the opened service to the dispatcher; it owns all further state:
	v.c.SourceSelected(dvm.Name, addr, service)

	return nil
}

func (v *SourceViewModel) FindNamedDriver(driverName string) *SourceDriverViewModel {
	for _, dvm := range v.Sources {
		if driverName == dvm.Name {
			return dvm
		}
	}
	return nil
}

type DisconnectSourceCommandExecutor struct{ v *SourceViewModel }

func (c *DisconnectSourceCommandExecutor) CreateArgs() interfaces.CommandArgs { return nil }
func (c *DisconnectSourceCommandExecutor) Execute(_ interfaces.CommandArgs) error {
	return c.v.Disconnect()
}

func (v *SourceViewModel) Disconnect() error {
	v.c.SourceSelected("", "", nil)

	return nil
}

func errNoCommand(command string) error {
	return fmt.Errorf("no command '%s' found", command)
}
