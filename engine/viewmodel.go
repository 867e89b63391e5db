package engine

import (
	"bmon/fetch"
	"bmon/interfaces"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const msgChanSize = 8

// ViewModel is the root view model and the event dispatcher: all state
// mutation funnels through its message queue and happens on the single
// consumer goroutine started by Init.
type ViewModel struct {
	// state store owned by the dispatcher:
	store *Store

	// dispatcher queue:
	msgs chan message

	// active balance source, touched only on the dispatcher goroutine:
	service     fetch.Service
	serviceName string
	serviceAddr string

	latency *fetch.LatencyTracker

	isLoadingConfig bool

	// dependency that notifies view of updated view model:
	viewNotifier interfaces.ViewNotifier

	// View Models:
	viewModels     map[string]interface{}
	viewModelsLock sync.Mutex

	balanceViewModel *BalanceViewModel
	sourceViewModel  *SourceViewModel
}

func NewViewModel() *ViewModel {
	vm := &ViewModel{
		store:   NewStore(ViewState{}),
		msgs:    make(chan message, msgChanSize),
		latency: &fetch.LatencyTracker{},
	}

	// instantiate each child view model:
	vm.balanceViewModel = NewBalanceViewModel(vm)
	vm.sourceViewModel = NewSourceViewModel(vm)

	// assign unique names to each view for easy binding with html/js UI:
	vm.viewModels = map[string]interface{}{
		"status":  "No balance source selected",
		"balance": vm.balanceViewModel,
		"source":  vm.sourceViewModel,
	}

	return vm
}

// Store exposes the state container for subscription; writes stay private.
func (vm *ViewModel) Store() *Store {
	return vm.store
}

func (vm *ViewModel) Latency() *fetch.LatencyTracker {
	return vm.latency
}

// initializes all view models and starts the dispatcher goroutine:
func (vm *ViewModel) Init() {
	for _, model := range vm.viewModels {
		if i, ok := model.(interfaces.Initializable); ok {
			i.Init()
		}
	}

	go vm.handleMessages()

	vm.LoadConfiguration()
}

// Dispatch enqueues an event for the dispatcher goroutine. Producers never
// block for processing; delivery order is the order of send.
func (vm *ViewModel) Dispatch(ev Event) {
	vm.msgs <- eventMessage{event: ev}
}

// SourceSelected hands a freshly opened balance source to the dispatcher.
// A nil service disconnects the current source.
func (vm *ViewModel) SourceSelected(name, addr string, service fetch.Service) {
	vm.msgs <- sourceMessage{name: name, addr: addr, service: service}
}

func (vm *ViewModel) handleMessages() {
	for m := range vm.msgs {
		vm.handle(m)
	}
}

func (vm *ViewModel) handle(m message) {
	switch m := m.(type) {
	case eventMessage:
		vm.handleEvent(m.event)
	case fetchDoneMessage:
		vm.handleFetchDone(m.result)
	case sourceMessage:
		vm.handleSourceSelected(m)
	}
}

func (vm *ViewModel) handleEvent(ev Event) {
	switch ev {
	case EventViewAppeared, EventRefreshRequested:
		vm.startFetch()
	case EventForegrounded:
		vm.setRedacted(false)
	case EventBackgrounded:
		vm.setRedacted(true)
	}
}

// startFetch transitions Idle -> Fetching and invokes the active source.
// A refresh while a fetch is already in flight is accepted and ignored.
func (vm *ViewModel) startFetch() {
	state := vm.store.Current()
	if state.IsFetching {
		log.Printf("viewmodel: fetch already in flight; ignoring\n")
		return
	}

	svc := vm.service
	if svc == nil {
		log.Printf("viewmodel: no balance source selected\n")
		vm.setStatus("No balance source selected")
		vm.UpdateAndNotifyView()
		return
	}

	state.IsFetching = true
	state.FetchFailed = false
	vm.store.publish(state)

	// the only asynchronous operation; its completion re-enters the
	// dispatcher through the message queue:
	go func() {
		started := time.Now()
		balance, err := svc.Fetch(context.Background())
		vm.latency.Record(time.Since(started))
		vm.msgs <- fetchDoneMessage{result: fetch.Result{Balance: balance, Err: err}}
	}()
}

func (vm *ViewModel) handleFetchDone(res fetch.Result) {
	state := vm.store.Current()
	state.IsFetching = false

	if res.Err != nil {
		log.Printf("viewmodel: fetch: %v\n", res.Err)
		state.FetchFailed = true
		vm.setStatus("Could not fetch the balance")
	} else {
		value := res.Balance.Value
		asOf := res.Balance.AsOf
		state.Value = &value
		state.UpdatedAt = &asOf
		vm.setStatus("Balance updated")
	}

	vm.store.publish(state)
	vm.UpdateAndNotifyView()
}

func (vm *ViewModel) setRedacted(redacted bool) {
	state := vm.store.Current()
	if state.IsRedacted == redacted {
		return
	}
	state.IsRedacted = redacted
	vm.store.publish(state)
}

func (vm *ViewModel) handleSourceSelected(m sourceMessage) {
	defer func() {
		vm.UpdateAndNotifyView()
		vm.SaveConfiguration()
	}()

	if vm.service != nil {
		log.Printf("viewmodel: sourceselected: close previous source '%s'\n", vm.serviceName)
		if err := vm.service.Close(); err != nil {
			log.Printf("viewmodel: sourceselected: close: %v\n", err)
		}
	}

	vm.service = m.service
	vm.serviceName = m.name
	vm.serviceAddr = m.addr

	if m.service == nil {
		vm.setStatus("Disconnected from balance source")
		return
	}

	log.Printf("viewmodel: sourceselected: driver='%s', addr='%s'\n", m.name, m.addr)
	vm.setStatus(fmt.Sprintf("Connected to %s balance source", m.name))
}

func (vm *ViewModel) IsConnected() bool {
	return vm.service != nil
}

func (vm *ViewModel) IsConnectedToDriver(driver fetch.NamedDriver) bool {
	if vm.service == nil {
		return false
	}

	return vm.serviceName == driver.Name
}

func (vm *ViewModel) GetViewModel(view string) (interface{}, bool) {
	defer vm.viewModelsLock.Unlock()
	vm.viewModelsLock.Lock()

	viewModel, ok := vm.viewModels[view]
	return viewModel, ok
}

func (vm *ViewModel) NotifyView(view string, model interface{}) {
	defer vm.viewModelsLock.Unlock()
	vm.viewModelsLock.Lock()

	// allow model to customize the instance to be stored as a view model:
	viewModel := model
	if viewModeler, ok := model.(interfaces.ViewModeler); ok {
		viewModel = viewModeler.ViewModel()
	}

	// cache the viewModel for new websocket connections so they get the updates on first connect:
	vm.viewModels[view] = viewModel

	// notify downstream if applicable:
	vn := vm.viewNotifier
	if vn == nil {
		return
	}
	vn.NotifyView(view, viewModel)
}

func (vm *ViewModel) NotifyViewTo(viewNotifier interfaces.ViewNotifier) {
	if viewNotifier == nil {
		return
	}

	// send all view models to this notifier regardless of dirty state:
	vm.viewModelsLock.Lock()
	views := make(map[string]interface{}, len(vm.viewModels))
	for view, model := range vm.viewModels {
		views[view] = model
	}
	vm.viewModelsLock.Unlock()

	for view, model := range views {
		viewNotifier.NotifyView(view, model)
	}
}

// updates all view models and notifies view:
func (vm *ViewModel) UpdateAndNotifyView() {
	vm.viewModelsLock.Lock()
	views := make(map[string]interface{}, len(vm.viewModels))
	for view, model := range vm.viewModels {
		views[view] = model
	}
	vm.viewModelsLock.Unlock()

	for view, model := range views {
		if i, ok := model.(interfaces.Updateable); ok {
			i.Update()
		}
		vm.NotifyViewOf(view, model)
	}
}

func (vm *ViewModel) NotifyViewOf(view string, model interface{}) {
	dirtyable, isDirtyable := model.(interfaces.Dirtyable)
	if isDirtyable && !dirtyable.IsDirty() {
		return
	}

	vm.NotifyView(view, model)

	if isDirtyable {
		dirtyable.ClearDirty()
	}
}

// Implements ViewCommandHandler
func (vm *ViewModel) CommandFor(view, command string) (ce interfaces.Command, err error) {
	svm, ok := vm.GetViewModel(view)
	if !ok {
		return nil, fmt.Errorf("view=%s,cmd=%s: no view model found to handle command", view, command)
	}

	commandHandler, ok := svm.(interfaces.ViewModelCommandHandler)
	if !ok {
		return nil, fmt.Errorf("view=%s,cmd=%s: view model does not handle commands", view, command)
	}

	ce, err = commandHandler.CommandFor(command)
	if err != nil {
		err = fmt.Errorf("view=%s,cmd=%s: error from command handler: %w", view, command, err)
	}
	return
}

func (vm *ViewModel) setStatus(msg string) {
	log.Printf("notify: %s\n", msg)
	vm.viewModelsLock.Lock()
	vm.viewModels["status"] = msg
	vm.viewModelsLock.Unlock()

	vn := vm.viewNotifier
	if vn != nil {
		vn.NotifyView("status", msg)
	}
}

func (vm *ViewModel) ProvideViewNotifier(viewNotifier interfaces.ViewNotifier) {
	vm.viewNotifier = viewNotifier
}

func (vm *ViewModel) LoadConfiguration() bool {
	if vm.isLoadingConfig {
		return false
	}

	defer func() {
		vm.isLoadingConfig = false
		log.Printf("viewmodel: loadConfiguration: loaded\n")
	}()
	log.Printf("viewmodel: loadConfiguration: loading...\n")
	vm.isLoadingConfig = true

	// load saved config:
	dir, err := interfaces.ConfigDir()
	if err != nil {
		log.Printf("viewmodel: loadConfiguration: could not find configuration directory: %v\n", err)
		return false
	}
	path := filepath.Join(dir, "config.json")

	b, err := os.ReadFile(path)
	if err != nil {
		log.Printf("viewmodel: loadConfiguration: could not read configuration file: %v\n", err)
		return false
	}

	var config struct {
		Source *SourceConfiguration `json:"source"`
	}
	err = json.Unmarshal(b, &config)
	if err != nil {
		log.Printf("viewmodel: loadConfiguration: could not json unmarshal configuration file: %v\n", err)
		return false
	}

	vm.sourceViewModel.LoadConfiguration(config.Source)

	return true
}

func (vm *ViewModel) SaveConfiguration() bool {
	if vm.isLoadingConfig {
		return false
	}

	log.Printf("viewmodel: saveConfiguration: saving configuration...\n")

	var config struct {
		Source *SourceConfiguration `json:"source"`
	}

	config.Source = new(SourceConfiguration)
	vm.sourceViewModel.SaveConfiguration(config.Source)

	b, err := json.MarshalIndent(&config, "", "  ")
	if err != nil {
		log.Printf("viewmodel: saveConfiguration: could not json marshal configuration file: %v\n", err)
		return false
	}

	dir, err := interfaces.ConfigDir()
	if err != nil {
		log.Printf("viewmodel: saveConfiguration: could not find configuration directory: %v\n", err)
		return false
	}

	err = os.MkdirAll(dir, 0755)
	if err != nil {
		log.Printf("viewmodel: saveConfiguration: could not make directories along the path '%s': %v\n", dir, err)
	}

	path := filepath.Join(dir, "config.json")

	err = os.WriteFile(path, b, 0644)
	if err != nil {
		log.Printf("viewmodel: saveConfiguration: could not write configuration file '%s': %v\n", path, err)
		return false
	}

	log.Printf("viewmodel: saveConfiguration: saved configuration to file '%s'\n", path)

	return true
}
