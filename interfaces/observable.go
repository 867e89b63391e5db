package interfaces

// Observer receives every value published by an Observable it is subscribed to.
type Observer interface {
	Notify(object interface{})
}

// ObserverFunc adapts a plain function into an Observer.
type ObserverFunc func(object interface{})

func (f ObserverFunc) Notify(object interface{}) { f(object) }

// Observable publishes values to subscribed observers. Subscribe delivers the
// current value to the new observer immediately and returns a handle that
// cancels the subscription; Cancel is idempotent.
type Observable interface {
	Subscribe(observer Observer) Subscription
	Unsubscribe(observer Observer)
}

// Subscription is the disposable handle returned by Observable.Subscribe.
type Subscription interface {
	Cancel()
}
