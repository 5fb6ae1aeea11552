package worker

// HandlerRegistrar subscribes event handlers and returns a function that
// removes them.
type HandlerRegistrar interface {
	RegisterHandlers() (unregister func())
}

// StartNotificationWorker registers the activity handlers. The returned
// function removes them again.
func StartNotificationWorker(registrar HandlerRegistrar) func() {
	if registrar == nil {
		return func() {}
	}
	return registrar.RegisterHandlers()
}
