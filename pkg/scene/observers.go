package scene

// ItemActivatedFunc receives the id of an item the user clicked or tapped.
type ItemActivatedFunc func(itemID int64)

// Triggers is the registration boundary between the engine and the host UI
// chrome. The host registers callbacks for toolbar-style actions; the engine
// broadcasts item activations to an explicit observer list rather than a
// global event bus.
type Triggers struct {
	recenter  []func()
	focus     []func(itemID int64)
	activated []ItemActivatedFunc
}

// RegisterRecenter adds a callback invoked when the host requests a recenter.
func (t *Triggers) RegisterRecenter(fn func()) {
	if fn != nil {
		t.recenter = append(t.recenter, fn)
	}
}

// RegisterFocusOnImage adds a callback invoked when the host requests a focus
// jump to a specific item.
func (t *Triggers) RegisterFocusOnImage(fn func(itemID int64)) {
	if fn != nil {
		t.focus = append(t.focus, fn)
	}
}

// RegisterItemActivated adds an observer for item click/tap activations.
func (t *Triggers) RegisterItemActivated(fn ItemActivatedFunc) {
	if fn != nil {
		t.activated = append(t.activated, fn)
	}
}

// Recenter invokes every registered recenter callback.
func (t *Triggers) Recenter() {
	for _, fn := range t.recenter {
		fn()
	}
}

// FocusOnImage invokes every registered focus callback with the item id.
func (t *Triggers) FocusOnImage(itemID int64) {
	for _, fn := range t.focus {
		fn(itemID)
	}
}

// ActivateItem broadcasts an item activation to all observers.
func (t *Triggers) ActivateItem(itemID int64) {
	for _, fn := range t.activated {
		fn(itemID)
	}
}
