package handlers

// CancelDialogs сбрасывает все активные диалоги чата.
// true — если хоть один был активен.
func CancelDialogs(chatID int64) bool {
	cancelled := false
	if _, ok := regStates.Get(chatID); ok {
		regStates.Clear(chatID)
		cancelled = true
	}
	if _, ok := grpStates.Get(chatID); ok {
		grpStates.Clear(chatID)
		cancelled = true
	}
	if _, ok := subjStates.Get(chatID); ok {
		subjStates.Clear(chatID)
		cancelled = true
	}
	if _, ok := schStates.Get(chatID); ok {
		schStates.Clear(chatID)
		cancelled = true
	}
	if _, ok := asgStates.Get(chatID); ok {
		asgStates.Clear(chatID)
		cancelled = true
	}
	if _, ok := attStates.Get(chatID); ok {
		attStates.Clear(chatID)
		cancelled = true
	}
	if _, ok := grdStates.Get(chatID); ok {
		grdStates.Clear(chatID)
		cancelled = true
	}
	return cancelled
}
