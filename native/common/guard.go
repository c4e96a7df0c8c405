package common

import "errors"

// Module identifiers accepted by the pause switchboard.
const (
	ModuleMarket = "market"
	ModuleToken  = "token"
)

var ErrModulePaused = errors.New("module paused")

// PauseView reports whether a module has been administratively halted.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects the operation when the named module is paused. A nil view or
// empty module name is treated as unpaused.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}
