package utils

import (
	"fmt"
	"path/filepath"
)

// ProcTitle formats the title shown by ps for a running bridge, e.g.
// "chatpad-bridge: ready ttyUSB0 polls=1200".
func ProcTitle(name, state, port string, polls uint64) string {
	if port == "" {
		return fmt.Sprintf("%s: %s", name, state)
	}
	return fmt.Sprintf("%s: %s %s polls=%d", name, state, filepath.Base(port), polls)
}
