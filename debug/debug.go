package debug

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

type debug struct {
	Locks    bool
	Listener bool
	Persist  bool
}

var d *debug

func init() {
	d = &debug{}
	d.Locks = boolEnv("ENTITREE_DEBUG_LOCKS")
	d.Listener = boolEnv("ENTITREE_DEBUG_LISTENER")
	d.Persist = boolEnv("ENTITREE_DEBUG_PERSIST")
}

func boolEnv(v string) bool {
	x := os.Getenv(v)
	if x == "" {
		return false
	}
	b, _ := strconv.ParseBool(x)
	return b
}

func Locks() bool {
	return d.Locks
}
func Listener() bool {
	return d.Listener
}
func Persist() bool {
	return d.Persist
}

// Logf writes to stderr, prefixed with the switch name.
func Logf(name, format string, args ...any) {
	fmt.Fprintf(os.Stderr, "[%s] "+format+"\n", append([]any{name}, args...)...)
}

func LogAny(v any) {
	d, err := json.Marshal(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", v)
		return
	}
	os.Stderr.Write(append(d, '\n'))
}
