package kilobot

import (
	"fmt"
	"sort"
	"strings"

	"github.com/san-kum/kilosim/internal/dynamo"
)

var behaviors = map[string]func() Behavior{
	"switching": func() Behavior { return NewSwitchingPhototaxis() },
	"threshold": func() Behavior { return NewThresholdPhototaxis() },
	"fixed":     func() Behavior { return &Fixed{} },
}

// NewBehavior builds a fresh behavior by name and applies params through
// its Configurable interface. Every kilobot needs its own instance.
func NewBehavior(name string, params map[string]float64) (Behavior, error) {
	ctor, ok := behaviors[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: behavior %q (available: %s)", dynamo.ErrUnknownVariant, name, strings.Join(BehaviorNames(), ", "))
	}
	b := ctor()

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	c := b.(dynamo.Configurable)
	for _, k := range keys {
		if err := c.SetParam(k, params[k]); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func BehaviorNames() []string {
	names := make([]string, 0, len(behaviors))
	for n := range behaviors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
