package memory

import (
	"time"

	"github.com/ajiwo/admitgate/backends"
)

func init() {
	backends.Register("memory", func(config any) (backends.Backend, error) {
		if interval, ok := config.(time.Duration); ok {
			return NewWithCleanup(interval), nil
		}
		return New(), nil
	})
}
