package redis

import "errors"

// ErrInvalidConfig is returned by the registry factory when the supplied
// config value is not a redis.Config or is missing a required field.
var ErrInvalidConfig = errors.New("redis backend requires a valid redis.Config")
