package redis

import "github.com/ajiwo/admitgate/backends"

func init() {
	backends.Register("redis", func(config any) (backends.Backend, error) {
		cfg, ok := config.(Config)
		if !ok || cfg.Addr == "" && cfg.RedisURL == "" {
			return nil, ErrInvalidConfig
		}
		return New(cfg)
	})
}
