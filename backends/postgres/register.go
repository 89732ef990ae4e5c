package postgres

import "github.com/ajiwo/admitgate/backends"

func init() {
	backends.Register("postgres", func(config any) (backends.Backend, error) {
		cfg, ok := config.(Config)
		if !ok || cfg.ConnString == "" {
			return nil, backends.ErrInvalidConfig
		}
		return New(cfg)
	})
}
