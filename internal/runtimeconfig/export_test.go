package runtimeconfig

// LoadEnvFrom exposes loadEnv with an explicit environment for tests.
func (cfg *Config) LoadEnvFrom(environment map[string]string) error {
	return cfg.loadEnv(environment)
}
