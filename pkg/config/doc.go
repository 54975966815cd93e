// Package config loads application configuration from the environment and
// from YAML files.
//
// Environment parsing wraps `github.com/joho/godotenv` and
// `github.com/caarlos0/env/v11`:
//
//   - `.env` files are loaded with LoadEnv (the default `.env` is loaded
//     lazily on first Load when LoadEnv was never called).
//   - Load parses the environment into any struct annotated with `env` tags
//     and caches the result per type, so each configuration type is parsed
//     once per process.
//   - MustLoadEnv and MustLoad panic on failure for configuration the
//     process cannot start without.
//
// YAML files are decoded with `gopkg.in/yaml.v3` by LoadFile. Unknown keys
// are rejected and `${VAR}` references are expanded from the environment
// before decoding. File-based settings are not cached.
//
// # Usage
//
//	type Options struct {
//	    Mode       string `env:"TENANCY_MODE" envDefault:"multi-tenant"`
//	    ConfigFile string `env:"TENANCY_CONFIG_FILE"`
//	}
//
//	var opts Options
//	config.MustLoad(&opts)
//
//	var settings Settings
//	if opts.ConfigFile != "" {
//	    if err := config.LoadFile(opts.ConfigFile, &settings); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//
// # Error Handling
//
// Sentinel errors are joined with the underlying cause and can be matched
// with `errors.Is`:
//
//   - `ErrParsingConfig`     – env vars could not be parsed into the struct.
//   - `ErrConfigNotLoaded`   – the type was not cached after loading.
//   - `ErrNilPointer`        – nil pointer passed to a loader.
//   - `ErrLoadingEnvFile`    – a .env file could not be loaded.
//   - `ErrReadingConfigFile` – a YAML file could not be read.
//   - `ErrParsingConfigFile` – a YAML file did not decode into the struct.
//
// # Testing Helpers
//
// ResetCache clears the cache between tests; ForceReloadConfig re-parses a
// single type after the environment changed.
package config
