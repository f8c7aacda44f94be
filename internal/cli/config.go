package cli

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/nir0s/clu/pkg/backend"
	"github.com/nir0s/clu/pkg/backend/jsonfile"
	"github.com/nir0s/clu/pkg/backend/remotekv"
	"github.com/nir0s/clu/pkg/backend/sqlbackend"
)

// Environment variables consumed by the adapter.
const (
	EnvStashPath  = "GHOST_STASH_PATH"
	EnvPassphrase = "GHOST_PASSPHRASE"
	EnvBackend    = "GHOST_BACKEND_TYPE"
	EnvConsulAddr = "GHOST_CONSUL_ADDR"
	EnvConsulPref = "GHOST_CONSUL_PREFIX"
)

// Backend type identifiers as spelled on the wire / in the environment.
const (
	BackendTinyDB     = "tinydb"
	BackendSQLAlchemy = "sqlalchemy"
	BackendConsul     = "consul"
)

// passphraseFile is the sidecar file init_stash writes the effective
// passphrase to.
const passphraseFile = "passphrase.ghost"

// env resolves the adapter's process-environment configuration. There is
// no config file and no flag layer: every setting is a bare environment
// variable bound through viper, with defaults for the backend type and
// the Remote-KV address and prefix.
var env = newEnvConfig()

func newEnvConfig() *viper.Viper {
	v := viper.New()
	v.SetDefault("backend_type", BackendTinyDB)
	v.SetDefault("consul_addr", remotekv.DefaultAddr)
	v.SetDefault("consul_prefix", remotekv.DefaultPrefix)
	v.BindEnv("stash_path", EnvStashPath)
	v.BindEnv("passphrase", EnvPassphrase)
	v.BindEnv("backend_type", EnvBackend)
	v.BindEnv("consul_addr", EnvConsulAddr)
	v.BindEnv("consul_prefix", EnvConsulPref)
	return v
}

// resolveStashPath returns the GHOST_STASH_PATH value, falling back to
// the positional path argument when the environment variable is unset.
func resolveStashPath(positional string) (string, error) {
	if path := env.GetString("stash_path"); path != "" {
		return path, nil
	}
	if positional != "" {
		return positional, nil
	}
	return "", fmt.Errorf("stash path must be given as an argument or via %s", EnvStashPath)
}

func resolvePassphrase() string {
	return env.GetString("passphrase")
}

func resolveBackendType() string {
	return env.GetString("backend_type")
}

// newBackend constructs the storage backend named by backendType against
// path, per GHOST_BACKEND_TYPE's three accepted values.
func newBackend(backendType, path string) (backend.Backend, error) {
	switch backendType {
	case BackendTinyDB:
		return jsonfile.New(path), nil
	case BackendSQLAlchemy:
		return sqlbackend.New(path), nil
	case BackendConsul:
		cfg := remotekv.Config{
			Addr:   env.GetString("consul_addr"),
			Prefix: env.GetString("consul_prefix"),
		}
		return remotekv.New(cfg), nil
	default:
		return nil, fmt.Errorf("unknown backend type %q (valid: %s, %s, %s)", backendType, BackendTinyDB, BackendSQLAlchemy, BackendConsul)
	}
}
