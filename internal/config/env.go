package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// ServerEnv holds the runtime settings of the REST service, read from
// RP_PREPROC_* variables.
type ServerEnv struct {
	Listen  string `envconfig:"LISTEN" default:":8080"`
	Workers int64  `envconfig:"WORKERS" default:"4"`
	Debug   bool   `envconfig:"DEBUG"`
	TmpDir  string `envconfig:"TMP_DIR"`
}

// LoadServerEnv reads ServerEnv from the environment.
func LoadServerEnv() (ServerEnv, error) {
	var env ServerEnv
	if err := envconfig.Process("rp_preproc", &env); err != nil {
		return ServerEnv{}, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if env.Workers < 1 {
		return ServerEnv{}, fmt.Errorf("%w: RP_PREPROC_WORKERS must be positive, got %d", ErrConfig, env.Workers)
	}
	return env, nil
}
