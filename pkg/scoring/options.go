package scoring

import (
	"os"
	"strconv"

	"mlregistry.io/assetx/pkg/detect"
)

// Environment overrides for the daemon options, honored as defaults so that
// command line flags still win.
const (
	EnvListen       = "ASSETXD_LISTEN"
	EnvTask         = "ASSETXD_TASK"
	EnvMaxBodyBytes = "ASSETXD_MAX_BODY_BYTES"
)

type Options struct {
	Listen       string
	TLS          *TLSOptions
	Task         string
	MaxBodyBytes int64
}

type TLSOptions struct {
	CertFile string
	KeyFile  string
}

func DefaultOptions() *Options {
	return &Options{
		Listen:       ":8080",
		TLS:          &TLSOptions{},
		Task:         string(detect.TaskObjectDetection),
		MaxBodyBytes: MaxBytesRead,
	}
}

// ApplyEnv fills options from the environment. Unset or unparsable
// variables leave the current value in place.
func (o *Options) ApplyEnv() {
	if v := os.Getenv(EnvListen); v != "" {
		o.Listen = v
	}
	if v := os.Getenv(EnvTask); v != "" {
		o.Task = v
	}
	if v := os.Getenv(EnvMaxBodyBytes); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			o.MaxBodyBytes = n
		}
	}
}
