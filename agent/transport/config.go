package transport

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Chative-Collections-Call/agent/contract"
)

type Config struct {
	Host            string        `envconfig:"HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"PORT" required:"true"`
	Path            string        `envconfig:"WS_PATH" default:"/ws"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"10s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port must be in 1..65535, got %d", contractx.ErrValidation, c.Port)
	}
	if !strings.HasPrefix(c.Path, "/") {
		return fmt.Errorf("%w: websocket path must start with '/', got %q", contractx.ErrValidation, c.Path)
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("%w: write timeout must be > 0", contractx.ErrValidation)
	}
	return nil
}

func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
