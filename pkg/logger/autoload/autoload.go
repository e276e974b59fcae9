// Package autoload initializes the global logger from LOG_* on import.
package autoload

import (
	configx "github.com/tanpawarit/Chative-Collections-Call/pkg/config"
	logx "github.com/tanpawarit/Chative-Collections-Call/pkg/logger"
)

func init() {
	logx.Init(*configx.MustNew[logx.Config]("LOG"))
}
