// Package autoload configures the global logger from the environment as an
// import side effect.
package autoload

import (
	configx "github.com/cloudflow/support-agent/pkg/config"
	logx "github.com/cloudflow/support-agent/pkg/logger"
)

func init() {
	logx.Init(*configx.MustNew[logx.Config]("LOG"))
}
