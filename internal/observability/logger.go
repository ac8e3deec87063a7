package observability

import (
	logs "github.com/danmuck/smplog"
	"github.com/danmuck/wadispatch/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger configures the runtime logger once and tags it with app.
func InitLogger(app string) zerolog.Logger {
	logging.ConfigureRuntime()
	logger := logs.With().Str("app", app).Logger()
	logs.SetLogger(logger)
	log.Logger = logger
	return logger
}
