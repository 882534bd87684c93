package log

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/edwardbickerton/handson-ml3/pkg/errors"
)

// InstallZerologWarnings routes library warnings (ConvergenceWarning and
// friends) through a zerolog logger writing to w. Warning types that
// implement zerolog.LogObjectMarshaler are emitted as structured objects.
func InstallZerologWarnings(w io.Writer) {
	logger := zerolog.New(w).With().Timestamp().Logger()

	errors.SetZerologWarnFunc(func(warning error) {
		event := logger.Warn()
		if marshaler, ok := warning.(zerolog.LogObjectMarshaler); ok {
			event.EmbedObject(marshaler).Msg("ml warning")
			return
		}
		event.Err(warning).Msg("ml warning")
	})
}
