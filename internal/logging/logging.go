// Package logging builds the zap logger used across ezconn.
package logging

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DefaultFile is where debug logs go when no path is given
const DefaultFile = "debug.log"

// New returns a development logger writing to path when debug is set,
// and a no-op logger otherwise.
func New(debug bool, path string) (*zap.Logger, error) {
	if !debug {
		return zap.NewNop(), nil
	}
	if path == "" {
		path = DefaultFile
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}

	logger, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrapf(err, "could not open debug log %s", path)
	}
	return logger, nil
}
