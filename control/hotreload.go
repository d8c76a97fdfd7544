// control/hotreload.go
// Re-reads the configuration file on demand or on a signal and installs it.

package control

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
)

// ReloadFrom loads path and installs the result. The active configuration is kept on error.
func (cs *ConfigStore) ReloadFrom(path string) error {
	cfg, err := LoadConfig(path)
	if err != nil {
		return err
	}
	return cs.SetConfig(*cfg)
}

// ReloadOnSignal reloads path each time sigs fires, until ctx is done.
func (cs *ConfigStore) ReloadOnSignal(ctx context.Context, l logrus.FieldLogger, path string, sigs <-chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigs:
			l.WithField("signal", sig).Info("Caught signal, reloading config")
			if err := cs.ReloadFrom(path); err != nil {
				l.WithError(err).WithField("path", path).Error("Failed to reload config, keeping the active one")
			}
		}
	}
}
