// Package logging provides structured logging with per-module log level configuration.
//
// Records go to stderr as text or JSON, and additionally to the systemd
// journal when journald is reachable. Stdout is left to the measurement
// output so `camspeed run | tee fps.log` captures only reports.
//
// Initialize once at startup, then ask for module loggers:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"session": "debug",
//		},
//	})
//
//	logger := logging.GetLogger("session").With("serial", serial)
//	logger.Info("Acquisition started")
//
// Module levels override the global level for that module only:
//
//	[logging]
//	level = "info"
//	format = "text"
//
//	[logging.modules]
//	camera = "debug"
//
// Journal entries are tagged with SyslogIdentifier:
//
//	journalctl -t camspeed -f
//	journalctl -t camspeed MODULE=session
package logging
