// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, logging, metrics export and debug introspection for NIC bring-up.
//
// Provides:
//   - YAML/TOML configuration with defaults, validation and hot reload
//   - logrus setup from the logging section
//   - go-metrics to prometheus bridging
//   - debug probes for pools, rings and the platform
package control
