// Package config loads and validates HubLink's daemon configuration.
//
// Configuration comes from a YAML file with environment variable
// overrides (HUBLINK_* pattern). It covers how the daemon runs: storage
// path, loopback API binding, logging, and the optional MQTT/InfluxDB
// transports.
//
// What it deliberately does NOT cover: the hub server URL, access token,
// update interval, and device identity. Those are runtime state entered
// through the settings UI and persisted by the store package. Keeping
// them out of the config file means a config re-deploy can never clobber
// a user's connection.
//
// # Usage
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	log := logging.New(cfg.Logging, version)
package config
