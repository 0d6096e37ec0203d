// Package config loads the mission control settings.
//
// Settings come from three layers, lowest priority first:
//
//   - built-in defaults
//   - a TOML or YAML file, chosen by extension
//   - MISSIONCONTROL_* environment variables
//
// The layers are deep-merged and decoded into a typed Config:
//
//	cfg, err := config.Load("missioncontrol.toml")
//	if err != nil {
//		return err
//	}
//	fmt.Println(cfg.Simulation.Interval)
//
// Use Manager with the watcher package to reload the file while running.
package config
