package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Configuration describes the signals canmon decodes off the bus.
type Configuration struct {
	Interface string       `yaml:"interface"`
	PollMs    int          `yaml:"poll_ms"`
	StaleMs   int          `yaml:"stale_ms"`
	Signals   []signalConf `yaml:"signals"`
}

type signalConf struct {
	ArbID  uint32 `yaml:"id"`
	Label  string `yaml:"label"`
	Type   string `yaml:"type"`
	Offset uint8  `yaml:"offset"`
}

// loadConfig loads the configuration file at path.
func loadConfig(path string) (Configuration, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return Configuration{}, fmt.Errorf("read configuration file %s: %v", path, err)
	}

	var conf Configuration

	if err = yaml.Unmarshal(contents, &conf); err != nil {
		return Configuration{}, fmt.Errorf("unmarshal configuration contents: %v", err)
	}

	for _, sig := range conf.Signals {
		switch sig.Type {
		case "int8", "int16", "int32", "fxp16", "fxp32":
		default:
			return Configuration{}, fmt.Errorf("signal %s: unknown type %q", sig.Label, sig.Type)
		}
	}

	return conf, nil
}
