package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jessevdk/go-flags"
	"gopkg.in/yaml.v3"
)

// loadConfigFile applies the values from a YAML file to the options that
// were not given explicitly on the command line or through the environment.
// The file mirrors the option groups:
//
//	node:
//	  bind-addr: 10.0.0.1:7946
//	gossip:
//	  seeds: [10.0.0.1:7946, 10.0.0.2:7946]
//	  interval: 500
func loadConfigFile(p *flags.Parser, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return applyConfig(p, data)
}

func applyConfig(p *flags.Parser, data []byte) error {
	var doc map[string]yaml.Node

	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	for name, node := range doc {
		if node.Kind != yaml.MappingNode {
			if err := applyValue(p, name, &node); err != nil {
				return err
			}

			continue
		}

		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i].Value
			if err := applyValue(p, name+"."+key, node.Content[i+1]); err != nil {
				return err
			}
		}
	}

	return nil
}

func applyValue(p *flags.Parser, longName string, node *yaml.Node) error {
	opt := p.FindOptionByLongName(longName)
	if opt == nil {
		return fmt.Errorf("unknown config option %q", longName)
	}

	if !opt.IsSetDefault() {
		return nil // set on the command line
	}

	if _, ok := os.LookupEnv(opt.EnvKeyWithNamespace()); ok {
		return nil
	}

	var value string

	switch node.Kind {
	case yaml.ScalarNode:
		value = node.Value
	case yaml.SequenceNode:
		items := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			items = append(items, item.Value)
		}

		value = strings.Join(items, ",")
	default:
		return fmt.Errorf("config option %q must be a scalar or a list", longName)
	}

	if err := opt.Set(&value); err != nil {
		return fmt.Errorf("invalid value for %q: %w", longName, err)
	}

	return nil
}
