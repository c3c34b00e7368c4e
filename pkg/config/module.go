package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	J "cuelang.org/go/encoding/json"
	"cuelang.org/go/encoding/yaml"
)

//go:embed schema.cue
var schemaFile string

//go:embed default.yaml
var DEFAULT []byte

func buildYAML(ctx *cue.Context, name string, data []byte) (cue.Value, error) {
	file, err := yaml.Extract(name, data)
	if err != nil {
		return cue.Value{}, err
	}

	value := ctx.BuildFile(file)
	return value, value.Err()
}

func buildJSON(ctx *cue.Context, name string, data []byte) (cue.Value, error) {
	expr, err := J.Extract(name, data)
	if err != nil {
		return cue.Value{}, err
	}

	value := ctx.BuildExpr(expr)
	return value, value.Err()
}

func readFile(ctx *cue.Context, path string) (cue.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cue.Value{}, fmt.Errorf("does not exist")
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return buildJSON(ctx, path, data)
	case ".yaml", ".yml":
		return buildYAML(ctx, path, data)
	}

	return cue.Value{}, fmt.Errorf("not in a valid format")
}

// Process reads the provided configuration files in order and unifies them
// with the configuration schema. Without any files the embedded default
// configuration is used. Fields no file sets take the schema's defaults.
func Process(configPaths []string) (*Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaFile)
	if err := schema.Err(); err != nil {
		return nil, err
	}

	if len(configPaths) == 0 {
		value, err := buildYAML(ctx, "<default>", DEFAULT)
		if err != nil {
			return nil, err
		}

		schema = schema.Unify(value)
		if err := schema.Validate(); err != nil {
			return nil, fmt.Errorf("invalid default config file: %v", err)
		}
	}

	for _, path := range configPaths {
		value, err := readFile(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("could not process config file %s: %v", path, err)
		}

		schema = schema.Unify(value)
		if err := schema.Validate(); err != nil {
			return nil, fmt.Errorf("config file %s is not valid: %v", path, err)
		}
	}

	data, err := schema.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("could not aggregate config: %v", err)
	}

	config := Config{}
	err = json.Unmarshal(data, &config)
	return &config, err
}
