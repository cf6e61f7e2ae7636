package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Load reads a scenario with Read and validates the result.
func Load(path string) (Scenario, error) {
	s, err := Read(path)
	if err != nil {
		return Scenario{}, err
	}
	if err := s.Validate(); err != nil {
		return Scenario{}, err
	}
	return s, nil
}

// Read overlays a scenario file on Default and applies environment
// overrides without validating, so callers can apply further overrides
// first. The format follows the extension: .toml, .yaml or .yml. An empty
// path yields the default scenario.
func Read(path string) (Scenario, error) {
	s := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Scenario{}, fmt.Errorf("reading scenario file: %w", err)
		}
		if err := Decode(data, formatOf(path), &s); err != nil {
			return Scenario{}, fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	if err := ApplyEnv(&s, os.Getenv); err != nil {
		return Scenario{}, err
	}
	return s, nil
}

// Format identifies a scenario encoding.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

func formatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

// Decode overlays the keys present in data onto s. Unknown keys are errors.
func Decode(data []byte, format Format, s *Scenario) error {
	var file scenarioFile
	switch format {
	case FormatTOML:
		md, err := toml.Decode(string(data), &file)
		if err != nil {
			return err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
	default:
		return fmt.Errorf("unsupported scenario format %q", format)
	}
	file.apply(s)
	return nil
}

// Environment overrides applied after the scenario file.
const (
	EnvSeed          = "SPREADSIM_SEED"
	EnvTicks         = "SPREADSIM_TICKS"
	EnvFrameInterval = "SPREADSIM_FRAME_INTERVAL"
	EnvExports       = "SPREADSIM_EXPORTS"
)

// ApplyEnv overrides scenario fields from the environment.
func ApplyEnv(s *Scenario, getenv func(string) string) error {
	if v := getenv(EnvSeed); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSeed, err)
		}
		s.Seed = seed
	}
	for name, dst := range map[string]*int{EnvTicks: &s.Ticks, EnvFrameInterval: &s.FrameInterval} {
		v := getenv(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = n
	}
	if v := getenv(EnvExports); v != "" {
		s.Exports = nil
		for _, f := range strings.Split(v, ",") {
			if f = strings.TrimSpace(f); f != "" {
				s.Exports = append(s.Exports, f)
			}
		}
	}
	return nil
}
