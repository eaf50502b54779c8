package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the config file Resolve falls back to in the
// working directory.
const DefaultFileName = "cronx.yaml"

// EnvConfigPath names the environment variable Resolve checks first when
// no explicit path is given; if the file it names does not exist, the
// search continues with the remaining candidates.
const EnvConfigPath = "CRONX_CONFIG"

// Resolve returns the configuration file to load. An explicit path
// wins. Otherwise the search order is $CRONX_CONFIG, then
// $XDG_CONFIG_HOME/cronx/config.yaml, then ~/.config/cronx/config.yaml,
// then ./cronx.yaml, taking the first candidate that exists.
func Resolve(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	var candidates []string
	if env := os.Getenv(EnvConfigPath); env != "" {
		candidates = append(candidates, env)
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		candidates = append(candidates, filepath.Join(xdg, "cronx", "config.yaml"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "cronx", "config.yaml"))
	}
	candidates = append(candidates, DefaultFileName)

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("config: no configuration file found (searched %s)", strings.Join(candidates, ", "))
}

// Load reads the YAML configuration at path, substitutes ${VAR} and
// ${VAR:-default} references from the environment (so secrets like
// AuthHeader need not be checked into the job list), and decodes it
// strictly: an unknown key is an error, so a typoed field name fails at
// load time instead of silently disabling a job. Callers still need
// ToJobs to get validated job.Job values.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	expanded, err := substituteEnv(string(raw))
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &cfg, nil
}

// substituteEnv walks src and replaces ${VAR} and ${VAR:-default}
// references. References that are unset and carry no default are
// collected and reported together. Text that is not a well-formed
// reference is copied through untouched, so a job message may contain a
// literal dollar sign.
func substituteEnv(src string) (string, error) {
	var out strings.Builder
	out.Grow(len(src))

	var missing []string
	for {
		i := strings.Index(src, "${")
		if i < 0 {
			out.WriteString(src)
			break
		}
		out.WriteString(src[:i])
		rest := src[i:]

		end := strings.IndexByte(rest, '}')
		if end < 0 {
			out.WriteString(rest)
			break
		}

		ref := rest[2:end]
		src = rest[end+1:]

		name, fallback, hasFallback := strings.Cut(ref, ":-")
		if !validEnvName(name) {
			out.WriteString(rest[:end+1])
			continue
		}

		if value, ok := os.LookupEnv(name); ok {
			out.WriteString(value)
		} else if hasFallback {
			out.WriteString(fallback)
		} else {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		return "", fmt.Errorf("unset variables without defaults: %s", strings.Join(missing, ", "))
	}
	return out.String(), nil
}

func validEnvName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
