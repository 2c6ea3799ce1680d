package sync

import (
	"io/fs"

	"github.com/cockroachdb/errors"
	"github.com/subosito/gotenv"
)

// DefaultDotEnvFile is loaded before the environment is read, when present.
const DefaultDotEnvFile = ".env"

// configOptions holds optional configuration for LoadConfigFromEnvironment.
type configOptions struct {
	env          EnvLookup
	dotEnvFile   string
	overrideFile string
	embedded     EmbeddedConfigFiles
}

// ConfigOption is a functional option for configuring LoadConfigFromEnvironment.
type ConfigOption func(*configOptions)

// ConfigWithEnvironment replaces the process environment as the source of ${VAR} values.
func ConfigWithEnvironment(env EnvLookup) ConfigOption {
	return func(o *configOptions) {
		o.env = env
	}
}

// ConfigWithDotEnvFile sets the dotenv file to load, an empty name disables it.
func ConfigWithDotEnvFile(name string) ConfigOption {
	return func(o *configOptions) {
		o.dotEnvFile = name
	}
}

// ConfigWithFile layers a YAML file over the embedded defaults.
func ConfigWithFile(name string) ConfigOption {
	return func(o *configOptions) {
		o.overrideFile = name
	}
}

// ConfigWithEmbeddedFiles replaces the embedded defaults, used by tests.
func ConfigWithEmbeddedFiles(files EmbeddedConfigFiles) ConfigOption {
	return func(o *configOptions) {
		o.embedded = files
	}
}

// LoadConfigFromEnvironment builds the run configuration once at process start.
// Variables already present in the environment win over the dotenv file.
func LoadConfigFromEnvironment(opts ...ConfigOption) (*Config, error) {
	options := configOptions{
		env:        OSEnvironment{},
		dotEnvFile: DefaultDotEnvFile,
		embedded:   DefaultEmbeddedConfigFiles(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	if options.dotEnvFile != "" {
		if err := gotenv.Load(options.dotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrapf(err, "failed to load %s", options.dotEnvFile)
		}
	}

	defaults, err := options.embedded.MustFindDefaultsConfigFile()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read defaults config file")
	}
	sources := []ConfigFile{defaults}

	if options.overrideFile != "" {
		override, err := ReadConfigFile(options.overrideFile)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", options.overrideFile)
		}
		sources = append(sources, override)
	}

	result, err := YAMLConfigUnmarshaler{}.Unmarshal(options.env, sources...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}
	return &result, nil
}
