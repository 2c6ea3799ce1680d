package sync

import (
	"fmt"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/config"
)

type Config struct {
	Warehouse WarehouseSettings `yaml:"warehouse"`
	API       APISettings       `yaml:"api"`
	Logging   LoggingSettings   `yaml:"logging"`
	Snapshots SnapshotSettings  `yaml:"snapshots"`
}

type WarehouseSettings struct {
	ProjectID string `yaml:"projectID"`
	Dataset   string `yaml:"dataset"`
	Table     string `yaml:"table"`
	// CredentialsFile is a service account key file.
	// Empty means Application Default Credentials.
	CredentialsFile string `yaml:"credentialsFile"`
}

type APISettings struct {
	Keys struct {
		Smartlead string `yaml:"smartlead"`
	} `yaml:"keys"`
	// Ids contains API identifiers.
	Ids struct {
		Smartlead string `yaml:"smartlead"` // default campaign, not used when syncing all active campaigns
	} `yaml:"ids"`
	Endpoints struct {
		Smartlead string `yaml:"smartlead"`
	} `yaml:"endpoints"`
	// EmailLimit caps the rows processed per campaign, 0 means no limit.
	EmailLimit int `yaml:"emailLimit"`
	// WaitSeconds is the pause after each campaign.
	WaitSeconds int `yaml:"waitSeconds"`
}

type LoggingSettings struct {
	File      string `yaml:"file"`
	Overwrite bool   `yaml:"overwrite"`
	Level     string `yaml:"level"`
}

type SnapshotSettings struct {
	Dir string `yaml:"dir"`
}

// TableID returns the backtick quoted `project.dataset.table` identifier.
func (s WarehouseSettings) TableID() (string, error) {
	parts := []string{s.ProjectID, s.Dataset, s.Table}
	for _, p := range parts {
		if p == "" {
			return "", errors.Newf("incomplete table reference %q", strings.Join(parts, "."))
		}
		if strings.ContainsAny(p, "`\n") {
			return "", errors.Newf("invalid table reference part %q", p)
		}
	}
	return fmt.Sprintf("`%s`", strings.Join(parts, ".")), nil
}

// EnvLookup resolves ${VAR} references in config files.
type EnvLookup interface {
	LookupEnv(key string) (string, bool)
}

// OSEnvironment looks variables up in the process environment.
// A variable set to the empty string is treated as unset.
type OSEnvironment struct{}

func (OSEnvironment) LookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	return v, ok && v != ""
}

// MapEnvironment looks variables up in a fixed map.
type MapEnvironment map[string]string

func (m MapEnvironment) LookupEnv(key string) (string, bool) {
	v, ok := m[key]
	return v, ok && v != ""
}

type ConfigUnmarshaler interface {
	Unmarshal(env EnvLookup, sources ...ConfigFile) (Config, error)
}

type YAMLConfigUnmarshaler struct{}

func (u YAMLConfigUnmarshaler) Unmarshal(env EnvLookup, sources ...ConfigFile) (Config, error) {
	var result Config
	var options []config.YAMLOption
	for _, s := range sources {
		if s.Length > 0 {
			options = append(options, config.Source(s.Reader))
		}
	}
	options = append(options, config.Expand(env.LookupEnv))
	yaml, err := config.NewYAML(options...)
	if err != nil {
		return result, errors.WithHint(
			errors.Wrap(err, "failed to read yaml config"),
			"PROJECT_ID, DATASET, TABLE, SMARTLEAD_API_KEY, SMARTLEAD_CAMPAIGN_ID, EMAIL_LIMIT and WAIT_SECONDS must all be set")
	}
	readError := func(key string, cause error) error {
		return errors.Wrapf(cause, "failed to read '%s' from yaml config", key)
	}
	key := "warehouse"
	if err = yaml.Get(key).Populate(&result.Warehouse); err != nil {
		return result, readError(key, err)
	}
	key = "api"
	if err = yaml.Get(key).Populate(&result.API); err != nil {
		return result, readError(key, err)
	}
	key = "logging"
	if yaml.Get(key).HasValue() {
		if err = yaml.Get(key).Populate(&result.Logging); err != nil {
			return result, readError(key, err)
		}
	}
	key = "snapshots"
	if yaml.Get(key).HasValue() {
		if err = yaml.Get(key).Populate(&result.Snapshots); err != nil {
			return result, readError(key, err)
		}
	}

	return result, result.Validate()
}

// Validate checks the settings every run depends on.
func (c Config) Validate() error {
	required := map[string]string{
		"warehouse.projectID":     c.Warehouse.ProjectID,
		"warehouse.dataset":       c.Warehouse.Dataset,
		"warehouse.table":         c.Warehouse.Table,
		"api.keys.smartlead":      c.API.Keys.Smartlead,
		"api.endpoints.smartlead": c.API.Endpoints.Smartlead,
	}
	for _, key := range sortedKeys(required) {
		if required[key] == "" {
			return errors.Newf("missing required config value '%s'", key)
		}
	}
	if _, err := c.Warehouse.TableID(); err != nil {
		return err
	}
	if c.API.EmailLimit < 0 {
		return errors.Newf("api.emailLimit must not be negative, have %d", c.API.EmailLimit)
	}
	if c.API.WaitSeconds < 0 {
		return errors.Newf("api.waitSeconds must not be negative, have %d", c.API.WaitSeconds)
	}
	return nil
}
