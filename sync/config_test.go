package sync

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requiredEnvironment() MapEnvironment {
	return MapEnvironment{
		"PROJECT_ID":            "wholesaling-data-warehouse",
		"DATASET":               "outreach",
		"TABLE":                 "contacts",
		"SMARTLEAD_API_KEY":     "test-key",
		"SMARTLEAD_CAMPAIGN_ID": "1001",
		"EMAIL_LIMIT":           "500",
		"WAIT_SECONDS":          "3",
	}
}

func loadTestConfig(env MapEnvironment, opts ...ConfigOption) (*Config, error) {
	opts = append([]ConfigOption{ConfigWithEnvironment(env), ConfigWithDotEnvFile("")}, opts...)
	return LoadConfigFromEnvironment(opts...)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	config, err := loadTestConfig(requiredEnvironment())

	require.NoError(t, err)
	assert.Equal(t, WarehouseSettings{ProjectID: "wholesaling-data-warehouse", Dataset: "outreach", Table: "contacts"}, config.Warehouse)
	assert.Equal(t, "test-key", config.API.Keys.Smartlead)
	assert.Equal(t, "1001", config.API.Ids.Smartlead)
	assert.Equal(t, "https://server.smartlead.ai", config.API.Endpoints.Smartlead)
	assert.Equal(t, 500, config.API.EmailLimit)
	assert.Equal(t, 3, config.API.WaitSeconds)
	assert.Equal(t, LoggingSettings{File: "run.log", Overwrite: true, Level: "debug"}, config.Logging)
	assert.Equal(t, ".", config.Snapshots.Dir)
}

func TestLoadConfigFromEnvironment_OptionalVariables(t *testing.T) {
	env := requiredEnvironment()
	env["GOOGLE_APPLICATION_CREDENTIALS"] = "/secrets/key.json"
	env["SMARTLEAD_API_URL"] = "http://localhost:9999"
	env["LOG_OVERWRITE"] = "false"
	env["SNAPSHOT_DIR"] = "/tmp/snapshots"

	config, err := loadTestConfig(env)

	require.NoError(t, err)
	assert.Equal(t, "/secrets/key.json", config.Warehouse.CredentialsFile)
	assert.Equal(t, "http://localhost:9999", config.API.Endpoints.Smartlead)
	assert.False(t, config.Logging.Overwrite)
	assert.Equal(t, "/tmp/snapshots", config.Snapshots.Dir)
}

func TestLoadConfigFromEnvironment_MissingOrInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value *string
	}{
		{name: "missing email limit", key: "EMAIL_LIMIT"},
		{name: "missing wait seconds", key: "WAIT_SECONDS"},
		{name: "missing api key", key: "SMARTLEAD_API_KEY"},
		{name: "missing campaign id", key: "SMARTLEAD_CAMPAIGN_ID"},
		{name: "missing table", key: "TABLE"},
		{name: "empty email limit", key: "EMAIL_LIMIT", value: ptr("")},
		{name: "non numeric email limit", key: "EMAIL_LIMIT", value: ptr("lots")},
		{name: "non numeric wait seconds", key: "WAIT_SECONDS", value: ptr("soon")},
		{name: "negative wait seconds", key: "WAIT_SECONDS", value: ptr("-1")},
		{name: "backtick in dataset", key: "DATASET", value: ptr("out`reach")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := requiredEnvironment()
			if tt.value == nil {
				delete(env, tt.key)
			} else {
				env[tt.key] = *tt.value
			}

			config, err := loadTestConfig(env)

			assert.Error(t, err)
			assert.Nil(t, config)
		})
	}
}

func ptr(s string) *string {
	return &s
}

func TestLoadConfigFromEnvironment_OverrideFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "override.yaml")
	require.NoError(t, os.WriteFile(name, []byte("api:\n  waitSeconds: 0\nsnapshots:\n  dir: ${PROJECT_ID}\n"), 0o644))

	config, err := loadTestConfig(requiredEnvironment(), ConfigWithFile(name))

	require.NoError(t, err)
	assert.Equal(t, 0, config.API.WaitSeconds)
	assert.Equal(t, 500, config.API.EmailLimit)
	assert.Equal(t, "wholesaling-data-warehouse", config.Snapshots.Dir)
}

func TestLoadConfigFromEnvironment_MissingOverrideFile(t *testing.T) {
	_, err := loadTestConfig(requiredEnvironment(), ConfigWithFile(filepath.Join(t.TempDir(), "nope.yaml")))
	assert.Error(t, err)
}

func TestLoadConfigFromEnvironment_EmbeddedFiles(t *testing.T) {
	files := EmbeddedConfigFiles{Root: "config", Files: fstest.MapFS{
		"config/defaults.yaml": {Data: []byte(
			"warehouse:\n  projectID: p\n  dataset: d\n  table: t\n" +
				"api:\n  keys:\n    smartlead: k\n  endpoints:\n    smartlead: http://example.test\n  emailLimit: 10\n")},
	}}

	config, err := loadTestConfig(MapEnvironment{}, ConfigWithEmbeddedFiles(files))

	require.NoError(t, err)
	assert.Equal(t, 10, config.API.EmailLimit)
	assert.Equal(t, LoggingSettings{}, config.Logging)
}

func TestLoadConfigFromEnvironment_DotEnvFile(t *testing.T) {
	for key := range requiredEnvironment() {
		if _, ok := os.LookupEnv(key); ok {
			t.Skipf("%s is already set in the environment", key)
		}
	}
	name := filepath.Join(t.TempDir(), ".env")
	dotEnv := "PROJECT_ID=from-dotenv\nDATASET=outreach\nTABLE=contacts\nSMARTLEAD_API_KEY=k\n" +
		"SMARTLEAD_CAMPAIGN_ID=1\nEMAIL_LIMIT=5\nWAIT_SECONDS=0\n"
	require.NoError(t, os.WriteFile(name, []byte(dotEnv), 0o644))
	t.Cleanup(func() {
		for key := range requiredEnvironment() {
			_ = os.Unsetenv(key)
		}
	})

	config, err := LoadConfigFromEnvironment(ConfigWithDotEnvFile(name))

	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", config.Warehouse.ProjectID)
	assert.Equal(t, 5, config.API.EmailLimit)
}

func TestLoadConfigFromEnvironment_MissingDotEnvFileIsIgnored(t *testing.T) {
	_, err := loadTestConfig(requiredEnvironment(), ConfigWithDotEnvFile(filepath.Join(t.TempDir(), ".env")))
	assert.NoError(t, err)
}

func TestMapEnvironment_EmptyIsUnset(t *testing.T) {
	env := MapEnvironment{"A": "", "B": "b"}
	_, ok := env.LookupEnv("A")
	assert.False(t, ok)
	v, ok := env.LookupEnv("B")
	assert.True(t, ok)
	assert.Equal(t, "b", v)
}

func TestTableID(t *testing.T) {
	id, err := WarehouseSettings{ProjectID: "p", Dataset: "d", Table: "t"}.TableID()
	require.NoError(t, err)
	assert.Equal(t, "`p.d.t`", id)

	_, err = WarehouseSettings{ProjectID: "p", Table: "t"}.TableID()
	assert.Error(t, err)

	_, err = WarehouseSettings{ProjectID: "p", Dataset: "d", Table: "t`; DROP TABLE x; --"}.TableID()
	assert.Error(t, err)
}
