package sync

import (
	"bytes"
	"embed"
	"io"
	"io/fs"
	"os"
	"path"
)

//go:embed config/*.yaml
var embeddedConfig embed.FS

type ConfigFile struct {
	Name   string
	Reader io.Reader
	Length int
}

type EmbeddedConfigFiles struct {
	Root  string
	Files EmbeddedFS
}

type EmbeddedFS interface {
	Open(name string) (fs.File, error)
	ReadDir(name string) ([]fs.DirEntry, error)
	ReadFile(name string) ([]byte, error)
}

// DefaultEmbeddedConfigFiles returns the config files compiled into the binary.
func DefaultEmbeddedConfigFiles() EmbeddedConfigFiles {
	return EmbeddedConfigFiles{Root: "config", Files: embeddedConfig}
}

func (ec EmbeddedConfigFiles) MustFindRootConfigFile(filename string) (ConfigFile, error) {
	var result ConfigFile
	name := path.Join(ec.Root, filename)
	b, err := ec.Files.ReadFile(name)
	if err == nil {
		result.Name = name
		result.Reader = bytes.NewReader(b)
		result.Length = len(b)
	}
	return result, err
}

func (ec EmbeddedConfigFiles) MustFindDefaultsConfigFile() (ConfigFile, error) {
	return ec.MustFindRootConfigFile("defaults.yaml")
}

// ReadConfigFile loads an override config file from disk.
func ReadConfigFile(name string) (ConfigFile, error) {
	var result ConfigFile
	b, err := os.ReadFile(name)
	if err == nil {
		result.Name = name
		result.Reader = bytes.NewReader(b)
		result.Length = len(b)
	}
	return result, err
}
