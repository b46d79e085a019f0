package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// profile holds flag defaults read from a YAML file. Flags given on the
// command line win.
type profile struct {
	APIURL   string   `yaml:"api_url"`
	Output   string   `yaml:"output"`
	Actor    string   `yaml:"actor"`
	Roles    []string `yaml:"roles"`
	Yes      bool     `yaml:"yes"`
	NoColor  bool     `yaml:"no_color"`
	LogLevel string   `yaml:"log_level"`
}

type flagSet interface {
	Changed(name string) bool
	Set(name, value string) error
}

func defaultProfilePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "wsactl", "profile.yaml")
}

func readProfile(path string) (profile, error) {
	var p profile
	b, err := os.ReadFile(path)
	if err != nil {
		return p, err
	}
	if err := yaml.Unmarshal(b, &p); err != nil {
		return p, fmt.Errorf("parse %s: %w", path, err)
	}
	return p, nil
}

func loadProfile(flags flagSet) error {
	path := configPath
	explicit := path != ""
	if !explicit {
		path = defaultProfilePath()
	}
	if path == "" {
		return nil
	}
	p, err := readProfile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load profile: %w", err)
	}
	return p.apply(flags)
}

func (p profile) apply(flags flagSet) error {
	values := map[string]string{
		"api-url":   p.APIURL,
		"output":    p.Output,
		"actor":     p.Actor,
		"roles":     strings.Join(p.Roles, ","),
		"log-level": p.LogLevel,
	}
	if p.Yes {
		values["yes"] = strconv.FormatBool(p.Yes)
	}
	if p.NoColor {
		values["no-color"] = strconv.FormatBool(p.NoColor)
	}
	for name, value := range values {
		if value == "" || flags.Changed(name) {
			continue
		}
		if err := flags.Set(name, value); err != nil {
			return fmt.Errorf("profile %s: %w", name, err)
		}
	}
	return nil
}
