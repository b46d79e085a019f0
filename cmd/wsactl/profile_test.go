package main

import (
	"os"
	"path/filepath"
	"testing"
)

type fakeFlags struct {
	changed map[string]bool
	set     map[string]string
}

func (f *fakeFlags) Changed(name string) bool { return f.changed[name] }

func (f *fakeFlags) Set(name, value string) error {
	f.set[name] = value
	return nil
}

func TestProfileApply(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.yaml")
	body := `api_url: http://wsa.internal:8080
output: yaml
actor: alice
roles: [admin, template-admin]
yes: true
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	p, err := readProfile(path)
	if err != nil {
		t.Fatalf("readProfile: %v", err)
	}
	flags := &fakeFlags{changed: map[string]bool{"output": true}, set: map[string]string{}}
	if err := p.apply(flags); err != nil {
		t.Fatal(err)
	}

	want := map[string]string{
		"api-url": "http://wsa.internal:8080",
		"actor":   "alice",
		"roles":   "admin,template-admin",
		"yes":     "true",
	}
	for name, v := range want {
		if flags.set[name] != v {
			t.Errorf("flag %s = %q, want %q", name, flags.set[name], v)
		}
	}
	if _, ok := flags.set["output"]; ok {
		t.Error("profile overrode a flag given on the command line")
	}
	if _, ok := flags.set["no-color"]; ok {
		t.Error("unset profile field was applied")
	}
}

func TestLoadProfile_Missing(t *testing.T) {
	old := configPath
	t.Cleanup(func() { configPath = old })

	configPath = filepath.Join(t.TempDir(), "absent.yaml")
	flags := &fakeFlags{changed: map[string]bool{}, set: map[string]string{}}
	if err := loadProfile(flags); err == nil {
		t.Fatal("explicit missing profile should fail")
	}
}
