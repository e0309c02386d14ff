package main

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"one-rpc/config"
	"one-rpc/onetest"
)

type seedUser struct {
	Name     string   `yaml:"name"`
	Password string   `yaml:"password"`
	Tokens   []string `yaml:"tokens"`
}

type seedTemplate struct {
	Name   string `yaml:"name"`
	CPU    string `yaml:"cpu"`
	Memory string `yaml:"memory"`
}

// seed is the fixture format:
//
//	users:
//	  - {name: alice, password: s3cret}
//	templates:
//	  - {name: ubuntu-22.04, cpu: "1", memory: "2048"}
type seed struct {
	Users     []seedUser     `yaml:"users"`
	Templates []seedTemplate `yaml:"templates"`
}

// defaultSeed creates the configured user, or oneadmin/opennebula.
func defaultSeed(cfg config.Config) seed {
	user, secret := cfg.User, cfg.Secret
	if user == "" {
		user, secret = "oneadmin", "opennebula"
	}
	return seed{
		Users: []seedUser{{Name: user, Password: secret}},
		Templates: []seedTemplate{
			{Name: "ubuntu-22.04", CPU: "1", Memory: "2048"},
			{Name: "debian-12", CPU: "2", Memory: "4096"},
		},
	}
}

func loadSeed(path string) (seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return seed{}, fmt.Errorf("read seed: %w", err)
	}
	var s seed
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return seed{}, fmt.Errorf("parse seed %s: %w", path, err)
	}
	for i, u := range s.Users {
		if u.Name == "" {
			return seed{}, fmt.Errorf("seed user %d: empty name", i)
		}
	}
	return s, nil
}

func (s seed) apply(cp *onetest.ControlPlane) {
	for _, u := range s.Users {
		id := cp.AddUser(u.Name, u.Password)
		for _, tok := range u.Tokens {
			cp.AddLoginToken(id, tok)
		}
	}
	for _, t := range s.Templates {
		cp.AddTemplate(t.Name, t.CPU, t.Memory)
	}
}
