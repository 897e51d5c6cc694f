package auth

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Permissions maps a role name to the permissions it grants, e.g.
// DOCTOR -> [patient:view patient:create patient:update].
type Permissions map[string][]string

type permissionsFile struct {
	Roles map[string][]string `yaml:"roles"`
}

// LoadPermissions reads the role table from a permissions.yml file.
func LoadPermissions(path string) (Permissions, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read permissions %s: %w", path, err)
	}
	var pf permissionsFile
	if err := yaml.Unmarshal(raw, &pf); err != nil {
		return nil, fmt.Errorf("parse permissions %s: %w", path, err)
	}
	return Permissions(pf.Roles), nil
}

// Allows reports whether any of roles grants permission. A role is looked up
// as given and then upper-cased, so realm roles like "doctor" match DOCTOR.
func (p Permissions) Allows(roles []string, permission string) bool {
	for _, role := range roles {
		granted, ok := p[role]
		if !ok {
			granted = p[strings.ToUpper(role)]
		}
		for _, g := range granted {
			if g == permission {
				return true
			}
		}
	}
	return false
}
