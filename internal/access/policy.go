package access

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/studio-ops/studio-erp/internal/domain"
)

// Wildcard grants a role every path.
const Wildcard = "*"

// ErrPolicyMisconfiguration marks a table that does not cover every role.
var ErrPolicyMisconfiguration = errors.New("policy misconfiguration")

// Policy is the set of path prefixes a role may reach.
type Policy struct {
	all      bool
	prefixes []string
}

// AllPaths returns the wildcard policy.
func AllPaths() Policy {
	return Policy{all: true}
}

// Prefixes builds a policy from path prefixes. A Wildcard entry makes it AllPaths.
func Prefixes(prefixes ...string) Policy {
	out := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		if p == Wildcard {
			return AllPaths()
		}
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return Policy{prefixes: out}
}

// IsWildcard reports whether the policy grants every path.
func (p Policy) IsWildcard() bool { return p.all }

// List returns the prefixes, or [Wildcard].
func (p Policy) List() []string {
	if p.all {
		return []string{Wildcard}
	}
	return append([]string(nil), p.prefixes...)
}

// Allows reports whether path is covered. Matching is case-sensitive and segment aligned:
// "/reports" covers "/reports" and "/reports/daily" but not "/reportsX".
func (p Policy) Allows(path string) bool {
	if p.all {
		return true
	}
	for _, prefix := range p.prefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// Table maps each role to its policy. It is immutable once built.
type Table struct {
	entries map[domain.StaffRole]Policy
}

// NewTable builds a table. Roles left out are denied everything.
func NewTable(entries map[domain.StaffRole]Policy) *Table {
	cp := make(map[domain.StaffRole]Policy, len(entries))
	for role, pol := range entries {
		cp[role] = Policy{all: pol.all, prefixes: append([]string(nil), pol.prefixes...)}
	}
	return &Table{entries: cp}
}

// NewExhaustiveTable builds a table that must cover every role in domain.AllRoles.
func NewExhaustiveTable(entries map[domain.StaffRole]Policy) (*Table, error) {
	t := NewTable(entries)
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// DefaultTable is the studio's built-in policy.
func DefaultTable() *Table {
	t, err := NewExhaustiveTable(map[domain.StaffRole]Policy{
		domain.StaffRoleAdmin:     AllPaths(),
		domain.StaffRoleMarketer:  Prefixes("/dashboard", "/surveys", "/customers", "/reports"),
		domain.StaffRoleSales:     Prefixes("/dashboard", "/orders", "/customers"),
		domain.StaffRoleArtist:    Prefixes("/dashboard", "/schedule"),
		domain.StaffRoleFrontDesk: Prefixes("/dashboard", "/orders", "/schedule", "/customers"),
	})
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup returns the role's policy. Unknown roles get an empty policy.
func (t *Table) Lookup(role domain.StaffRole) Policy {
	if t == nil {
		return Policy{}
	}
	return t.entries[role]
}

// Has reports whether the table has an entry for role.
func (t *Table) Has(role domain.StaffRole) bool {
	if t == nil {
		return false
	}
	_, ok := t.entries[role]
	return ok
}

// Validate reports roles of the closed set that have no entry.
func (t *Table) Validate() error {
	var missing []string
	for _, role := range domain.AllRoles() {
		if !t.Has(role) {
			missing = append(missing, string(role))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: no policy for roles %s", ErrPolicyMisconfiguration, strings.Join(missing, ", "))
	}
	return nil
}

// Snapshot returns a copy of the table as role -> prefixes.
func (t *Table) Snapshot() map[string][]string {
	out := make(map[string][]string, len(t.entries))
	for role, pol := range t.entries {
		out[string(role)] = pol.List()
	}
	return out
}

// Roles returns the roles present in the table in sorted order.
func (t *Table) Roles() []domain.StaffRole {
	roles := make([]domain.StaffRole, 0, len(t.entries))
	for role := range t.entries {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}

type policyFile struct {
	Roles map[string][]string `yaml:"roles"`
}

// ParseTable reads a YAML policy document:
//
//	roles:
//	  admin: ["*"]
//	  sales: ["/dashboard", "/orders"]
//
// Every role of the closed set must be present and no unknown role may appear.
func ParseTable(data []byte) (*Table, error) {
	var doc policyFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse policy: %w", err)
	}
	entries := make(map[domain.StaffRole]Policy, len(doc.Roles))
	for name, prefixes := range doc.Roles {
		role, err := domain.ParseStaffRole(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPolicyMisconfiguration, err)
		}
		for _, prefix := range prefixes {
			if prefix != Wildcard && !strings.HasPrefix(prefix, "/") {
				return nil, fmt.Errorf("%w: prefix %q for role %s must start with /", ErrPolicyMisconfiguration, prefix, role)
			}
		}
		entries[role] = Prefixes(prefixes...)
	}
	return NewExhaustiveTable(entries)
}

// LoadTable returns DefaultTable when path is empty, otherwise the parsed file.
func LoadTable(path string) (*Table, error) {
	if path == "" {
		return DefaultTable(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return ParseTable(data)
}
