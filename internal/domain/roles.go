package domain

import "strings"

// Role is one of the three group roles a specialization fills.
type Role string

const (
	RoleTank   Role = "TANK"
	RoleHealer Role = "HEALING"
	RoleDPS    Role = "DPS"
)

type specBinding struct {
	Spec  string
	Class string
	Role  Role
}

// specRoles is ordered: when no class is available the first binding for a
// spec name wins. Spec names shared across classes (Frost, Restoration,
// Holy, Protection) are only unambiguous with a class in hand.
var specRoles = []specBinding{
	{"Blood", "Death Knight", RoleTank},
	{"Frost", "Death Knight", RoleDPS},
	{"Unholy", "Death Knight", RoleDPS},
	{"Havoc", "Demon Hunter", RoleDPS},
	{"Vengeance", "Demon Hunter", RoleTank},
	{"Balance", "Druid", RoleDPS},
	{"Feral", "Druid", RoleDPS},
	{"Guardian", "Druid", RoleTank},
	{"Restoration", "Druid", RoleHealer},
	{"Devastation", "Evoker", RoleDPS},
	{"Preservation", "Evoker", RoleHealer},
	{"Augmentation", "Evoker", RoleDPS},
	{"Beast Mastery", "Hunter", RoleDPS},
	{"Marksmanship", "Hunter", RoleDPS},
	{"Survival", "Hunter", RoleDPS},
	{"Arcane", "Mage", RoleDPS},
	{"Fire", "Mage", RoleDPS},
	{"Frost", "Mage", RoleDPS},
	{"Brewmaster", "Monk", RoleTank},
	{"Mistweaver", "Monk", RoleHealer},
	{"Windwalker", "Monk", RoleDPS},
	{"Holy", "Paladin", RoleHealer},
	{"Protection", "Paladin", RoleTank},
	{"Retribution", "Paladin", RoleDPS},
	{"Discipline", "Priest", RoleHealer},
	{"Holy", "Priest", RoleHealer},
	{"Shadow", "Priest", RoleDPS},
	{"Assassination", "Rogue", RoleDPS},
	{"Outlaw", "Rogue", RoleDPS},
	{"Subtlety", "Rogue", RoleDPS},
	{"Elemental", "Shaman", RoleDPS},
	{"Enhancement", "Shaman", RoleDPS},
	{"Restoration", "Shaman", RoleHealer},
	{"Affliction", "Warlock", RoleDPS},
	{"Demonology", "Warlock", RoleDPS},
	{"Destruction", "Warlock", RoleDPS},
	{"Arms", "Warrior", RoleDPS},
	{"Fury", "Warrior", RoleDPS},
	{"Protection", "Warrior", RoleTank},
}

// RoleFor resolves a spec name to a role in the context of a class. When
// class is empty the first binding in the table wins.
func RoleFor(spec, class string) (Role, bool) {
	for _, b := range specRoles {
		if !strings.EqualFold(b.Spec, spec) {
			continue
		}
		if class == "" || strings.EqualFold(b.Class, class) {
			return b.Role, true
		}
	}
	return "", false
}

// RolesFor returns every candidate role for a spec name without class
// context. The result is ordered as the table is.
func RolesFor(spec string) []Role {
	var roles []Role
	seen := map[Role]bool{}
	for _, b := range specRoles {
		if strings.EqualFold(b.Spec, spec) && !seen[b.Role] {
			roles = append(roles, b.Role)
			seen[b.Role] = true
		}
	}
	return roles
}

// ParseRole maps the RaiderIO active_spec_role field to a Role.
func ParseRole(s string) Role {
	switch strings.ToUpper(s) {
	case "TANK":
		return RoleTank
	case "HEALING", "HEALER":
		return RoleHealer
	default:
		return RoleDPS
	}
}
