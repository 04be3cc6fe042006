// Package catalog holds the declarative badge definition table. The table
// is loaded once at process start, validated, ordered so prerequisites are
// evaluated before their dependents, and never mutated afterwards.
package catalog

import (
	"fmt"

	"github.com/turnomed/badge-engine/internal/models"
)

// Category groups badges for display.
type Category string

// Badge categories.
const (
	CategoryQualityOfCare      Category = "quality_of_care"
	CategoryProfessionalism    Category = "professionalism"
	CategoryConsistency        Category = "consistency"
	CategoryWelcome            Category = "welcome"
	CategoryPreventiveCare     Category = "preventive_care"
	CategoryActiveCommitment   Category = "active_commitment"
	CategoryClinicalExcellence Category = "clinical_excellence"
)

// Rarity is display metadata for how hard a badge is to earn.
type Rarity string

// Badge rarities.
const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// Operator compares a statistics value against a condition threshold.
type Operator string

// Comparison operators.
const (
	OpGTE Operator = ">="
	OpGT  Operator = ">"
	OpLTE Operator = "<="
	OpLT  Operator = "<"
)

// LowerBound reports whether the operator expresses a "reach at least this
// much" condition, which determines how progress toward it is computed.
func (op Operator) LowerBound() bool {
	return op == OpGTE || op == OpGT
}

// Condition is one threshold comparison over a typed statistics field.
// Value reads the field from the snapshot; Field is kept for logging.
type Condition struct {
	Field     models.StatField
	Value     func(*models.UserStatistics) float64
	Op        Operator
	Threshold float64
}

// Holds reports whether the condition is satisfied by the given statistics.
func (c Condition) Holds(stats *models.UserStatistics) bool {
	v := c.Value(stats)
	switch c.Op {
	case OpGTE:
		return v >= c.Threshold
	case OpGT:
		return v > c.Threshold
	case OpLTE:
		return v <= c.Threshold
	case OpLT:
		return v < c.Threshold
	default:
		return false
	}
}

// PercentileRule describes a "top P% by average rating among same-specialty
// peers" condition. Only users with at least MinTurns completed turns are in
// the candidate population.
type PercentileRule struct {
	Percentile float64 // 0.10 means top 10%
	MinTurns   int64
}

// BadgeDefinition is one entry of the catalog. Definitions are immutable;
// all of a definition's conditions must hold for the badge to activate.
type BadgeDefinition struct {
	Type        models.BadgeType
	Role        models.Role
	Category    Category
	Name        string
	Description string
	Icon        string
	Color       string
	Rarity      Rarity
	Criteria    string // human-readable criteria text

	Conditions      []Condition
	Percentile      *PercentileRule
	MinActiveBadges int              // >0: requires this many other active badges
	Requires        models.BadgeType // prerequisite badge that must be active
}

// Catalog is the validated, ordered badge definition table.
type Catalog struct {
	byType  map[models.BadgeType]*BadgeDefinition
	ordered []*BadgeDefinition // prerequisite-respecting order
}

// New builds the catalog from the built-in definition table.
func New() (*Catalog, error) {
	return build(definitions())
}

// build validates definitions and resolves the evaluation order.
func build(defs []BadgeDefinition) (*Catalog, error) {
	c := &Catalog{byType: make(map[models.BadgeType]*BadgeDefinition, len(defs))}

	for i := range defs {
		def := &defs[i]
		if def.Type == "" {
			return nil, fmt.Errorf("badge definition %d has no type", i)
		}
		if !def.Role.Valid() {
			return nil, fmt.Errorf("badge %q has invalid role %q", def.Type, def.Role)
		}
		if _, dup := c.byType[def.Type]; dup {
			return nil, fmt.Errorf("duplicate badge type %q", def.Type)
		}
		c.byType[def.Type] = def
	}

	// Prerequisites must exist, belong to the same role and form no cycles.
	for _, def := range c.byType {
		if def.Requires == "" {
			continue
		}
		req, ok := c.byType[def.Requires]
		if !ok {
			return nil, fmt.Errorf("badge %q requires unknown badge %q", def.Type, def.Requires)
		}
		if req.Role != def.Role {
			return nil, fmt.Errorf("badge %q requires %q of a different role", def.Type, def.Requires)
		}
	}

	ordered, err := topoSort(defs, c.byType)
	if err != nil {
		return nil, err
	}
	c.ordered = ordered

	return c, nil
}

// topoSort orders definitions so every prerequisite precedes its dependents.
// Input order is preserved among unrelated badges.
func topoSort(defs []BadgeDefinition, byType map[models.BadgeType]*BadgeDefinition) ([]*BadgeDefinition, error) {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)

	state := make(map[models.BadgeType]int, len(defs))
	ordered := make([]*BadgeDefinition, 0, len(defs))

	var visit func(def *BadgeDefinition) error
	visit = func(def *BadgeDefinition) error {
		switch state[def.Type] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("prerequisite cycle through badge %q", def.Type)
		}
		state[def.Type] = visiting
		if def.Requires != "" {
			if err := visit(byType[def.Requires]); err != nil {
				return err
			}
		}
		state[def.Type] = done
		ordered = append(ordered, def)
		return nil
	}

	for i := range defs {
		if err := visit(byType[defs[i].Type]); err != nil {
			return nil, err
		}
	}

	return ordered, nil
}

// ByType returns the definition for a badge type, or nil if unknown.
func (c *Catalog) ByType(t models.BadgeType) *BadgeDefinition {
	return c.byType[t]
}

// ForRole returns all definitions for a role in evaluation order.
func (c *Catalog) ForRole(role models.Role) []*BadgeDefinition {
	var defs []*BadgeDefinition
	for _, def := range c.ordered {
		if def.Role == role {
			defs = append(defs, def)
		}
	}
	return defs
}

// Subset returns the definitions for the given types, restricted to the
// role, in evaluation order. Unknown types are skipped.
func (c *Catalog) Subset(role models.Role, types []models.BadgeType) []*BadgeDefinition {
	want := make(map[models.BadgeType]bool, len(types))
	for _, t := range types {
		want[t] = true
	}
	var defs []*BadgeDefinition
	for _, def := range c.ordered {
		if def.Role == role && want[def.Type] {
			defs = append(defs, def)
		}
	}
	return defs
}

// All returns every definition in evaluation order.
func (c *Catalog) All() []*BadgeDefinition {
	return c.ordered
}

// Size returns the number of definitions.
func (c *Catalog) Size() int {
	return len(c.ordered)
}
