package join

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/diskstore/criteria"
)

// ErrUnknownAssociationStrategy is returned when join instructions do not
// describe one of the supported strategies.
var ErrUnknownAssociationStrategy = errors.New("unknown association strategy")

// Instruction is one step of an association. A junction association chains
// two instructions: parent to junction, then junction to child.
type Instruction struct {
	// Alias is the attribute of the parent that receives the children.
	Alias string
	// Parent is the collection the instruction starts from.
	Parent string
	// ParentKey is the attribute of Parent that is matched against ChildKey.
	ParentKey string
	// Child is the collection the instruction fetches from.
	Child string
	// ChildKey is the attribute of Child that is matched against ParentKey.
	ChildKey string
	// Criteria applies to the fetched children. Only the criteria of the
	// last instruction of an association is used for the child query.
	Criteria criteria.Criteria
}

// Strategy is the resolved form of an association.
type Strategy interface {
	// Name returns the strategy identifier.
	Name() string
	// ChildCollection returns the collection children are fetched from.
	ChildCollection() string
	// lookupKey returns the parent attribute a parent's buffer is keyed by.
	lookupKey() string
	// many reports whether the association is to-many.
	many() bool
}

// HasFK is an association where the parent stores the key of one child.
type HasFK struct {
	Child     string
	ParentKey string // foreign key attribute on the parent
	ChildKey  string // attribute of the child it points at
}

// ViaFK is a to-many association where children store the parent's key.
type ViaFK struct {
	Child     string
	ParentKey string // primary key of the parent
	ChildKey  string // foreign key attribute on the child
}

// ViaJunctor is a many-to-many association through a junction collection.
type ViaJunctor struct {
	ParentKey         string // primary key of the parent
	Junction          string
	JunctionParentKey string // junction attribute referencing the parent
	JunctionChildKey  string // junction attribute referencing the child
	Child             string
	ChildKey          string // attribute of the child referenced by the junction
}

// Name returns "hasFK".
func (HasFK) Name() string { return "hasFK" }

// Name returns "viaFK".
func (ViaFK) Name() string { return "viaFK" }

// Name returns "viaJunctor".
func (ViaJunctor) Name() string { return "viaJunctor" }

// ChildCollection returns the child collection.
func (s HasFK) ChildCollection() string { return s.Child }

// ChildCollection returns the child collection.
func (s ViaFK) ChildCollection() string { return s.Child }

// ChildCollection returns the child collection.
func (s ViaJunctor) ChildCollection() string { return s.Child }

func (s HasFK) lookupKey() string      { return s.ParentKey }
func (s ViaFK) lookupKey() string      { return s.ParentKey }
func (s ViaJunctor) lookupKey() string { return s.ParentKey }

func (HasFK) many() bool      { return false }
func (ViaFK) many() bool      { return true }
func (ViaJunctor) many() bool { return true }

// Classify determines the strategy of one association. parentPK is the
// primary key attribute of the parent collection.
//
// Two instructions always form a junction association. A single instruction
// whose ParentKey is the parent's primary key is ViaFK, anything else HasFK.
func Classify(instructions []Instruction, parentPK string) (Strategy, error) {
	switch len(instructions) {
	case 1:
		in := instructions[0]
		if err := in.validate(); err != nil {
			return nil, err
		}
		if in.ParentKey == parentPK {
			return ViaFK{Child: in.Child, ParentKey: in.ParentKey, ChildKey: in.ChildKey}, nil
		}
		return HasFK{Child: in.Child, ParentKey: in.ParentKey, ChildKey: in.ChildKey}, nil
	case 2:
		first, second := instructions[0], instructions[1]
		if err := first.validate(); err != nil {
			return nil, err
		}
		if err := second.validate(); err != nil {
			return nil, err
		}
		if !strings.EqualFold(first.Child, second.Parent) {
			return nil, fmt.Errorf("%w: alias %q: junction %q does not chain to %q",
				ErrUnknownAssociationStrategy, first.Alias, first.Child, second.Parent)
		}
		return ViaJunctor{
			ParentKey:         first.ParentKey,
			Junction:          first.Child,
			JunctionParentKey: first.ChildKey,
			JunctionChildKey:  second.ParentKey,
			Child:             second.Child,
			ChildKey:          second.ChildKey,
		}, nil
	default:
		alias := ""
		if len(instructions) > 0 {
			alias = instructions[0].Alias
		}
		return nil, fmt.Errorf("%w: alias %q: %d instructions", ErrUnknownAssociationStrategy, alias, len(instructions))
	}
}

func (in Instruction) validate() error {
	if in.Alias == "" || in.Parent == "" || in.Child == "" || in.ParentKey == "" || in.ChildKey == "" {
		return fmt.Errorf("%w: incomplete instruction %+v", ErrUnknownAssociationStrategy, in)
	}
	return nil
}

// Association is a classified group of instructions sharing an alias.
type Association struct {
	Alias    string
	Parent   string
	Strategy Strategy
	// Criteria applies to the children of each parent.
	Criteria criteria.Criteria
}

// Group splits instructions by alias, keeping the order in which aliases
// first appear, and classifies each group. primaryKey resolves the primary
// key attribute of a parent collection.
func Group(instructions []Instruction, primaryKey func(collection string) (string, error)) ([]Association, error) {
	var (
		order  []string
		groups = make(map[string][]Instruction)
	)
	for _, in := range instructions {
		if _, ok := groups[in.Alias]; !ok {
			order = append(order, in.Alias)
		}
		groups[in.Alias] = append(groups[in.Alias], in)
	}

	out := make([]Association, 0, len(order))
	for _, alias := range order {
		group := groups[alias]
		pk, err := primaryKey(group[0].Parent)
		if err != nil {
			return nil, err
		}
		s, err := Classify(group, pk)
		if err != nil {
			return nil, err
		}
		out = append(out, Association{
			Alias:    alias,
			Parent:   group[0].Parent,
			Strategy: s,
			Criteria: group[len(group)-1].Criteria,
		})
	}
	return out, nil
}
