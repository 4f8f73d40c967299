// Package schema defines the canonical ordered field schema for insurance
// documents. The schema is the single authority for field ordering in merged
// extractions and for which fields each coverage validator owns. It is loaded
// once at service construction and injected; it is read-only afterwards.
package schema

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Group names, in report order. Each validator owns a disjoint field group.
const (
	GroupDeclarations        = "declarations"
	GroupPerils              = "perils"
	GroupCrime               = "crime"
	GroupAdditionalInterests = "additional_interests"
)

// Schema is an explicit ordered field configuration. Fields lists every
// canonical field name in output order; Groups partitions a subset of those
// fields among the coverage validators.
type Schema struct {
	Fields     []string            `yaml:"fields"`
	GroupOrder []string            `yaml:"groupOrder"`
	Groups     map[string][]string `yaml:"groups"`

	index map[string]int
}

// Parse reads a YAML schema document and validates it: every group field must
// also appear in the canonical field list, and no field may belong to more
// than one group.
func Parse(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse schema yaml: %w", err)
	}
	if len(s.Fields) == 0 {
		return nil, fmt.Errorf("schema defines no fields")
	}
	s.index = make(map[string]int, len(s.Fields))
	for i, name := range s.Fields {
		if _, dup := s.index[name]; dup {
			return nil, fmt.Errorf("schema field %q listed twice", name)
		}
		s.index[name] = i
	}
	owner := make(map[string]string)
	for _, group := range s.GroupOrder {
		fields, ok := s.Groups[group]
		if !ok {
			return nil, fmt.Errorf("group %q listed in groupOrder but not defined", group)
		}
		for _, name := range fields {
			if _, ok := s.index[name]; !ok {
				return nil, fmt.Errorf("group %q references unknown field %q", group, name)
			}
			if prev, taken := owner[name]; taken {
				return nil, fmt.Errorf("field %q belongs to both %q and %q", name, prev, group)
			}
			owner[name] = group
		}
	}
	return &s, nil
}

// Contains reports whether name is a canonical schema field.
func (s *Schema) Contains(name string) bool {
	_, ok := s.index[name]
	return ok
}

// GroupFields returns the ordered field names owned by a validator group.
func (s *Schema) GroupFields(group string) []string {
	return s.Groups[group]
}

// Default returns the built-in certificate/policy/ACORD field schema. The
// ordering here determines column order in every downstream report.
func Default() *Schema {
	s := &Schema{
		Fields: []string{
			"NamedInsured",
			"InsuredAddress",
			"PolicyNumber",
			"Carrier",
			"EffectiveDate",
			"ExpirationDate",
			"BuildingLimit",
			"ContentsLimit",
			"BusinessIncomeLimit",
			"Deductible",
			"CausesOfLoss",
			"WindHailDeductible",
			"FloodCoverage",
			"EarthquakeCoverage",
			"OrdinanceOrLaw",
			"EquipmentBreakdown",
			"CrimeLimit",
			"EmployeeDishonestyLimit",
			"AdditionalInterests",
			"MortgageeName",
			"LossPayee",
			"WaiverOfSubrogation",
		},
		GroupOrder: []string{
			GroupDeclarations,
			GroupPerils,
			GroupCrime,
			GroupAdditionalInterests,
		},
		Groups: map[string][]string{
			GroupDeclarations: {
				"NamedInsured",
				"InsuredAddress",
				"PolicyNumber",
				"Carrier",
				"EffectiveDate",
				"ExpirationDate",
				"BuildingLimit",
				"ContentsLimit",
				"Deductible",
			},
			GroupPerils: {
				"CausesOfLoss",
				"WindHailDeductible",
				"FloodCoverage",
				"EarthquakeCoverage",
				"BusinessIncomeLimit",
			},
			GroupCrime: {
				"OrdinanceOrLaw",
				"EquipmentBreakdown",
				"CrimeLimit",
				"EmployeeDishonestyLimit",
			},
			GroupAdditionalInterests: {
				"AdditionalInterests",
				"MortgageeName",
				"LossPayee",
				"WaiverOfSubrogation",
			},
		},
	}
	s.index = make(map[string]int, len(s.Fields))
	for i, name := range s.Fields {
		s.index[name] = i
	}
	return s
}
