package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_GroupsPartitionSchemaFields(t *testing.T) {
	s := Default()
	require.NotEmpty(t, s.Fields)
	require.Len(t, s.GroupOrder, 4)

	seen := map[string]string{}
	for _, group := range s.GroupOrder {
		fields := s.GroupFields(group)
		require.NotEmpty(t, fields, "group %s", group)
		for _, name := range fields {
			assert.True(t, s.Contains(name), "group %s references unknown field %s", group, name)
			prev, dup := seen[name]
			assert.False(t, dup, "field %s in both %s and %s", name, prev, group)
			seen[name] = group
		}
	}
}

func TestParse_ValidDocument(t *testing.T) {
	doc := `
fields:
  - PolicyNumber
  - EffectiveDate
  - BuildingLimit
groupOrder:
  - declarations
groups:
  declarations:
    - PolicyNumber
    - EffectiveDate
`
	s, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, []string{"PolicyNumber", "EffectiveDate", "BuildingLimit"}, s.Fields)
	assert.True(t, s.Contains("BuildingLimit"))
	assert.False(t, s.Contains("Nope"))
	assert.Equal(t, []string{"PolicyNumber", "EffectiveDate"}, s.GroupFields("declarations"))
}

func TestParse_RejectsUnknownGroupField(t *testing.T) {
	doc := `
fields: [PolicyNumber]
groupOrder: [declarations]
groups:
  declarations: [EffectiveDate]
`
	_, err := Parse([]byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown field")
}

func TestParse_RejectsDuplicateField(t *testing.T) {
	doc := `
fields: [PolicyNumber, PolicyNumber]
`
	_, err := Parse([]byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listed twice")
}

func TestParse_RejectsFieldInTwoGroups(t *testing.T) {
	doc := `
fields: [PolicyNumber]
groupOrder: [declarations, perils]
groups:
  declarations: [PolicyNumber]
  perils: [PolicyNumber]
`
	_, err := Parse([]byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "belongs to both")
}

func TestParse_RejectsUndefinedGroup(t *testing.T) {
	doc := `
fields: [PolicyNumber]
groupOrder: [declarations]
groups: {}
`
	_, err := Parse([]byte(doc))
	require.Error(t, err)
}

func TestParse_RejectsEmptySchema(t *testing.T) {
	_, err := Parse([]byte("groups: {}"))
	require.Error(t, err)
}
