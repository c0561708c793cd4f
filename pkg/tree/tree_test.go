package tree_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kinsync/kinsync/pkg/tree"
)

func TestPersonNormalize(t *testing.T) {
	p := &tree.Person{
		ID:         "p1",
		GivenName:  "Иван",
		Surname:    "Петров",
		MaidenName: "D'Arcy",
	}
	p.Normalize()

	assert.Equal(t, "ivan", p.NormGiven)
	assert.Equal(t, "petrov", p.NormSurname)
	assert.Equal(t, "darcy", p.NormMaiden)

	// Derived fields follow the raw name, never drift from it.
	p.GivenName = "Пётр"
	p.Normalize()
	assert.Equal(t, "petr", p.NormGiven)
}

func TestGenderConflicts(t *testing.T) {
	assert.True(t, tree.GenderMale.Conflicts(tree.GenderFemale))
	assert.False(t, tree.GenderMale.Conflicts(tree.GenderMale))
	assert.False(t, tree.GenderUnknown.Conflicts(tree.GenderFemale))
	assert.False(t, tree.GenderMale.Conflicts(tree.GenderUnknown))
}

func TestGraphParentChildLookups(t *testing.T) {
	g := tree.NewGraph()
	g.Persons["father"] = &tree.Person{ID: "father"}
	g.Persons["mother"] = &tree.Person{ID: "mother"}
	g.Persons["kid"] = &tree.Person{ID: "kid"}
	g.Families["f1"] = &tree.Family{
		ID:        "f1",
		HusbandID: "father",
		WifeID:    "mother",
		ChildIDs:  []tree.PersonID{"kid"},
	}

	assert.True(t, g.IsParent("father"))
	assert.True(t, g.IsParent("mother"))
	assert.False(t, g.IsParent("kid"))
	assert.True(t, g.IsChild("kid"))
	assert.False(t, g.IsChild("father"))

	fams := g.FamiliesWithParent("father")
	assert.Len(t, fams, 1)
	assert.Equal(t, tree.FamilyID("f1"), fams[0].ID)
}

func TestChildOnlyFamilyDoesNotCrashLookups(t *testing.T) {
	g := tree.NewGraph()
	g.Families["f1"] = &tree.Family{ID: "f1", ChildIDs: []tree.PersonID{"a", "b"}}

	assert.Empty(t, g.Families["f1"].Parents())
	assert.True(t, g.Families["f1"].HasMember("a"))
	assert.False(t, g.IsParent("a"))
	assert.True(t, g.IsChild("a"))
}

func TestPersonListDeterministicOrder(t *testing.T) {
	g := tree.NewGraph()
	for _, id := range []tree.PersonID{"c", "a", "b"} {
		g.Persons[id] = &tree.Person{ID: id}
	}
	list := g.PersonList()
	assert.Equal(t, tree.PersonID("a"), list[0].ID)
	assert.Equal(t, tree.PersonID("b"), list[1].ID)
	assert.Equal(t, tree.PersonID("c"), list[2].ID)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Ivan Petrov", (&tree.Person{GivenName: "Ivan", Surname: "Petrov"}).DisplayName())
	assert.Equal(t, "Ivan", (&tree.Person{GivenName: "Ivan"}).DisplayName())
	assert.Equal(t, "p9", (&tree.Person{ID: "p9"}).DisplayName())
}
