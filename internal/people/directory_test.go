package people

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDirectoryExpand(t *testing.T) {
	d := NewDirectory(map[string]string{"Sam": "Samuel Ng"})
	d.Add("Alice Gleadle")
	d.Add("Keira Rafferty")
	d.Add("Sam Hill")
	d.Add("Andrew")

	assert.Equal(t, "Alice Gleadle", d.Expand("Alice"))
	assert.Equal(t, "Alice Gleadle", d.Expand("alice"))
	assert.Equal(t, "Samuel Ng", d.Expand("sam"), "alias wins over learned names")
	assert.Equal(t, "Andrew", d.Expand("Andrew"), "single word names are never learned")
	assert.Equal(t, "Alice Smith", d.Expand("Alice Smith"), "full names are left alone")
	assert.Equal(t, 4, d.Len())
}

func TestDirectoryAmbiguousFirstName(t *testing.T) {
	d := NewDirectory(nil)
	d.Add("Sam Hill")
	d.Add("Sam Ng")
	d.Add("sam  hill")

	assert.Equal(t, "Sam", d.Expand("Sam"))
	assert.Equal(t, 2, d.Len())
}

func TestDirectoryCloneIsIndependent(t *testing.T) {
	d := NewDirectory(nil)
	d.Add("Alice Gleadle")

	c := d.Clone()
	c.Add("Keira Rafferty")

	assert.Equal(t, "Keira", d.Expand("Keira"))
	assert.Equal(t, "Keira Rafferty", c.Expand("Keira"))
	assert.Equal(t, "Alice Gleadle", c.Expand("Alice"))
}

func TestNilDirectory(t *testing.T) {
	var d *Directory
	assert.Equal(t, "Alice", d.Expand("Alice"))
	assert.Equal(t, 0, d.Len())
	assert.Equal(t, 0, d.Clone().Len())
}

func TestCanonicalizerUsesDirectory(t *testing.T) {
	d := NewDirectory(nil)
	d.Add("Alice Gleadle")
	d.Add("Sangwon Kang")
	d.Add("Keira Rafferty")

	c := New().WithDirectory(d)
	assert.Equal(t,
		[]string{"Alice Gleadle", "Sangwon Kang", "Keira Rafferty"},
		c.FromTitle("RA On Call: Alice, Sangwon, Keira"))
	assert.Nil(t, New().Directory())
}

func TestAssignedIgnoresLearnedNames(t *testing.T) {
	d := NewDirectory(map[string]string{"Ellie": "Ellen Mphande"})
	d.Add("Andrew Smith")

	c := New().WithDirectory(d)
	assert.Equal(t, []string{"Andrew"}, c.Assigned("Andrew - On Leave - Approved"))
	assert.Equal(t, []string{"Ellen Mphande", "Andrew"}, c.Assigned("Ellie;Andrew"))
	assert.Equal(t, []string{"Andrew Smith"}, c.FromTitle("On Call: Andrew"))

	assert.Equal(t, "Andrew", d.Alias("Andrew"))
	assert.Equal(t, "Ellen Mphande", d.Alias("ellie"))
	var nilDir *Directory
	assert.Equal(t, "Ellie", nilDir.Alias("Ellie"))
}
