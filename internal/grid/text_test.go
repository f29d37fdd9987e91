package grid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	events := fakeEvents{
		"11/02/2024": {{ID: 1, Title: "brunch", Time: "11:00:00"}},
		"11/05/2024": {
			{ID: 2, Title: "a", Time: "08:00:00"},
			{ID: 3, Title: "b", Time: "09:00:00"},
			{ID: 4, Title: "c", Time: "10:00:00"},
		},
	}
	out := Text(Project(2024, 10, events, fakeIcons{"11/02/2024": 0}))
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	assert.Equal(t, "2024-11", lines[0])
	assert.Equal(t, " Sun Mon Tue Wed Thu Fri Sat", lines[1])
	assert.Equal(t, strings.Repeat("    ", 5)+"  1   2*", lines[2])
	assert.Equal(t, "  3   4   5+  6   7   8   9 ", lines[3])
	assert.Contains(t, out, "11/02/2024 [heart] 11:00 brunch\n")
	assert.Contains(t, out, "11/05/2024 08:00 a (+2 more)\n")
}

func TestTextEmptyMonth(t *testing.T) {
	out := Text(Project(2024, 10, fakeEvents{}, nil))
	assert.NotContains(t, out, "*")
	assert.True(t, strings.HasSuffix(out, " 30 \n"))
}
