package roster

import "testing"

func TestCategory(t *testing.T) {
	const year = 2026
	cases := []struct {
		age  int
		want string
	}{
		{age: 9, want: CategoryUnclassified},
		{age: 10, want: "ALLIEVI B1"},
		{age: 11, want: "ALLIEVI B2"},
		{age: 12, want: "ALLIEVI C"},
		{age: 13, want: "CADETTI"},
		{age: 14, want: "CADETTI"},
		{age: 15, want: "RAGAZZI"},
		{age: 16, want: "RAGAZZI"},
		{age: 17, want: "JUNIOR"},
		{age: 18, want: "JUNIOR"},
		{age: 19, want: "UNDER 23"},
		{age: 22, want: "UNDER 23"},
		{age: 23, want: "SENIOR"},
		{age: 26, want: "SENIOR"},
		{age: 27, want: "MASTER"},
		{age: 60, want: "MASTER"},
		{age: 0, want: CategoryUnclassified},
		{age: -1, want: CategoryUnclassified},
	}
	for _, tc := range cases {
		if got := Category(year-tc.age, year); got != tc.want {
			t.Errorf("age %d: category = %q, want %q", tc.age, got, tc.want)
		}
	}
}

func TestCategoryUsesYearReachedNotBirthday(t *testing.T) {
	// Born late in 2009: turns 17 during 2026, so the 2026 season category
	// is JUNIOR even before the birthday.
	if got := Category(2009, 2026); got != "JUNIOR" {
		t.Fatalf("category = %q, want JUNIOR", got)
	}
	if got := Category(2009, 2027); got != "JUNIOR" {
		t.Fatalf("category = %q, want JUNIOR at 18", got)
	}
	if got := Category(2009, 2028); got != "UNDER 23" {
		t.Fatalf("category = %q, want UNDER 23 at 19", got)
	}
}
