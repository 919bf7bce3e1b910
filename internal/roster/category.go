package roster

// CategoryUnclassified is reported for ages outside every bracket.
const CategoryUnclassified = "NON CLASSIFICATO"

type ageBracket struct {
	minAge int
	maxAge int
	label  string
}

// Bracket boundaries follow the age reached within the current calendar
// year. Ordered, inclusive ranges; 27 and above is handled separately.
var ageBrackets = []ageBracket{
	{10, 10, "ALLIEVI B1"},
	{11, 11, "ALLIEVI B2"},
	{12, 12, "ALLIEVI C"},
	{13, 14, "CADETTI"},
	{15, 16, "RAGAZZI"},
	{17, 18, "JUNIOR"},
	{19, 22, "UNDER 23"},
	{23, 26, "SENIOR"},
}

const masterMinAge = 27

// Category classifies an account by the age it reaches in currentYear.
func Category(birthYear, currentYear int) string {
	age := currentYear - birthYear
	for _, b := range ageBrackets {
		if age >= b.minAge && age <= b.maxAge {
			return b.label
		}
	}
	if age >= masterMinAge {
		return "MASTER"
	}
	return CategoryUnclassified
}
