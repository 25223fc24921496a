package search

import "fmt"

// BuildQueries returns three queries per category, in category order:
// a contact/about page query, a .com site query and a services query.
func BuildQueries(categories []string) []string {
	queries := make([]string, 0, len(categories)*3)
	for _, c := range categories {
		queries = append(queries,
			fmt.Sprintf(`intitle:"contact" "%s" OR intitle:"about" "%s" OR "%s" "contact"`, c, c, c),
			fmt.Sprintf(`"%s" site:.com`, c),
			fmt.Sprintf(`"%s" services`, c),
		)
	}
	return queries
}
