package analysis

// categoryRule pairs a category with the keywords that select it
type categoryRule struct {
	category Category
	keywords *keywordSet
}

// Categorizer assigns exactly one category per email. Rules are evaluated in
// precedence order and the first match wins, so "invoice for the meeting"
// is a meeting no matter how many invoice keywords it contains.
type Categorizer struct {
	rules []categoryRule
}

// NewCategorizer compiles the keyword table in precedence order
func NewCategorizer(keywords map[Category][]string) *Categorizer {
	c := &Categorizer{}
	for _, category := range Categories {
		if category == CategoryGeneral {
			continue
		}
		c.rules = append(c.rules, categoryRule{
			category: category,
			keywords: compileKeywords(keywords[category]),
		})
	}
	return c
}

// Categorize returns the first category whose keywords occur in normalized text
func (c *Categorizer) Categorize(text string) Category {
	for _, rule := range c.rules {
		if rule.keywords.Match(text) {
			return rule.category
		}
	}
	return CategoryGeneral
}

// Matches reports whether the keywords of a single category occur in text
func (c *Categorizer) Matches(category Category, text string) bool {
	for _, rule := range c.rules {
		if rule.category == category {
			return rule.keywords.Match(text)
		}
	}
	return false
}
