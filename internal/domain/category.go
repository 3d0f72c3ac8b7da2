package domain

// Category is the AI-assigned topic of an article.
type Category string

const (
	CategoryTechnology    Category = "Technology"
	CategoryPolitics      Category = "Politics"
	CategoryEconomy       Category = "Economy"
	CategorySports        Category = "Sports"
	CategoryEntertainment Category = "Entertainment"
	CategoryWorld         Category = "World"
	CategoryBrazil        Category = "Brazil"
	CategoryHealth        Category = "Health"
	CategoryScience       Category = "Science"
	CategoryOther         Category = "Other"
)

// AllCategories returns the closed category set in prompt order.
func AllCategories() []Category {
	return []Category{
		CategoryTechnology,
		CategoryPolitics,
		CategoryEconomy,
		CategorySports,
		CategoryEntertainment,
		CategoryWorld,
		CategoryBrazil,
		CategoryHealth,
		CategoryScience,
		CategoryOther,
	}
}

// ParseCategory reports whether value exactly matches a known category.
func ParseCategory(value string) (Category, bool) {
	for _, c := range AllCategories() {
		if string(c) == value {
			return c, true
		}
	}
	return "", false
}

// Relevance bounds and the score used when the model answers out of contract.
const (
	MinRelevance     = 1
	MaxRelevance     = 10
	DefaultRelevance = 5
)
