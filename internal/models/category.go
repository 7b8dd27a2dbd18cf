package models

// Category is the spending category attached to a transaction record.
type Category string

// CategoryOther is used for records that carry no category.
const CategoryOther Category = "Other"

// CategoryOrDefault returns c, or CategoryOther when c is empty.
func CategoryOrDefault(c string) Category {
	if c == "" {
		return CategoryOther
	}
	return Category(c)
}
