package services

// PageSize is the number of items per list page.
const PageSize = 10

// NormalizePage maps missing or out of range page numbers to the first page.
func NormalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

func pageOffset(page int) int {
	return (NormalizePage(page) - 1) * PageSize
}
