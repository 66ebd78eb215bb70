package services

import (
	"slices"
	"strings"

	"github.com/siocraft/finance-tracker-api/internal/models"
)

// FilterByOwner keeps the records owned by userID, in their stored order
func FilterByOwner(all []models.Transaction, userID string) []models.Transaction {
	owned := make([]models.Transaction, 0, len(all))
	for _, t := range all {
		if t.UserID == userID {
			owned = append(owned, t)
		}
	}
	return owned
}

// SortTransactions returns a sorted copy. The sort is stable in both
// directions: records with equal keys keep their incoming order.
func SortTransactions(transactions []models.Transaction, sortBy models.SortField, order models.SortOrder) []models.Transaction {
	sorted := slices.Clone(transactions)
	if sorted == nil {
		sorted = []models.Transaction{}
	}

	compare := comparatorFor(sortBy)
	if order == models.SortDesc {
		asc := compare
		compare = func(a, b models.Transaction) int { return -asc(a, b) }
	}

	slices.SortStableFunc(sorted, compare)
	return sorted
}

func comparatorFor(sortBy models.SortField) func(a, b models.Transaction) int {
	switch sortBy {
	case models.SortByAmount:
		return func(a, b models.Transaction) int { return a.Amount.Cmp(b.Amount) }
	case models.SortByDate:
		return func(a, b models.Transaction) int { return a.Date.Compare(b.Date) }
	case models.SortByDescription:
		return func(a, b models.Transaction) int { return compareFold(a.Description, b.Description) }
	case models.SortByCategory:
		return func(a, b models.Transaction) int { return compareFold(a.Category, b.Category) }
	default:
		return func(a, b models.Transaction) int { return a.CreatedAt.Compare(b.CreatedAt) }
	}
}

func compareFold(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

// Paginate slices one 1-based page out of sorted. A page past the end is
// empty rather than an error.
func Paginate(sorted []models.Transaction, page, limit int) ([]models.Transaction, models.PaginationMeta) {
	total := len(sorted)
	meta := models.PaginationMeta{
		CurrentPage:     page,
		TotalItems:      total,
		ItemsPerPage:    limit,
		HasPreviousPage: page > 1,
	}

	if limit <= 0 {
		return []models.Transaction{}, meta
	}

	meta.TotalPages = (total + limit - 1) / limit
	meta.HasNextPage = page < meta.TotalPages

	start := (page - 1) * limit
	if page < 1 || start >= total {
		return []models.Transaction{}, meta
	}
	end := min(start+limit, total)

	return slices.Clone(sorted[start:end]), meta
}
