package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPagination(t *testing.T) {
	p := NewPagination(0, 0, 45)
	assert.Equal(t, Pagination{Page: 1, PerPage: 20, Total: 45, TotalPages: 3}, p)

	p = NewPagination(2, 1000, 450)
	assert.Equal(t, MaxPerPage, p.PerPage)
	assert.Equal(t, 3, p.TotalPages)
}

func TestPaginationBounds(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	p := ParsePagination("2", "2", len(items))
	assert.Equal(t, []int{3, 4}, Page(items, p))

	p = ParsePagination("3", "2", len(items))
	assert.Equal(t, []int{5}, Page(items, p))

	p = ParsePagination("9", "2", len(items))
	assert.Empty(t, Page(items, p))

	p = ParsePagination("x", "", 0)
	assert.Empty(t, Page([]int{}, p))
}
