package store

import (
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

type rowsResult int64

func (r rowsResult) LastInsertId() (int64, error) { return 0, nil }
func (r rowsResult) RowsAffected() (int64, error) { return int64(r), nil }

func TestExpectOneRow(t *testing.T) {
	assert.NoError(t, expectOneRow(rowsResult(1)))
	assert.ErrorIs(t, expectOneRow(rowsResult(0)), ErrNotFound)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("boom")))
}

func TestIsValidSort(t *testing.T) {
	for _, s := range []string{SortNewest, SortOldest, SortPriceLow, SortPriceHigh, SortNameAsc, SortNameDesc} {
		assert.True(t, IsValidSort(s), s)
	}
	assert.False(t, IsValidSort("random"))
}

func TestExchangeWhere(t *testing.T) {
	where, args := exchangeWhere(ExchangeFilter{})
	assert.Empty(t, where)
	assert.Empty(t, args)

	where, args = exchangeWhere(ExchangeFilter{OwnerID: 4, Status: "PENDING"})
	assert.Equal(t, " WHERE p.user_id = $1 AND er.status = $2", where)
	assert.Equal(t, []interface{}{int64(4), "PENDING"}, args)
}
