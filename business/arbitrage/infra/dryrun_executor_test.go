package infra

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/fd1az/arbitrage-sequences/business/arbitrage/domain"
)

func TestDryRunExecutor_Submit(t *testing.T) {
	e := NewDryRunExecutor(testLogger())
	first := domain.Order{ID: uuid.New(), Exchange: "sim"}
	second := domain.Order{ID: uuid.New(), Exchange: "sim", DependsOn: first.ID}

	assert.NoError(t, e.Submit(context.Background(), []domain.Order{first, second}))
	assert.Equal(t, int64(1), e.Submitted())
	assert.Equal(t, "", dependency(first))
	assert.Equal(t, first.ID.String(), dependency(second))
}
