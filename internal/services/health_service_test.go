package services

import (
	"testing"

	"github.com/nimasrn/session-ledger/internal/repository"
	"github.com/stretchr/testify/assert"
)

func TestHealthService_Get(t *testing.T) {
	db := repository.SetupTestDB(t)
	svc := NewHealthService(db)
	assert.NoError(t, svc.Get())

	_ = db.Close()
	assert.Error(t, svc.Get())
}
