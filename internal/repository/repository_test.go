// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"testing"

	"codeberg.org/oliverandrich/microloan/internal/repository"
	"codeberg.org/oliverandrich/microloan/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	db, _ := testutil.NewTestDB(t)

	repo := repository.New(db)

	assert.NotNil(t, repo)
	assert.Same(t, db, repo.DB())
}
