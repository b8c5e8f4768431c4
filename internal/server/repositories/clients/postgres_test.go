package clients

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/opacity/internal/common"
	"github.com/dmitrijs2005/opacity/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresRepository(db), mock, db
}

func TestCreate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+clients\s*\(id,\s*name,\s*owner_id\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3\)\s*$`
	mock.ExpectExec(q).WithArgs("c-1", "laptop", "o-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("c-2", "phone", "o-1").WillReturnError(errors.New("dup"))

	require.NoError(t, repo.Create(context.Background(), &models.Client{ID: "c-1", Name: "laptop", OwnerID: "o-1"}))

	err := repo.Create(context.Background(), &models.Client{ID: "c-2", Name: "phone", OwnerID: "o-1"})
	assert.Regexp(t, regexp.MustCompile(`db error: .*dup`), err.Error())
}

func TestGetWithOwner(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+c\.id,\s*c\.name,\s*c\.owner_id,\s*o\.name,\s*o\.mode\s+FROM\s+clients\s+c\s+JOIN\s+owners\s+o`
	mock.ExpectQuery(q).WithArgs("c-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "owner_id", "name", "mode"}).
			AddRow("c-1", "laptop", "o-1", "Alice", nil))
	mock.ExpectQuery(q).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	got, err := repo.GetWithOwner(context.Background(), "c-1")
	require.NoError(t, err)
	assert.Equal(t, "laptop", got.Name)
	assert.Equal(t, "o-1", got.OwnerID)
	require.NotNil(t, got.OwnerName)
	assert.Equal(t, "Alice", *got.OwnerName)
	assert.Nil(t, got.OwnerMode)

	_, err = repo.GetWithOwner(context.Background(), "ghost")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestUpdateName(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+clients\s+SET\s+name\s*=\s*\$2\s+WHERE\s+id\s*=\s*\$1$`
	mock.ExpectExec(q).WithArgs("c-1", "desk").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("c-9", "desk").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q).WithArgs("c-1", "x").WillReturnError(errors.New("boom"))

	assert.NoError(t, repo.UpdateName(context.Background(), "c-1", "desk"))
	assert.ErrorIs(t, repo.UpdateName(context.Background(), "c-9", "desk"), common.ErrorNotFound)
	assert.ErrorContains(t, repo.UpdateName(context.Background(), "c-1", "x"), "db error")
}
