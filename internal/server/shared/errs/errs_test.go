package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpetrovsky/webauth/internal/common"
)

func TestTranslate_NilError(t *testing.T) {
	require.NoError(t, Translate(nil, common.ErrorUserAlreadyExists))
}

func TestTranslate_UniqueViolationBecomesBareTarget(t *testing.T) {
	pgErr := &pgconn.PgError{Code: pgerrcode.UniqueViolation, Message: "duplicate key value"}

	got := Translate(pgErr, common.ErrorUserAlreadyExists)

	require.ErrorIs(t, got, common.ErrorUserAlreadyExists)
	assert.Equal(t, common.ErrorUserAlreadyExists.Error(), got.Error(),
		"integrity violations must not leak driver detail")
}

func TestTranslate_WrappedUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: pgerrcode.UniqueViolation}
	wrapped := fmt.Errorf("db error: %w", pgErr)

	got := Translate(wrapped, common.ErrorUserAlreadyExists)

	require.ErrorIs(t, got, common.ErrorUserAlreadyExists)
	assert.Equal(t, common.ErrorUserAlreadyExists.Error(), got.Error())
}

func TestTranslate_OtherErrorKeepsDetail(t *testing.T) {
	cause := errors.New("connection reset by peer")

	got := Translate(cause, common.ErrorUserAlreadyExists)

	require.ErrorIs(t, got, common.ErrorUserAlreadyExists)
	assert.Contains(t, got.Error(), "connection reset by peer")
}

func TestIsIntegrityViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"unique violation", &pgconn.PgError{Code: pgerrcode.UniqueViolation}, true},
		{"foreign key violation", &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}, true},
		{"not null violation", &pgconn.PgError{Code: pgerrcode.NotNullViolation}, true},
		{"syntax error", &pgconn.PgError{Code: pgerrcode.SyntaxError}, false},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsIntegrityViolation(tc.err))
		})
	}
}
