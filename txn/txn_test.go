package txn

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUpdateResponseBuilder(t *testing.T) {
	b := NewUpdateResponseBuilder()
	b.AddCandidates(2).AddModified(1)
	b.AddError(NewWriteError(1, errors.New("bad value")))
	b.AddCandidates(3).AddModified(3)

	res := b.Build()
	require.Equal(t, 5, res.Candidates)
	require.Equal(t, 4, res.Modified)
	require.Equal(t, []WriteError{{Index: 1, SubIndex: -1, Message: "bad value"}}, res.Errors)

	b.AddError(NewWriteError(2, errors.New("other")))
	require.Len(t, res.Errors, 1)
	require.Len(t, b.Build().Errors, 2)
}

func TestEmptyBuild(t *testing.T) {
	res := NewUpdateResponseBuilder().Build()
	require.Zero(t, res.Candidates)
	require.Zero(t, res.Modified)
	require.Nil(t, res.Errors)
}

func TestErrorKinds(t *testing.T) {
	userErr := NewUserError(ErrUpsertNotSupported)
	require.True(t, IsUserError(userErr))
	require.True(t, IsUserError(fmt.Errorf("op 1: %w", userErr)))
	require.ErrorIs(t, userErr, ErrUpsertNotSupported)

	fatal := NewFatalError("update", userErr)
	require.False(t, IsUserError(fatal))
	require.ErrorIs(t, fatal, ErrUpsertNotSupported)
	require.Contains(t, fatal.Error(), "update")

	require.False(t, IsUserError(errors.New("io failure")))

	err := UserErrorf("field %q: %w", "age", errors.New("not a number"))
	require.Equal(t, `field "age": not a number`, err.Error())
	require.EqualError(t, err.Unwrap(), "not a number")
}

func TestWriteError(t *testing.T) {
	require.Equal(t, "write error at 3: boom", NewWriteError(3, errors.New("boom")).Error())
	require.Equal(t, "write error at 3.1: boom", WriteError{Index: 3, SubIndex: 1, Message: "boom"}.Error())
}

func TestWriteFailMode(t *testing.T) {
	require.Equal(t, "TRANSACTIONAL", Transactional.String())
	require.True(t, Isolated.Valid())
	require.False(t, WriteFailMode(7).Valid())
	require.Equal(t, "WriteFailMode(7)", WriteFailMode(7).String())
}
