package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/students-api/internal/config"
	"github.com/aanand-mishra/students-api/internal/storage"
	"github.com/aanand-mishra/students-api/internal/types"
)

func ptr[T any](v T) *T { return &v }

func newTestStore(t *testing.T) *SQLite {
	t.Helper()

	cfg := &config.Config{Storage: config.Storage{
		Driver:     config.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "students.db"),
	}}
	s, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func TestCreateAndFindOne(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.Create(ctx, types.CreateStudent{Name: "Alice", Grade: "A", Email: "alice@example.com", Age: 16})
	require.NoError(t, err)
	require.Len(t, id, storage.IDLength)

	student, found, err := s.FindOne(ctx, id)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, types.Student{ID: id, Name: "Alice", Grade: "A", Email: "alice@example.com", Age: 16}, student)

	_, found, err = s.FindOne(ctx, "NOPE000000")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFind(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	students, err := s.Find(ctx, "", "")
	require.NoError(t, err)
	assert.NotNil(t, students)
	assert.Empty(t, students)

	for _, c := range []types.CreateStudent{
		{Name: "Carol", Grade: "C", Age: 18},
		{Name: "Alice", Grade: "A", Age: 16},
		{Name: "Bob", Grade: "B", Age: 17},
	} {
		_, err := s.Create(ctx, c)
		require.NoError(t, err)
	}

	names := func(students []types.Student) []string {
		out := make([]string, 0, len(students))
		for _, st := range students {
			out = append(out, st.Name)
		}
		return out
	}

	students, err = s.Find(ctx, "name", "asc")
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice", "Bob", "Carol"}, names(students))

	students, err = s.Find(ctx, "age", "desc")
	require.NoError(t, err)
	assert.Equal(t, []string{"Carol", "Bob", "Alice"}, names(students))

	students, err = s.Find(ctx, "student_id", "asc")
	require.NoError(t, err)
	require.Len(t, students, 3)
	assert.Less(t, students[0].ID, students[1].ID)
	assert.Less(t, students[1].ID, students[2].ID)

	byKey, err := s.Find(ctx, "_id", "desc")
	require.NoError(t, err)
	require.Len(t, byKey, 3)
	assert.Equal(t, []string{students[2].ID, students[1].ID, students[0].ID},
		[]string{byKey[0].ID, byKey[1].ID, byKey[2].ID})

	_, err = s.Find(ctx, "name') --", "asc")
	require.Error(t, err)
	assert.Equal(t, storage.KindValidation, storage.KindOf(err))
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.Create(ctx, types.CreateStudent{Name: "Alice", Grade: "A"})
	require.NoError(t, err)

	gotID, modified, err := s.Update(ctx, id, types.UpdateStudent{Grade: ptr("B"), Age: ptr(17)})
	require.NoError(t, err)
	assert.Equal(t, id, gotID)
	assert.EqualValues(t, 1, modified)

	student, _, err := s.FindOne(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.Student{ID: id, Name: "Alice", Grade: "B", Age: 17}, student)

	t.Run("SameValues", func(t *testing.T) {
		_, modified, err := s.Update(ctx, id, types.UpdateStudent{Grade: ptr("B")})
		require.NoError(t, err)
		assert.Zero(t, modified)
	})

	t.Run("NoFields", func(t *testing.T) {
		_, modified, err := s.Update(ctx, id, types.UpdateStudent{})
		require.NoError(t, err)
		assert.Zero(t, modified)
	})

	t.Run("MissingID", func(t *testing.T) {
		_, modified, err := s.Update(ctx, "NOPE000000", types.UpdateStudent{Name: ptr("Zed")})
		require.NoError(t, err)
		assert.Zero(t, modified)
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.Create(ctx, types.CreateStudent{Name: "Alice", Grade: "A"})
	require.NoError(t, err)

	gotID, deleted, err := s.Delete(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, gotID)
	assert.EqualValues(t, 1, deleted)

	_, deleted, err = s.Delete(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestClosedStoreIsTransportError(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Close(ctx))

	_, _, err := s.FindOne(ctx, "AB12CD34EF")
	require.Error(t, err)
	assert.Equal(t, storage.KindTransport, storage.KindOf(err))
}
