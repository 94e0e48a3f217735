// Package sqlite provides an embedded implementation of storage.Storage:
// every student is a JSON document in a single SQLite table, queried and
// patched with SQLite's built-in JSON functions. It needs no server and is
// meant for local runs and end-to-end tests.
//
// The blank import below registers the sqlite3 driver with database/sql.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"github.com/aanand-mishra/students-api/internal/config"
	"github.com/aanand-mishra/students-api/internal/storage"
	"github.com/aanand-mishra/students-api/internal/types"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite is the concrete implementation of storage.Storage.
// *sql.DB is a connection pool and is safe for concurrent use.
type SQLite struct {
	Db *sql.DB
}

var _ storage.Storage = (*SQLite)(nil)

// document is the stored JSON body; the identifier lives in its own column.
type document struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
	Grade   string `json:"grade"`
	Age     int    `json:"age,omitempty"`
}

// New opens the SQLite database at cfg.Storage.SQLitePath and creates the
// students table if it does not already exist.
func New(cfg *config.Config) (*SQLite, error) {
	db, err := sql.Open("sqlite3", cfg.Storage.SQLitePath)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite.New: open db")
	}

	// doc holds the student as minified JSON produced by json(), so that
	// json_patch output can be compared with it textually.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS students (
			id  TEXT PRIMARY KEY CHECK (length(id) = 10),
			doc TEXT NOT NULL CHECK (json_valid(doc))
		)
	`)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "sqlite.New: create table")
	}

	return &SQLite{Db: db}, nil
}

// Find returns every document, ordered by a JSON field when sortBy is set.
func (s *SQLite) Find(ctx context.Context, sortBy, order string) ([]types.Student, error) {
	const op = "sqlite.Find"

	sort, ok, err := storage.ParseSort(sortBy, order)
	if err != nil {
		return nil, storage.Invalid(op, err)
	}

	query := "SELECT id, doc FROM students"
	var args []any
	if ok {
		dir := "ASC"
		if sort.Descending {
			dir = "DESC"
		}
		if sort.Field == storage.IDField {
			query += " ORDER BY id " + dir
		} else {
			// The field name is a bound path, only the direction is spliced.
			query += " ORDER BY json_extract(doc, ?) " + dir + ", id"
			args = append(args, "$."+sort.Field)
		}
	}

	rows, err := s.Db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storage.Transport(op, errors.Wrap(err, "query"))
	}
	defer rows.Close()

	students := make([]types.Student, 0)
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, storage.Transport(op, errors.Wrap(err, "scan row"))
		}
		student, err := decode(id, raw)
		if err != nil {
			return nil, storage.Transport(op, err)
		}
		students = append(students, student)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Transport(op, errors.Wrap(err, "rows iteration"))
	}

	return students, nil
}

// FindOne fetches the document stored under id.
func (s *SQLite) FindOne(ctx context.Context, id string) (types.Student, bool, error) {
	const op = "sqlite.FindOne"

	var raw string
	err := s.Db.QueryRowContext(ctx, "SELECT doc FROM students WHERE id = ?", id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Student{}, false, nil
	}
	if err != nil {
		return types.Student{}, false, storage.Transport(op, errors.Wrapf(err, "scan student %s", id))
	}

	student, err := decode(id, raw)
	if err != nil {
		return types.Student{}, false, storage.Transport(op, err)
	}
	return student, true, nil
}

// Create inserts a new document under a generated identifier.
func (s *SQLite) Create(ctx context.Context, student types.CreateStudent) (string, error) {
	const op = "sqlite.Create"

	id, err := storage.NewID()
	if err != nil {
		return "", storage.Transport(op, err)
	}

	raw, err := json.Marshal(document{
		Name:    student.Name,
		Email:   student.Email,
		Phone:   student.Phone,
		Address: student.Address,
		Grade:   student.Grade,
		Age:     student.Age,
	})
	if err != nil {
		return "", storage.Transport(op, errors.Wrap(err, "encode student"))
	}

	_, err = s.Db.ExecContext(ctx, "INSERT INTO students (id, doc) VALUES (?, json(?))", id, string(raw))
	if err != nil {
		return "", storage.Transport(op, errors.Wrap(err, "insert"))
	}

	return id, nil
}

// Update merges the present fields into the stored document with
// json_patch. Rows whose document would not change are not counted,
// matching MongoDB's modified count.
func (s *SQLite) Update(ctx context.Context, id string, student types.UpdateStudent) (string, int64, error) {
	const op = "sqlite.Update"

	fields := student.Fields()
	if len(fields) == 0 {
		return id, 0, nil
	}

	patch, err := json.Marshal(fields)
	if err != nil {
		return id, 0, storage.Transport(op, errors.Wrap(err, "encode patch"))
	}

	res, err := s.Db.ExecContext(ctx, `
		UPDATE students SET doc = json_patch(doc, ?1)
		WHERE id = ?2 AND doc <> json_patch(doc, ?1)`,
		string(patch), id,
	)
	if err != nil {
		return id, 0, storage.Transport(op, errors.Wrapf(err, "update student %s", id))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return id, 0, storage.Transport(op, errors.Wrap(err, "rows affected"))
	}
	return id, n, nil
}

// Delete removes the document stored under id.
func (s *SQLite) Delete(ctx context.Context, id string) (string, int64, error) {
	const op = "sqlite.Delete"

	res, err := s.Db.ExecContext(ctx, "DELETE FROM students WHERE id = ?", id)
	if err != nil {
		return id, 0, storage.Transport(op, errors.Wrapf(err, "delete student %s", id))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return id, 0, storage.Transport(op, errors.Wrap(err, "rows affected"))
	}
	return id, n, nil
}

// Close closes the connection pool.
func (s *SQLite) Close(context.Context) error {
	return s.Db.Close()
}

func decode(id, raw string) (types.Student, error) {
	var doc document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return types.Student{}, fmt.Errorf("decode student %s: %w", id, err)
	}
	return types.Student{
		ID:      id,
		Name:    doc.Name,
		Email:   doc.Email,
		Phone:   doc.Phone,
		Address: doc.Address,
		Grade:   doc.Grade,
		Age:     doc.Age,
	}, nil
}
