// Package student contains the HTTP handlers for the student resource.
//
// HANDLER PATTERN USED HERE: THE CLOSURE / FACTORY PATTERN
// ──────────────────────────────────────────────────────────
// The router expects handlers with the signature
//
//	func(http.ResponseWriter, *http.Request)
//
// which has no room for a database. Each factory below therefore takes
// the storage handle and returns a closure over it:
//
//	r.Get("/students/{id}", student.GetByID(storage))
//	//                              ^^^^^^^^^^^^^^^^
//	//          GetByID(storage) runs ONCE when the route is registered.
//	//          The func it returns runs on EVERY incoming request.
//
// Every factory follows the same order: validate path and query, decode
// and validate the body, make exactly one storage call, then map the
// result to a status code. Nothing invalid ever reaches the store.
package student

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/students-api/internal/storage"
	"github.com/aanand-mishra/students-api/internal/types"
	"github.com/aanand-mishra/students-api/internal/utils/response"
)

// validate is shared by all handlers; it caches struct metadata and is
// safe for concurrent use.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON names ("sort_by") rather than Go names ("SortBy").
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

const somethingWentWrong = "something went wrong"

// Index handles GET /.
func Index() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.WriteJSON(w, http.StatusOK, map[string]string{"message": "Student Info"})
	}
}

// GetList handles GET /students/?sort_by=<field>&order=<asc|desc>.
//
// Success response (200 OK):
//
//	{ "status": "ok", "data": [ { "student_id": "AB12CD34EF", ... } ] }
//
// data is [] (not null) when there are no students.
func GetList(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// ── Step 1: Read the query string ─────────────────────────────
		// Query().Get cannot tell "?order=" from no order at all, so the
		// key is checked with Has: a present-but-empty order must still
		// fail the 3–4 character rule.
		query := r.URL.Query()
		q := types.ListQuery{SortBy: query.Get("sort_by")}
		if query.Has("order") {
			order := query.Get("order")
			q.Order = &order
		}
		slog.Info("listing students", slog.String("sort_by", q.SortBy), slog.String("order", q.OrderValue()))

		// ── Step 2: Validate before touching the database ─────────────
		if !validStruct(w, q) {
			return
		}

		// ── Step 3: Query the store ───────────────────────────────────
		students, err := storage.Find(r.Context(), q.SortBy, q.OrderValue())
		if err != nil {
			writeStorageError(w, "error listing students", "", err)
			return
		}

		response.WriteJSON(w, http.StatusOK, response.OK(students))
	}
}

// GetByID handles GET /students/{id}.
//
// Error responses:
//
//	404 Not Found     no student with that id
//	422 Unprocessable id is not exactly 10 characters
//	500 Internal      storage failure
func GetByID(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		slog.Info("getting a student", slog.String("id", id))

		student, found, err := storage.FindOne(r.Context(), id)
		if err != nil {
			writeStorageError(w, "error getting student", id, err)
			return
		}
		if !found {
			response.WriteJSON(w, http.StatusNotFound, response.Detail("student id %s not found", id))
			return
		}

		response.WriteJSON(w, http.StatusOK, response.OK(student))
	}
}

// New handles POST /students.
//
// Request body (JSON):
//
//	{ "name": "Alice", "grade": "A", "email": "alice@example.com" }
//
// Success response (201 Created):
//
//	{ "status": "ok", "data": { "student_id": "AB12CD34EF" } }
func New(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("creating a student")

		// ── Step 1: Decode and validate the JSON body ─────────────────
		// Both helpers write the 422 themselves, so the handler only has
		// to stop on false.
		var student types.CreateStudent
		if !decodeBody(w, r, &student) || !validStruct(w, student) {
			return
		}

		// ── Step 2: Persist ───────────────────────────────────────────
		// The store generates the identifier; the handler never sees a
		// partially created record.
		id, err := storage.Create(r.Context(), student)
		if err != nil {
			writeStorageError(w, "error creating student", "", err)
			return
		}

		slog.Info("student created", slog.String("id", id))
		response.WriteJSON(w, http.StatusCreated, response.OK(map[string]string{"student_id": id}))
	}
}

// Update handles PATCH /students/{id}.
// Only the fields present in the body are changed.
//
// Success response (200 OK):
//
//	{ "status": "ok", "data": { "student_id": "AB12CD34EF", "modified_count": 1 } }
//
// A modified count of zero is reported as 404, whether the id does not
// exist or the body changed nothing.
func Update(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		slog.Info("updating a student", slog.String("id", id))

		var student types.UpdateStudent
		if !decodeBody(w, r, &student) || !validStruct(w, student) {
			return
		}

		// The modified count is the only success signal: the store does
		// not distinguish a missing id from a body that changed nothing.
		updatedID, modified, err := storage.Update(r.Context(), id, student)
		if err != nil {
			writeStorageError(w, "error updating student", id, err)
			return
		}
		if modified == 0 {
			response.WriteJSON(w, http.StatusNotFound,
				response.Detail("student id %s: no fields were modified", updatedID))
			return
		}

		slog.Info("student updated", slog.String("id", updatedID), slog.Int64("modified", modified))
		response.WriteJSON(w, http.StatusOK, response.OK(map[string]any{
			"student_id":     updatedID,
			"modified_count": modified,
		}))
	}
}

// Delete handles DELETE /students/{id}.
//
// Success response (200 OK):
//
//	{ "status": "ok", "data": { "student_id": "AB12CD34EF", "deleted_count": 1 } }
func Delete(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		slog.Info("deleting a student", slog.String("id", id))

		deletedID, deleted, err := storage.Delete(r.Context(), id)
		if err != nil {
			writeStorageError(w, "error deleting student", id, err)
			return
		}
		if deleted == 0 {
			response.WriteJSON(w, http.StatusNotFound,
				response.Detail("student id %s not found", deletedID))
			return
		}

		slog.Info("student deleted", slog.String("id", deletedID))
		response.WriteJSON(w, http.StatusOK, response.OK(map[string]any{
			"student_id":    deletedID,
			"deleted_count": deleted,
		}))
	}
}

// pathID extracts {id} and rejects it unless it is exactly
// storage.IDLength characters long.
func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if err := validate.Var(id, "len=10"); err != nil {
		response.WriteJSON(w, http.StatusUnprocessableEntity,
			response.Invalid(storage.IDField, "field student_id must be exactly 10 characters"))
		return "", false
	}
	return id, true
}

// decodeBody decodes the JSON body into v, writing a 422 on failure.
// The body must hold exactly one JSON value; anything after it is rejected.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)

	// io.EOF on the first Decode means the body was completely empty.
	err := dec.Decode(v)
	if errors.Is(err, io.EOF) {
		response.WriteJSON(w, http.StatusUnprocessableEntity,
			response.Invalid("body", "request body is empty"))
		return false
	}
	if err != nil {
		response.WriteJSON(w, http.StatusUnprocessableEntity,
			response.Invalid("body", "request body is not valid JSON: "+err.Error()))
		return false
	}

	// After the value, only whitespace may remain: the next token must be
	// io.EOF, otherwise there is trailing data such as `{...} extra`.
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		response.WriteJSON(w, http.StatusUnprocessableEntity,
			response.Invalid("body", "request body must contain a single JSON value"))
		return false
	}
	return true
}

// validStruct runs the validate tags of v, writing a 422 on failure.
func validStruct(w http.ResponseWriter, v any) bool {
	err := validate.Struct(v)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		response.WriteJSON(w, http.StatusUnprocessableEntity, response.ValidationError(verrs))
	} else {
		response.WriteJSON(w, http.StatusUnprocessableEntity, response.Invalid("body", err.Error()))
	}
	return false
}

// writeStorageError maps a storage error to a response. Validation-kind
// errors name the problem; everything else is a generic 500 so no driver
// detail reaches the client.
func writeStorageError(w http.ResponseWriter, msg, id string, err error) {
	attrs := []any{slog.String("error", err.Error())}
	if id != "" {
		attrs = append(attrs, slog.String("id", id))
	}

	var serr *storage.Error
	if storage.KindOf(err) == storage.KindValidation && errors.As(err, &serr) {
		slog.Warn(msg, attrs...)
		response.WriteJSON(w, http.StatusUnprocessableEntity, response.Invalid("query", serr.Err.Error()))
		return
	}

	slog.Error(msg, attrs...)
	response.WriteJSON(w, http.StatusInternalServerError, response.Detail(somethingWentWrong))
}
