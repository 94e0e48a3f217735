// Package types holds all shared data structures (models) used across
// the application. Keeping them in one place prevents import cycles:
// handlers, storage, and utils can all import types without depending
// on each other.
package types

// Student is a stored student record.
//
// The identifier is stored as the document key ("_id" in MongoDB) and is
// exposed to API clients as "student_id". Every other field uses the same
// name in JSON and BSON so a sort field from the query string can be
// handed to either store unchanged.
type Student struct {
	ID      string `json:"student_id" bson:"_id"`
	Name    string `json:"name"              bson:"name"`
	Email   string `json:"email,omitempty"   bson:"email,omitempty"`
	Phone   string `json:"phone,omitempty"   bson:"phone,omitempty"`
	Address string `json:"address,omitempty" bson:"address,omitempty"`
	Grade   string `json:"grade"             bson:"grade"`
	Age     int    `json:"age,omitempty"     bson:"age,omitempty"`
}

// CreateStudent is the body of POST /students.
//
// validate:"..." tags are checked by the go-playground/validator package.
// "required" means the field must be present and non-empty.
type CreateStudent struct {
	Name    string `json:"name"    validate:"required,min=1,max=100"`
	Email   string `json:"email"   validate:"omitempty,email"`
	Phone   string `json:"phone"   validate:"omitempty,min=1,max=20"`
	Address string `json:"address" validate:"omitempty,max=200"`
	Grade   string `json:"grade"   validate:"required,min=1,max=10"`
	Age     int    `json:"age"     validate:"omitempty,min=1,max=150"`
}

// Student builds the record to insert under the given identifier.
func (c CreateStudent) Student(id string) Student {
	return Student{
		ID:      id,
		Name:    c.Name,
		Email:   c.Email,
		Phone:   c.Phone,
		Address: c.Address,
		Grade:   c.Grade,
		Age:     c.Age,
	}
}

// UpdateStudent is the body of PATCH /students/{id}.
//
// Every field is a pointer: nil means "not sent, leave it alone". The
// omitnil validation tag skips rules for nil fields only, so a field that
// is sent empty is still checked.
type UpdateStudent struct {
	Name    *string `json:"name"    validate:"omitnil,min=1,max=100"`
	Email   *string `json:"email"   validate:"omitnil,email"`
	Phone   *string `json:"phone"   validate:"omitnil,min=1,max=20"`
	Address *string `json:"address" validate:"omitnil,max=200"`
	Grade   *string `json:"grade"   validate:"omitnil,min=1,max=10"`
	Age     *int    `json:"age"     validate:"omitnil,min=1,max=150"`
}

// Fields returns the fields that were sent, keyed by their stored name.
// The map is empty when the update carries nothing to merge.
func (u UpdateStudent) Fields() map[string]any {
	fields := make(map[string]any)

	setString := func(key string, v *string) {
		if v != nil {
			fields[key] = *v
		}
	}

	setString("name", u.Name)
	setString("email", u.Email)
	setString("phone", u.Phone)
	setString("address", u.Address)
	setString("grade", u.Grade)
	if u.Age != nil {
		fields["age"] = *u.Age
	}

	return fields
}

// ListQuery holds the query string of GET /students/.
//
// Order is nil only when the key is absent; "?order=" gives a pointer to
// "" so the length rule still applies.
type ListQuery struct {
	SortBy string  `json:"sort_by" validate:"omitempty,max=64"`
	Order  *string `json:"order"   validate:"omitnil,min=3,max=4"`
}

// OrderValue returns Order, or "" when it was not sent.
func (q ListQuery) OrderValue() string {
	if q.Order == nil {
		return ""
	}
	return *q.Order
}
