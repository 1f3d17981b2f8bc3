package user

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// CreateInput is the body of a create request.
type CreateInput struct {
	Name  string `json:"name" jsonschema:"display name of the user"`
	Email string `json:"email" jsonschema:"email address of the user"`
	Age   Age    `json:"age,omitempty" jsonschema:"age in years; omit, null or 0 for unknown"`
}

// Build constructs the record for a freshly allocated id.
func (in CreateInput) Build(id int64) User {
	return User{
		ID:    id,
		Name:  in.Name,
		Email: in.Email,
		Age:   in.Age.Value(),
	}
}

// Age is an optional age as sent by clients. It accepts a JSON number, a
// numeric string, null or an empty string. Zero counts as unknown.
type Age struct {
	v *int
}

// NewAge wraps v; a nil or zero v is unknown.
func NewAge(v *int) Age {
	if v == nil || *v == 0 {
		return Age{}
	}
	n := *v
	return Age{v: &n}
}

// Value returns the age, or nil when unknown.
func (a Age) Value() *int {
	if a.v == nil {
		return nil
	}
	n := *a.v
	return &n
}

// MarshalJSON implements json.Marshaler.
func (a Age) MarshalJSON() ([]byte, error) {
	if a.v == nil {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(*a.v)), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Age) UnmarshalJSON(data []byte) error {
	v, err := parseAge(data)
	if err != nil {
		return err
	}
	*a = NewAge(v)
	return nil
}

func parseAge(data []byte) (*int, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: age: %v", ErrInvalidInput, err)
	}

	switch v := raw.(type) {
	case float64:
		if v != float64(int(v)) {
			return nil, fmt.Errorf("%w: age must be an integer", ErrInvalidInput)
		}
		n := int(v)
		return &n, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("%w: age %q is not a number", ErrInvalidInput, v)
		}
		return &n, nil
	case bool:
		if !v {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("%w: unsupported age value %s", ErrInvalidInput, data)
}

// Patch is the shallow merge carried by an update request. A nil field was
// absent from the body and leaves the stored value untouched.
type Patch struct {
	Name  *string
	Email *string
	// Age is set when the body carried an "age" key; a nil AgeValue clears it.
	AgeSet   bool
	AgeValue *int
}

// ParsePatch decodes an update body. Keys other than name, email and age are
// ignored, including id.
func ParsePatch(data []byte) (Patch, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Patch{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var p Patch
	if raw, ok := fields["name"]; ok {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Patch{}, fmt.Errorf("%w: name: %v", ErrInvalidInput, err)
		}
		p.Name = &s
	}
	if raw, ok := fields["email"]; ok {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Patch{}, fmt.Errorf("%w: email: %v", ErrInvalidInput, err)
		}
		p.Email = &s
	}
	if raw, ok := fields["age"]; ok {
		v, err := parseAge(raw)
		if err != nil {
			return Patch{}, err
		}
		p.AgeSet = true
		p.AgeValue = v
	}
	return p, nil
}

// Apply merges p onto u and returns the result. The id is never touched.
func (p Patch) Apply(u User) User {
	out := u.Clone()
	if p.Name != nil {
		out.Name = *p.Name
	}
	if p.Email != nil {
		out.Email = *p.Email
	}
	if p.AgeSet {
		if p.AgeValue == nil {
			out.Age = nil
		} else {
			n := *p.AgeValue
			out.Age = &n
		}
	}
	return out
}
