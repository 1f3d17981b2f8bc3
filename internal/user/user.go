// Package user defines the User Record persisted by the record store and the
// typed inputs accepted by the create and update operations.
package user

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// Sentinel errors shared by the store, the HTTP layer and the MCP tools.
var (
	ErrNotFound     = errors.New("user: not found")
	ErrInvalidID    = errors.New("user: invalid id")
	ErrInvalidInput = errors.New("user: invalid input")
)

// User is the single persisted entity. Age is nil when unknown and is always
// serialized, as null in that case.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Age   *int   `json:"age"`
}

// UnmarshalJSON decodes a stored record. Age is read leniently: data files
// written by the form-based page hold ages as strings such as "25". An age
// that cannot be read as an integer decodes as unknown instead of failing
// the whole collection.
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	var aux struct {
		plain
		Age json.RawMessage `json:"age"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*u = User(aux.plain)
	u.Age = nil
	if age, err := parseAge(aux.Age); err == nil {
		u.Age = age
	}
	return nil
}

// Clone returns a copy of u that shares no memory with it.
func (u User) Clone() User {
	if u.Age != nil {
		age := *u.Age
		u.Age = &age
	}
	return u
}

// CloneAll deep-copies a collection. A nil input yields an empty, non-nil slice.
func CloneAll(users []User) []User {
	out := make([]User, len(users))
	for i, u := range users {
		out[i] = u.Clone()
	}
	return out
}

// ParseID parses a path parameter as a user id the way a lenient integer
// parser does: leading spaces and a sign are allowed and parsing stops at the
// first non-digit, so "1700000000000abc" is 1700000000000. A parameter with
// no leading digits, or one that overflows, is rejected with ErrInvalidID.
func ParseID(s string) (int64, error) {
	s = strings.TrimLeft(s, " \t\n\r")
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, ErrInvalidID
	}
	id, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0, ErrInvalidID
	}
	return id, nil
}

// IndexOf returns the position of the user with the given id, or -1.
func IndexOf(users []User, id int64) int {
	for i, u := range users {
		if u.ID == id {
			return i
		}
	}
	return -1
}

// IntPtr is a convenience for building optional ages.
func IntPtr(v int) *int { return &v }
