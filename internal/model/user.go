package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Role is the fixed authorization tag carried by every user.
type Role uint8

const (
	RoleUnknown Role = iota
	RoleAdmin
	RoleTaskAdmin
	RoleEmployee
)

// ParseRole maps a wire or database value to a Role. "todo admin" is the
// legacy spelling of task-admin.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin, nil
	case "task-admin", "todo admin":
		return RoleTaskAdmin, nil
	case "employee":
		return RoleEmployee, nil
	default:
		return RoleUnknown, fmt.Errorf("unknown role %q", s)
	}
}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleTaskAdmin:
		return "task-admin"
	case RoleEmployee:
		return "employee"
	default:
		return "unknown"
	}
}

func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	role, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = role
	return nil
}

func (r Role) Value() (driver.Value, error) {
	if r == RoleUnknown {
		return nil, fmt.Errorf("cannot store unknown role")
	}
	return r.String(), nil
}

func (r *Role) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return r.UnmarshalText([]byte(v))
	case []byte:
		return r.UnmarshalText(v)
	default:
		return fmt.Errorf("unsupported role type %T", src)
	}
}

// User is an identity known to the task service. Accounts are managed
// elsewhere; the service only reads them.
type User struct {
	ID        int64  `json:"id" db:"id"`
	Email     string `json:"email" db:"email"`
	FirstName string `json:"first_name" db:"first_name"`
	LastName  string `json:"last_name" db:"last_name"`
	Role      Role   `json:"role" db:"role"`
	IsActive  bool   `json:"is_active" db:"is_active"`
	IsDeleted bool   `json:"is_deleted" db:"is_deleted"`
}

// FullName joins first and last name the way responses display users.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// Usable reports whether the account may act or be assigned work.
func (u *User) Usable() bool {
	return u.IsActive && !u.IsDeleted
}
