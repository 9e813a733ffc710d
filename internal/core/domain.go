package core

import (
	"errors"
	"strings"
	"time"
)

const (
	CategoryFood          Category = "food"
	CategoryTransport     Category = "transport"
	CategoryEntertainment Category = "entertainment"
	CategoryShopping      Category = "shopping"
	CategoryUtilities     Category = "utilities"
	CategoryHealthcare    Category = "healthcare"
	CategoryOther         Category = "other"
)

type (
	// Category is one of the fixed expense categories.
	Category string

	Money struct {
		Cents int64
	}

	User struct {
		ID        string
		Name      string
		Email     string
		Salary    Money  // monthly salary
		Timezone  string // IANA name, e.g. "Asia/Kolkata"
		CreatedAt time.Time
	}

	Expense struct {
		ID          string
		UserID      string
		Category    Category
		Amount      Money
		Description string
		SpentAt     time.Time
		CreatedAt   time.Time
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyName        = errors.New("empty name")
	ErrInvalidEmail     = errors.New("invalid email")
	ErrInvalidSalary    = errors.New("invalid salary")
	ErrInvalidTimezone  = errors.New("invalid timezone")
)

// Categories lists every valid expense category.
func Categories() []Category {
	return []Category{
		CategoryFood,
		CategoryTransport,
		CategoryEntertainment,
		CategoryShopping,
		CategoryUtilities,
		CategoryHealthcare,
		CategoryOther,
	}
}

// ParseCategory normalizes and validates a category name.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, valid := range Categories() {
		if c == valid {
			return c, nil
		}
	}
	return "", ErrInvalidCategory
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (u User) Validate() error {
	if len(strings.TrimSpace(u.Name)) == 0 {
		return ErrEmptyName
	}
	if !strings.Contains(u.Email, "@") {
		return ErrInvalidEmail
	}
	if u.Salary.Cents < 0 {
		return ErrInvalidSalary
	}
	if u.Timezone != "" {
		if _, err := time.LoadLocation(u.Timezone); err != nil {
			return ErrInvalidTimezone
		}
	}
	return nil
}

// Location resolves the user's timezone, falling back to UTC.
func (u User) Location() *time.Location {
	if u.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (e Expense) Validate() error {
	if _, err := ParseCategory(string(e.Category)); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if e.SpentAt.IsZero() {
		return errors.New("spent_at cannot be zero")
	}
	return nil
}
