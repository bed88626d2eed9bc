// Package inventory implements the car inventory operations on top of a dal.CarStore.
// Each operation is one transaction against the store: load, work in memory, persist.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/nekruzvatanshoev/carstore/pkg/carserv/dal"
)

var (
	// ErrEmpty is returned by SearchByMake when no cars are saved at all.
	ErrEmpty = errors.New("no cars currently saved")
	// ErrNotFound is returned when no car matches the requested id.
	ErrNotFound = errors.New("car not found")
	// ErrInvalidInput wraps validation failures of a CarInput.
	ErrInvalidInput = errors.New("invalid car")
)

var validate = validator.New()

// CarInput carries the user supplied fields of a car.
type CarInput struct {
	Make  string    `validate:"required"`
	Model string    `validate:"required"`
	Seats dal.Seats `validate:"min=1,max=100"`
}

// Validate checks that make and model are present and seats is a sane count.
func (in CarInput) Validate() error {
	if err := validate.Struct(in); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			fields := make([]string, 0, len(validationErrors))
			for _, fe := range validationErrors {
				fields = append(fields, fmt.Sprintf("%s failed on %s", strings.ToLower(fe.Field()), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// Service runs inventory operations
type Service struct {
	store dal.CarStore
}

// NewService returns a Service backed by store
func NewService(store dal.CarStore) *Service {
	return &Service{store: store}
}

// List returns every saved car in storage order.
func (s *Service) List(ctx context.Context) ([]dal.Car, error) {
	var cars []dal.Car
	err := s.store.View(ctx, func(c *dal.Collection) error {
		cars = c.Cars
		return nil
	})
	return cars, err
}

// SearchByMake returns the cars whose make exactly equals makeName after
// normalization. The result is empty, not an error, when nothing matches.
func (s *Service) SearchByMake(ctx context.Context, makeName string) ([]dal.Car, error) {
	makeName = NormalizeText(makeName)

	var matches []dal.Car
	err := s.store.View(ctx, func(c *dal.Collection) error {
		if c.Len() == 0 {
			return ErrEmpty
		}
		matches = c.FilterByMake(makeName)
		return nil
	})
	return matches, err
}

// Create stores a new car with the next free id.
func (s *Service) Create(ctx context.Context, in CarInput) (dal.Car, error) {
	if err := in.Validate(); err != nil {
		return dal.Car{}, err
	}

	var created dal.Car
	err := s.store.Update(ctx, func(c *dal.Collection) error {
		created = c.Append(dal.Car{
			Make:  NormalizeText(in.Make),
			Model: NormalizeText(in.Model),
			Seats: in.Seats,
		})
		return nil
	})
	return created, err
}

// Delete removes the first car whose id loosely equals rawID.
func (s *Service) Delete(ctx context.Context, rawID string) (dal.Car, error) {
	var deleted dal.Car
	err := s.store.Update(ctx, func(c *dal.Collection) error {
		i := indexOfRawID(c, rawID)
		if i < 0 {
			return ErrNotFound
		}
		deleted = c.RemoveAt(i)
		return nil
	})
	return deleted, err
}

// Update replaces the car whose id equals the leading integer of rawID
// (see ParseLeadingInt) and returns the record before and after the change.
func (s *Service) Update(ctx context.Context, rawID string, in CarInput) (before, after dal.Car, err error) {
	if err = in.Validate(); err != nil {
		return before, after, err
	}

	err = s.store.Update(ctx, func(c *dal.Collection) error {
		i := -1
		if id, ok := ParseLeadingInt(rawID); ok {
			i = c.IndexOf(id)
		}
		if i < 0 {
			return ErrNotFound
		}
		after = dal.Car{
			ID:    c.Cars[i].ID,
			Make:  NormalizeText(in.Make),
			Model: NormalizeText(in.Model),
			Seats: in.Seats,
		}
		before = c.ReplaceAt(i, after)
		return nil
	})
	return before, after, err
}

// NormalizeText turns the first underscore into a space, so "Land_Rover"
// becomes "Land Rover". Later underscores are left as they are.
func NormalizeText(s string) string {
	return strings.Replace(s, "_", " ", 1)
}

// ParseID reads a path id the loose way: surrounding spaces are ignored and
// any numeric spelling of a whole number is accepted ("3", "03", "3.0").
func ParseID(raw string) (int, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}

// ParseLeadingInt reads the integer at the start of raw after leading
// whitespace, ignoring whatever follows: "12abc" is 12, "1.9" is 1 and
// "abc" is not a number.
func ParseLeadingInt(raw string) (int, bool) {
	s := strings.TrimLeft(raw, " \t\n\r\v\f")
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.ParseInt(s[:end], 10, 32)
	if err != nil {
		return 0, false
	}
	return int(n), true
}

func indexOfRawID(c *dal.Collection, rawID string) int {
	id, ok := ParseID(rawID)
	if !ok {
		return -1
	}
	return c.IndexOf(id)
}
