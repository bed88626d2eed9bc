package dal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Car defines a car record
type Car struct {
	ID    int    `json:"id"`
	Make  string `json:"make"`
	Model string `json:"model"`
	Seats Seats  `json:"seats"`
}

// Seats is a seat count. Stored data was never typed, so decoding is
// lenient: numbers and numeric strings keep their value, anything else
// (empty strings, words, fractions, booleans) decodes as 0. Callers that take
// user input reject 0 through validation.
type Seats int

// UnmarshalJSON implements json.Unmarshaler
func (s *Seats) UnmarshalJSON(data []byte) error {
	*s = 0

	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch raw := v.(type) {
	case float64:
		if raw == math.Trunc(raw) && math.Abs(raw) <= math.MaxInt32 {
			*s = Seats(raw)
		}
	case string:
		if n, err := ParseSeats(raw); err == nil {
			*s = n
		}
	}
	return nil
}

// ParseSeats coerces a textual seat count
func ParseSeats(raw string) (Seats, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("seats must be a number: %q", raw)
	}
	return Seats(n), nil
}

// Collection is the full persisted car inventory
type Collection struct {
	NextID int   `json:"next_id"`
	Cars   []Car `json:"cars"`
}

// UnmarshalJSON accepts both the envelope document and a bare array of cars.
func (c *Collection) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var cars []Car
		if err := json.Unmarshal(data, &cars); err != nil {
			return err
		}
		c.Cars = cars
		c.NextID = 0
		c.normalize()
		return nil
	}

	type envelope Collection
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	*c = Collection(env)
	c.normalize()
	return nil
}

// normalize keeps NextID ahead of every stored id.
func (c *Collection) normalize() {
	if c.Cars == nil {
		c.Cars = []Car{}
	}
	for _, car := range c.Cars {
		if car.ID >= c.NextID {
			c.NextID = car.ID + 1
		}
	}
	if c.NextID < 1 {
		c.NextID = 1
	}
}

// NewCollection returns an empty collection
func NewCollection() *Collection {
	return &Collection{NextID: 1, Cars: []Car{}}
}

// Len returns the number of cars
func (c *Collection) Len() int {
	return len(c.Cars)
}

// IndexOf returns the position of the first car with the given id, or -1.
func (c *Collection) IndexOf(id int) int {
	for i, car := range c.Cars {
		if car.ID == id {
			return i
		}
	}
	return -1
}

// FilterByMake returns the cars whose make equals makeName exactly.
func (c *Collection) FilterByMake(makeName string) []Car {
	matches := []Car{}
	for _, car := range c.Cars {
		if car.Make == makeName {
			matches = append(matches, car)
		}
	}
	return matches
}

// Append assigns the next id to car, stores it and returns the stored record.
func (c *Collection) Append(car Car) Car {
	c.normalize()
	car.ID = c.NextID
	c.NextID++
	c.Cars = append(c.Cars, car)
	return car
}

// RemoveAt deletes the car at position i and returns it.
func (c *Collection) RemoveAt(i int) Car {
	removed := c.Cars[i]
	c.Cars = append(c.Cars[:i], c.Cars[i+1:]...)
	return removed
}

// ReplaceAt overwrites the car at position i and returns the previous record.
func (c *Collection) ReplaceAt(i int, car Car) Car {
	previous := c.Cars[i]
	c.Cars[i] = car
	return previous
}
