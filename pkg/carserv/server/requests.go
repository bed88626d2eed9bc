package server

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"

	"github.com/nekruzvatanshoev/carstore/pkg/carserv/dal"
	"github.com/nekruzvatanshoev/carstore/pkg/carserv/inventory"
)

const maxBodyBytes = 1 << 20

// CarRequest is the body of POST /cars and PUT /cars/{id}
type CarRequest struct {
	Make  string    `json:"make"`
	Model string    `json:"model"`
	Seats dal.Seats `json:"seats"`
}

// ErrorResponse is written for rejected requests and server failures
type ErrorResponse struct {
	Message string `json:"message"`
}

// HealthResponse is written by /healthz
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func (req CarRequest) toInput() inventory.CarInput {
	return inventory.CarInput{
		Make:  req.Make,
		Model: req.Model,
		Seats: req.Seats,
	}
}

// decodeCarRequest accepts either a JSON body or a urlencoded form.
func decodeCarRequest(w http.ResponseWriter, r *http.Request) (CarRequest, error) {
	var req CarRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return req, fmt.Errorf("invalid form: %w", err)
		}
		req.Make = r.PostForm.Get("make")
		req.Model = r.PostForm.Get("model")
		if raw := r.PostForm.Get("seats"); raw != "" {
			seats, err := dal.ParseSeats(raw)
			if err != nil {
				return req, err
			}
			req.Seats = seats
		}
	default:
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, fmt.Errorf("invalid JSON: %w", err)
		}
	}
	return req, nil
}
