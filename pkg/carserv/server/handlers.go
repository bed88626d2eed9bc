package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/nekruzvatanshoev/carstore/pkg/carserv/dal"
	"github.com/nekruzvatanshoev/carstore/pkg/carserv/inventory"
)

// MsgNoCars is the body returned when the inventory is empty.
const MsgNoCars = "No Cars currently saved"

// ListCars handles GET /api
func (h *httpServer) ListCars(w http.ResponseWriter, r *http.Request) {
	cars, err := h.cars.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if len(cars) == 0 {
		writeText(w, MsgNoCars)
		return
	}
	h.writeJSON(w, http.StatusOK, cars)
}

// SearchCars handles GET /cars/{make}
func (h *httpServer) SearchCars(w http.ResponseWriter, r *http.Request) {
	makeName := mux.Vars(r)["make"]

	cars, err := h.cars.SearchByMake(r.Context(), makeName)
	switch {
	case errors.Is(err, inventory.ErrEmpty):
		writeText(w, MsgNoCars)
	case err != nil:
		h.writeError(w, r, err)
	case len(cars) == 0:
		writeText(w, fmt.Sprintf("No car found by the make of %s", inventory.NormalizeText(makeName)))
	default:
		h.writeJSON(w, http.StatusOK, cars)
	}
}

// CreateCar handles POST /cars
func (h *httpServer) CreateCar(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCarRequest(w, r)
	if err != nil {
		h.writeBadRequest(w, err)
		return
	}

	car, err := h.cars.Create(r.Context(), req.toInput())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.log.Info("car added", "id", car.ID, "make", car.Make, "model", car.Model)
	writeText(w, fmt.Sprintf("Successfully added the %s - %s", car.Make, car.Model))
}

// DeleteCar handles DELETE /cars/{id}
func (h *httpServer) DeleteCar(w http.ResponseWriter, r *http.Request) {
	rawID := mux.Vars(r)["id"]

	car, err := h.cars.Delete(r.Context(), rawID)
	switch {
	case errors.Is(err, inventory.ErrNotFound):
		writeText(w, fmt.Sprintf("The Car with ID: %s does not exist", rawID))
	case err != nil:
		h.writeError(w, r, err)
	default:
		h.log.Info("car deleted", "id", car.ID)
		writeText(w, fmt.Sprintf("Successfully Deleted car ID: %s, Make:%s, Model:%s, Seats:%d",
			rawID, car.Make, car.Model, car.Seats))
	}
}

// UpdateCarFromPath handles PUT /cars/{id}&{make}&{model}&{seats}
func (h *httpServer) UpdateCarFromPath(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	seats, err := dal.ParseSeats(vars["seats"])
	if err != nil {
		h.writeBadRequest(w, err)
		return
	}

	h.update(w, r, vars["id"], inventory.CarInput{
		Make:  vars["make"],
		Model: vars["model"],
		Seats: seats,
	})
}

// UpdateCar handles PUT /cars/{id} with the new fields in the body
func (h *httpServer) UpdateCar(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCarRequest(w, r)
	if err != nil {
		h.writeBadRequest(w, err)
		return
	}
	h.update(w, r, mux.Vars(r)["id"], req.toInput())
}

func (h *httpServer) update(w http.ResponseWriter, r *http.Request, rawID string, in inventory.CarInput) {
	before, after, err := h.cars.Update(r.Context(), rawID, in)
	switch {
	case errors.Is(err, inventory.ErrNotFound):
		id := "NaN"
		if n, ok := inventory.ParseLeadingInt(rawID); ok {
			id = strconv.Itoa(n)
		}
		writeText(w, fmt.Sprintf("The Car with ID: %s was not found on the System", id))
	case err != nil:
		h.writeError(w, r, err)
	default:
		h.log.Info("car updated", "id", after.ID)
		writeText(w, fmt.Sprintf("Successfully Updated car \nFrom: %s \nTo: %s", describe(before), describe(after)))
	}
}

// Healthz handles GET /healthz
func (h *httpServer) Healthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func describe(car dal.Car) string {
	return fmt.Sprintf("ID: %d, Make:%s, Model:%s, Seats:%d", car.ID, car.Make, car.Model, car.Seats)
}

func writeText(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(msg))
}

func (h *httpServer) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("encode response failed", "error", err)
	}
}

func (h *httpServer) writeBadRequest(w http.ResponseWriter, err error) {
	h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: err.Error()})
}

// writeError maps service errors to a status code. Validation failures are
// the caller's fault, everything else is logged as a server error.
func (h *httpServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, inventory.ErrInvalidInput) {
		h.writeBadRequest(w, err)
		return
	}

	h.log.Error("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", r.Header.Get(requestIDHeader),
		"error", err,
	)
	msg := "internal server error"
	if errors.Is(err, dal.ErrCorruptStore) {
		msg = "car store is corrupt"
	}
	h.writeJSON(w, http.StatusInternalServerError, ErrorResponse{Message: msg})
}
