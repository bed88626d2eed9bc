package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/nekruzvatanshoev/carstore/pkg/carserv/dal"
	"github.com/nekruzvatanshoev/carstore/pkg/carserv/inventory"
	"github.com/nekruzvatanshoev/carstore/pkg/carserv/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	*httptest.Server
	store *dal.FileStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := dal.NewFileStore(filepath.Join(t.TempDir(), "cars.json"), logger.Discard())
	server := newHTTPServer(inventory.NewService(store), logger.Discard(), "*")

	ts := httptest.NewServer(server.router())
	t.Cleanup(ts.Close)

	return &testServer{Server: ts, store: store}
}

func (ts *testServer) do(t *testing.T, method, path, contentType, body string) (*http.Response, string) {
	t.Helper()

	req, err := http.NewRequest(method, ts.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(respBody)
}

func (ts *testServer) create(t *testing.T, body string) string {
	t.Helper()
	resp, msg := ts.do(t, http.MethodPost, "/cars", "application/json", body)
	require.Equal(t, http.StatusOK, resp.StatusCode, msg)
	return msg
}

func (ts *testServer) list(t *testing.T) []dal.Car {
	t.Helper()
	resp, body := ts.do(t, http.MethodGet, "/api", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	if body == MsgNoCars {
		return nil
	}
	var cars []dal.Car
	require.NoError(t, json.Unmarshal([]byte(body), &cars), body)
	return cars
}

func TestListCars(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, http.MethodGet, "/api", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, MsgNoCars, body)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")

	ts.create(t, `{"make":"Toyota","model":"Corolla","seats":5}`)

	resp, body = ts.do(t, http.MethodGet, "/api", "", "")
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.JSONEq(t, `[{"id":1,"make":"Toyota","model":"Corolla","seats":5}]`, body)
}

func TestSearchCars(t *testing.T) {
	ts := newTestServer(t)

	_, body := ts.do(t, http.MethodGet, "/cars/Toyota", "", "")
	assert.Equal(t, MsgNoCars, body)

	ts.create(t, `{"make":"Toyota","model":"Corolla","seats":5}`)
	ts.create(t, `{"make":"Ford","model":"Focus","seats":5}`)
	ts.create(t, `{"make":"Toyota","model":"Yaris","seats":4}`)
	ts.create(t, `{"make":"Land_Rover","model":"Defender","seats":7}`)

	tests := []struct {
		name     string
		path     string
		expected string
		isJSON   bool
	}{
		{
			name:     "ExactMake",
			path:     "/cars/Toyota",
			expected: `[{"id":1,"make":"Toyota","model":"Corolla","seats":5},{"id":3,"make":"Toyota","model":"Yaris","seats":4}]`,
			isJSON:   true,
		},
		{
			name:     "UnderscoreMake",
			path:     "/cars/Land_Rover",
			expected: `[{"id":4,"make":"Land Rover","model":"Defender","seats":7}]`,
			isJSON:   true,
		},
		{
			name:     "CaseSensitive",
			path:     "/cars/toyota",
			expected: "No car found by the make of toyota",
		},
		{
			name:     "UnknownMake",
			path:     "/cars/Alfa_Romeo",
			expected: "No car found by the make of Alfa Romeo",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := ts.do(t, http.MethodGet, tc.path, "", "")
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			if tc.isJSON {
				assert.JSONEq(t, tc.expected, body)
			} else {
				assert.Equal(t, tc.expected, body)
			}
		})
	}
}

func TestCreateCar(t *testing.T) {
	ts := newTestServer(t)

	msg := ts.create(t, `{"make":"Toyota","model":"Corolla","seats":5}`)
	assert.Equal(t, "Successfully added the Toyota - Corolla", msg)

	msg = ts.create(t, `{"make":"Land_Rover","model":"Range_Rover","seats":"5"}`)
	assert.Equal(t, "Successfully added the Land Rover - Range Rover", msg)

	form := url.Values{"make": {"Kia"}, "model": {"Rio"}, "seats": {"4"}}.Encode()
	resp, msg := ts.do(t, http.MethodPost, "/cars", "application/x-www-form-urlencoded", form)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Successfully added the Kia - Rio", msg)

	cars := ts.list(t)
	require.Len(t, cars, 3)
	assert.Equal(t, dal.Car{ID: 1, Make: "Toyota", Model: "Corolla", Seats: 5}, cars[0])
	assert.Equal(t, dal.Car{ID: 2, Make: "Land Rover", Model: "Range Rover", Seats: 5}, cars[1])
	assert.Equal(t, dal.Car{ID: 3, Make: "Kia", Model: "Rio", Seats: 4}, cars[2])
}

func TestCreateCarRejectsInvalidBody(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{name: "MalformedJSON", contentType: "application/json", body: `{"make":`},
		{name: "MissingMake", contentType: "application/json", body: `{"model":"Corolla","seats":5}`},
		{name: "MissingSeats", contentType: "application/json", body: `{"make":"Toyota","model":"Corolla"}`},
		{name: "TextSeats", contentType: "application/json", body: `{"make":"Toyota","model":"Corolla","seats":"five"}`},
		{name: "FormTextSeats", contentType: "application/x-www-form-urlencoded", body: "make=Toyota&model=Corolla&seats=five"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := ts.do(t, http.MethodPost, "/cars", tc.contentType, tc.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var errResp ErrorResponse
			require.NoError(t, json.Unmarshal([]byte(body), &errResp))
			assert.NotEmpty(t, errResp.Message)
		})
	}

	assert.Empty(t, ts.list(t))
}

func TestDeleteCar(t *testing.T) {
	ts := newTestServer(t)
	ts.create(t, `{"make":"Toyota","model":"Corolla","seats":5}`)
	ts.create(t, `{"make":"Ford","model":"Focus","seats":5}`)

	resp, msg := ts.do(t, http.MethodDelete, "/cars/1", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Successfully Deleted car ID: 1, Make:Toyota, Model:Corolla, Seats:5", msg)

	cars := ts.list(t)
	require.Len(t, cars, 1)
	assert.Equal(t, 2, cars[0].ID)

	resp, msg = ts.do(t, http.MethodDelete, "/cars/1", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "The Car with ID: 1 does not exist", msg)
	assert.Len(t, ts.list(t), 1)
}

func TestUpdateCarFromPath(t *testing.T) {
	ts := newTestServer(t)
	ts.create(t, `{"make":"Toyota","model":"Corolla","seats":5}`)

	resp, msg := ts.do(t, http.MethodPut, "/cars/1&Land_Rover&Defender&7", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Successfully Updated car \nFrom: ID: 1, Make:Toyota, Model:Corolla, Seats:5 \nTo: ID: 1, Make:Land Rover, Model:Defender, Seats:7", msg)
	assert.Equal(t, []dal.Car{{ID: 1, Make: "Land Rover", Model: "Defender", Seats: 7}}, ts.list(t))

	_, msg = ts.do(t, http.MethodPut, "/cars/9&Ford&Focus&5", "", "")
	assert.Equal(t, "The Car with ID: 9 was not found on the System", msg)
	assert.Equal(t, []dal.Car{{ID: 1, Make: "Land Rover", Model: "Defender", Seats: 7}}, ts.list(t))

	resp, _ = ts.do(t, http.MethodPut, "/cars/1&Ford&Focus&many", "", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateCarNotFoundUsesLeadingInteger(t *testing.T) {
	ts := newTestServer(t)
	ts.create(t, `{"make":"Toyota","model":"Corolla","seats":5}`)

	tests := []struct {
		name     string
		path     string
		expected string
	}{
		{name: "PaddedID", path: "/cars/09&Ford&Focus&5", expected: "The Car with ID: 9 was not found on the System"},
		{name: "TrailingText", path: "/cars/7x&Ford&Focus&5", expected: "The Car with ID: 7 was not found on the System"},
		{name: "NotANumber", path: "/cars/abc&Ford&Focus&5", expected: "The Car with ID: NaN was not found on the System"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, msg := ts.do(t, http.MethodPut, tc.path, "", "")
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, tc.expected, msg)
		})
	}

	_, msg := ts.do(t, http.MethodPut, "/cars/1abc&Toyota&Camry&5", "", "")
	assert.Equal(t, "Successfully Updated car \nFrom: ID: 1, Make:Toyota, Model:Corolla, Seats:5 \nTo: ID: 1, Make:Toyota, Model:Camry, Seats:5", msg)
}

func TestLegacyUntypedSeatsStayReachable(t *testing.T) {
	ts := newTestServer(t)
	legacy := `[{"id":1,"make":"Toyota","model":"Corolla","seats":"5"},{"id":2,"make":"VW","model":"Polo","seats":""}]`
	require.NoError(t, os.WriteFile(ts.store.Path(), []byte(legacy), 0o644))

	resp, body := ts.do(t, http.MethodGet, "/api", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[{"id":1,"make":"Toyota","model":"Corolla","seats":5},{"id":2,"make":"VW","model":"Polo","seats":0}]`, body)

	resp, body = ts.do(t, http.MethodGet, "/cars/Toyota", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[{"id":1,"make":"Toyota","model":"Corolla","seats":5}]`, body)

	resp, msg := ts.do(t, http.MethodDelete, "/cars/2", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Successfully Deleted car ID: 2, Make:VW, Model:Polo, Seats:0", msg)
	assert.Equal(t, []dal.Car{{ID: 1, Make: "Toyota", Model: "Corolla", Seats: 5}}, ts.list(t))
}

func TestUpdateCarFromBody(t *testing.T) {
	ts := newTestServer(t)
	ts.create(t, `{"make":"Toyota","model":"Corolla","seats":5}`)

	resp, msg := ts.do(t, http.MethodPut, "/cars/1", "application/json", `{"make":"Toyota","model":"Camry","seats":5}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Successfully Updated car \nFrom: ID: 1, Make:Toyota, Model:Corolla, Seats:5 \nTo: ID: 1, Make:Toyota, Model:Camry, Seats:5", msg)

	_, msg = ts.do(t, http.MethodPut, "/cars/2", "application/json", `{"make":"Toyota","model":"Camry","seats":5}`)
	assert.Equal(t, "The Car with ID: 2 was not found on the System", msg)

	resp, _ = ts.do(t, http.MethodPut, "/cars/1", "application/json", `{"make":"","model":"Camry","seats":5}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Camry", ts.list(t)[0].Model)
}

func TestCorruptStoreReturnsServerError(t *testing.T) {
	ts := newTestServer(t)
	require.NoError(t, os.WriteFile(ts.store.Path(), []byte("not json"), 0o644))

	resp, body := ts.do(t, http.MethodGet, "/api", "", "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `{"message":"car store is corrupt"}`, body)
}

func TestConcurrentCreates(t *testing.T) {
	ts := newTestServer(t)

	const n = 15
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := http.Post(ts.URL+"/cars", "application/json", strings.NewReader(`{"make":"Toyota","model":"Corolla","seats":5}`))
			if assert.NoError(t, err) {
				resp.Body.Close()
				assert.Equal(t, http.StatusOK, resp.StatusCode)
			}
		}()
	}
	wg.Wait()

	c, err := ts.store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, n, c.Len())
}

func TestMiddleware(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := ts.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(requestIDHeader))

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api", nil)
	require.NoError(t, err)
	req.Header.Set(requestIDHeader, "abc-123")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "abc-123", resp.Header.Get(requestIDHeader))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	for name, value := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "SAMEORIGIN",
		"Referrer-Policy":        "no-referrer",
		"X-DNS-Prefetch-Control": "off",
	} {
		assert.Equal(t, value, resp.Header.Get(name), name)
	}
	assert.Contains(t, resp.Header.Get("Content-Security-Policy"), "default-src 'self'")

	resp, _ = ts.do(t, http.MethodGet, "/nowhere", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	resp, _ = ts.do(t, http.MethodOptions, "/cars/1", "", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), http.MethodDelete)
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), http.MethodPut)
}
