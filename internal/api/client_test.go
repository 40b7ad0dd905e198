package api_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/Joseda-hg/lazyticket/internal/api"
	"github.com/Joseda-hg/lazyticket/internal/model"
	"github.com/stretchr/testify/require"
)

// fakeBackend serves the routes the client uses and records the last
// request it saw.
type fakeBackend struct {
	mu         sync.Mutex
	lastAuth   string
	lastBody   map[string]any
	deleteCode int
	image      string
	url        string
}

func newFakeBackend(t *testing.T) (*fakeBackend, *api.Client) {
	t.Helper()
	fb := &fakeBackend{deleteCode: http.StatusOK}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		fb.record(r)
		if fb.body()["password"] != "secret" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"msg": "Niepoprawne dane"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"access_token": "tok-1", "name": "Anna", "surname": "Nowak"})
	})
	mux.HandleFunc("POST /auth/register", func(w http.ResponseWriter, r *http.Request) {
		fb.record(r)
		if fb.body()["email"] == "taken@example.com" {
			writeJSON(w, http.StatusConflict, map[string]string{"msg": "user exists"})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"msg": "ok"})
	})
	mux.HandleFunc("POST /auth/register_token", func(w http.ResponseWriter, r *http.Request) {
		fb.record(r)
		writeJSON(w, http.StatusOK, map[string]string{"msg": "Token updated"})
	})
	mux.HandleFunc("GET /tickets", func(w http.ResponseWriter, r *http.Request) {
		fb.record(r)
		writeJSON(w, http.StatusOK, []map[string]any{
			{"id": 1, "date": "2024-01-01", "time": "10:00:00", "vehicle_number": "ABC123", "location": "Warsaw", "image_base64": nil},
			{"id": 2, "date": "2024-02-02", "time": "11:00:00", "vehicle_number": "XYZ999", "location": "Krakow"},
		})
	})
	mux.HandleFunc("GET /ticket/{id}", func(w http.ResponseWriter, r *http.Request) {
		fb.record(r)
		if r.PathValue("id") != "1" {
			writeJSON(w, http.StatusNotFound, map[string]string{"msg": "Ticket not found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": 1, "date": "2024-01-01", "time": "10:00:00", "vehicle_number": "ABC123", "location": "Warsaw"})
	})
	mux.HandleFunc("GET /ticket/{id}/image", func(w http.ResponseWriter, r *http.Request) {
		fb.record(r)
		if fb.image == "" {
			writeJSON(w, http.StatusNotFound, map[string]string{"msg": "Image not found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"image_base64": fb.image})
	})
	mux.HandleFunc("POST /ticket", func(w http.ResponseWriter, r *http.Request) {
		fb.record(r)
		writeJSON(w, http.StatusCreated, map[string]any{"msg": "Ticket uploaded", "id": 17})
	})
	mux.HandleFunc("DELETE /ticket/{id}", func(w http.ResponseWriter, r *http.Request) {
		fb.record(r)
		if fb.deleteCode == http.StatusNoContent {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, fb.deleteCode, map[string]string{"msg": "deleted"})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	fb.url = server.URL
	return fb, api.NewClient(server.URL, api.WithHTTPClient(server.Client()))
}

func (fb *fakeBackend) record(r *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.lastAuth = r.Header.Get("Authorization")
	fb.lastBody = nil
	if r.Body != nil && r.ContentLength != 0 {
		body := map[string]any{}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			fb.lastBody = body
		}
	}
}

func (fb *fakeBackend) body() map[string]any {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.lastBody
}

func (fb *fakeBackend) auth() string {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.lastAuth
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func TestLoginStoresToken(t *testing.T) {
	fb, client := newFakeBackend(t)

	result, err := client.Login(context.Background(), api.Credentials{Email: " anna@example.com ", Password: "secret"})

	require.NoError(t, err)
	require.Equal(t, "tok-1", result.AccessToken)
	require.Equal(t, "Anna", result.Name)
	require.Equal(t, "tok-1", client.Token())
	require.Equal(t, "anna@example.com", fb.body()["email"])
	require.Empty(t, fb.auth())
}

func TestLoginRejected(t *testing.T) {
	_, client := newFakeBackend(t)

	_, err := client.Login(context.Background(), api.Credentials{Email: "anna@example.com", Password: "wrong"})

	require.ErrorIs(t, err, api.ErrUnauthorized)
	var apiErr *api.Error
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, "Niepoprawne dane", apiErr.Message)
	require.Empty(t, client.Token())
}

func TestLoginRequiresFields(t *testing.T) {
	_, client := newFakeBackend(t)

	_, err := client.Login(context.Background(), api.Credentials{Email: "  "})

	require.ErrorIs(t, err, api.ErrValidation)
	require.ErrorContains(t, err, "email is required")
}

func TestRegister(t *testing.T) {
	fb, client := newFakeBackend(t)

	err := client.Register(context.Background(), api.RegisterInput{
		Name: "Anna", Surname: "Nowak", Email: "anna@example.com", Password: "secret", Confirm: "secret",
	})

	require.NoError(t, err)
	require.Equal(t, "Nowak", fb.body()["surname"])
	require.NotContains(t, fb.body(), "Confirm")
}

func TestRegisterPasswordMismatch(t *testing.T) {
	_, client := newFakeBackend(t)

	err := client.Register(context.Background(), api.RegisterInput{
		Name: "Anna", Surname: "Nowak", Email: "anna@example.com", Password: "secret", Confirm: "other",
	})

	require.ErrorIs(t, err, api.ErrValidation)
	require.ErrorContains(t, err, "passwords do not match")
}

func TestRegisterConflict(t *testing.T) {
	_, client := newFakeBackend(t)

	err := client.Register(context.Background(), api.RegisterInput{
		Name: "Anna", Surname: "Nowak", Email: "taken@example.com", Password: "secret", Confirm: "secret",
	})

	require.ErrorContains(t, err, "user exists")
}

func TestListTickets(t *testing.T) {
	fb, client := newFakeBackend(t)
	client.SetToken("tok-9")

	got, err := client.ListTickets(context.Background())

	require.NoError(t, err)
	require.Equal(t, "Bearer tok-9", fb.auth())
	require.Equal(t, []model.Ticket{
		{ID: 1, Date: "2024-01-01", Time: "10:00", LicensePlate: "ABC123", Location: "Warsaw"},
		{ID: 2, Date: "2024-02-02", Time: "11:00", LicensePlate: "XYZ999", Location: "Krakow"},
	}, got)
}

func TestWithTokenAuthenticatesFirstCall(t *testing.T) {
	fb, _ := newFakeBackend(t)
	client := api.NewClient(fb.url, api.WithToken("saved-token"))

	require.Equal(t, "saved-token", client.Token())
	_, err := client.ListTickets(context.Background())

	require.NoError(t, err)
	require.Equal(t, "Bearer saved-token", fb.auth())

	client.SetToken("")
	require.Empty(t, client.Token())
}

func TestGetTicket(t *testing.T) {
	_, client := newFakeBackend(t)

	got, err := client.GetTicket(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, "ABC123", got.LicensePlate)
	require.Nil(t, got.Image)

	_, err = client.GetTicket(context.Background(), 5)
	require.ErrorIs(t, err, api.ErrNotFound)
}

func TestGetTicketImage(t *testing.T) {
	fb, client := newFakeBackend(t)

	_, err := client.GetTicketImage(context.Background(), 1)
	require.ErrorIs(t, err, api.ErrNoImage)

	fb.image = base64.StdEncoding.EncodeToString([]byte("jpeg-bytes"))
	data, err := client.GetTicketImage(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, []byte("jpeg-bytes"), data)
}

func TestCreateTicket(t *testing.T) {
	fb, client := newFakeBackend(t)

	id, err := client.CreateTicket(context.Background(), api.NewTicket{
		Date: "2024-05-01", Time: "09:15", LicensePlate: " WX 1234 ", Location: "Gdansk", Image: []byte{0xff, 0xd8},
	})

	require.NoError(t, err)
	require.Equal(t, int64(17), id)
	require.Equal(t, "WX 1234", fb.body()["vehicle_number"])
	require.Equal(t, false, fb.body()["notified"])
	require.Equal(t, base64.StdEncoding.EncodeToString([]byte{0xff, 0xd8}), fb.body()["image_base64"])
	require.NotEmpty(t, fb.body()["uploaded_at"])
	require.NotContains(t, fb.body(), "id")
}

func TestCreateTicketWithoutImage(t *testing.T) {
	fb, client := newFakeBackend(t)

	_, err := client.CreateTicket(context.Background(), api.NewTicket{
		Date: "2024-05-01", Time: "09:15", LicensePlate: "WX1234", Location: "Gdansk",
	})

	require.NoError(t, err)
	require.NotContains(t, fb.body(), "image_base64")
}

func TestCreateTicketValidation(t *testing.T) {
	_, client := newFakeBackend(t)

	tests := []struct {
		name  string
		input api.NewTicket
		want  string
	}{
		{name: "missing location", input: api.NewTicket{Date: "2024-05-01", Time: "09:15", LicensePlate: "A"}, want: "location is required"},
		{name: "bad date", input: api.NewTicket{Date: "01.05.2024", Time: "09:15", LicensePlate: "A", Location: "B"}, want: "date must look like YYYY-MM-DD"},
		{name: "bad time", input: api.NewTicket{Date: "2024-05-01", Time: "9am", LicensePlate: "A", Location: "B"}, want: "time must look like HH:MM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.CreateTicket(context.Background(), tt.input)
			require.ErrorIs(t, err, api.ErrValidation)
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestDeleteTicket(t *testing.T) {
	fb, client := newFakeBackend(t)

	require.NoError(t, client.DeleteTicket(context.Background(), 1))

	fb.deleteCode = http.StatusNoContent
	require.NoError(t, client.DeleteTicket(context.Background(), 1))

	fb.deleteCode = http.StatusNotFound
	require.ErrorIs(t, client.DeleteTicket(context.Background(), 1), api.ErrNotFound)
}

func TestRegisterPushToken(t *testing.T) {
	fb, client := newFakeBackend(t)
	client.SetToken("tok-1")

	require.NoError(t, client.RegisterPushToken(context.Background(), "device-1"))
	require.Equal(t, "device-1", fb.body()["fcm_token"])
	require.Equal(t, "Bearer tok-1", fb.auth())

	require.ErrorIs(t, client.RegisterPushToken(context.Background(), ""), api.ErrValidation)
}
