// Package guest manages anonymous sessions carried entirely by the client:
// a random 128-bit identifier in one cookie and a small JSON data blob in a
// second one. Nothing is persisted server-side, so guest state survives
// restarts and needs no cross-request coordination, at the price of payload
// size. The blob must stay small and non-sensitive.
package guest

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

// Cookie names used for the guest identifier and the auxiliary data blob.
const (
	IDCookie   = "guest_session_id"
	DataCookie = "guest_session_data"
)

// Manager reads and rewrites the guest cookies on the HTTP surface. It does
// no I/O of its own.
type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Create mints a new random guest identifier, sets the identifier cookie on
// the response and returns the id.
func (m *Manager) Create(w http.ResponseWriter) (uuid.UUID, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return uuid.Nil, err
	}
	http.SetCookie(w, m.cookie(IDCookie, id.String()))
	return id, nil
}

// Get reads the guest identifier from the request. A missing or malformed
// cookie is reported as absent, never as an error.
func (m *Manager) Get(r *http.Request) (uuid.UUID, bool) {
	c, err := r.Cookie(IDCookie)
	if err != nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(c.Value)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// UpdateData shallow-merges fields into the current auxiliary data and
// rewrites the data cookie: keys named in fields overwrite their previous
// values, all other keys are preserved. A missing or unreadable blob starts
// from an empty mapping.
func (m *Manager) UpdateData(r *http.Request, w http.ResponseWriter, fields map[string]any) error {
	data := m.readData(r)
	for k, v := range fields {
		data[k] = v
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	// JSON is not a valid cookie octet sequence under RFC 6265, so the blob
	// travels base64url-encoded.
	http.SetCookie(w, m.cookie(DataCookie, base64.RawURLEncoding.EncodeToString(raw)))
	return nil
}

// Delete clears both guest cookies on the response.
func (m *Manager) Delete(w http.ResponseWriter) {
	http.SetCookie(w, m.expired(IDCookie))
	http.SetCookie(w, m.expired(DataCookie))
}

func (m *Manager) readData(r *http.Request) map[string]any {
	data := map[string]any{}

	c, err := r.Cookie(DataCookie)
	if err != nil {
		return data
	}
	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return data
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return map[string]any{}
	}
	return data
}

func (m *Manager) cookie(name, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func (m *Manager) expired(name string) *http.Cookie {
	c := m.cookie(name, "")
	c.MaxAge = -1
	return c
}
