package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
)

// Keys maps API keys to user names. An empty set of keys accepts any
// non-empty key.
type Keys map[string]string

const AnonymousUser = "anonymous"

func LoadFromFile(name string) (keys Keys, err error) {
	f, err := os.OpenFile(name, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open API keys file: %w", err)
	}
	defer f.Close()
	m := make(Keys)
	if err = json.NewDecoder(f).Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode API keys file: %w", err)
	}
	return m, nil
}

// Authenticate finds the user for a request. A key in the Authorization
// header takes precedence over the key sent in the request body.
func (k Keys) Authenticate(r *http.Request, bodyKey string) (user string, ok bool) {
	key := bodyKey
	if header := r.Header.Get("Authorization"); header != "" {
		key = strings.TrimPrefix(header, "Bearer ")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", false
	}
	if len(k) == 0 {
		return AnonymousUser, true
	}
	user, ok = k[key]
	return user, ok
}
