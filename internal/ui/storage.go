package ui

import (
	"context"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

const storagePrefix = "portfolio."

// localStore keeps the session in the browser's localStorage.
type localStore struct{}

func (localStore) storage() app.Value {
	return app.Window().Get("localStorage")
}

func (s localStore) Get(_ context.Context, key string) (string, bool, error) {
	v := s.storage().Call("getItem", storagePrefix+key)
	if !v.Truthy() {
		return "", false, nil
	}
	return v.String(), true, nil
}

func (s localStore) Set(_ context.Context, key, value string) error {
	s.storage().Call("setItem", storagePrefix+key, value)
	return nil
}

func (s localStore) Delete(_ context.Context, keys ...string) error {
	st := s.storage()
	for _, k := range keys {
		st.Call("removeItem", storagePrefix+k)
	}
	return nil
}
