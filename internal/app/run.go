package app

import (
	"context"
	"encoding/json"
	"io"

	"github.com/alexknuckles/ultrasuite/internal/conf"
)

// Run opens an App for the duration of fn. The context passed to fn is
// bounded by Timeout.
func Run(ctx context.Context, settings *conf.Settings, fn func(ctx context.Context, a *App) error) error {
	ctx, cancel := context.WithTimeout(ctx, Timeout)
	defer cancel()

	a, err := New(ctx, settings)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

// WriteJSON prints v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
