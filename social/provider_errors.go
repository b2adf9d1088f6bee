package social

import (
	"errors"
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// ProviderError is the normalized form of a failed provider call. Each
// provider package maps its own error envelope into this one shape so the
// federation layer and the logs never deal with raw upstream bodies.
type ProviderError struct {
	Provider    string
	Operation   string
	Status      int
	Code        string
	Description string
	Err         error
	Raw         map[string]any
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}

	var b strings.Builder
	switch {
	case e.Provider != "" && e.Operation != "":
		fmt.Fprintf(&b, "%s %s failed", e.Provider, e.Operation)
	case e.Provider != "":
		b.WriteString(e.Provider + " failed")
	case e.Operation != "":
		b.WriteString(e.Operation + " failed")
	default:
		b.WriteString("provider failed")
	}

	switch {
	case e.Description != "":
		fmt.Fprintf(&b, ": %s", e.Description)
	case e.Code != "":
		fmt.Fprintf(&b, ": %s", e.Code)
	case e.Err != nil:
		fmt.Fprintf(&b, ": %v", e.Err)
	}

	return b.String()
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Metadata flattens the error into loggable key/value pairs.
func (e *ProviderError) Metadata() map[string]any {
	if e == nil {
		return nil
	}

	meta := map[string]any{}
	set := func(key string, value any) {
		switch v := value.(type) {
		case string:
			if v != "" {
				meta[key] = v
			}
		case int:
			if v != 0 {
				meta[key] = v
			}
		}
	}

	set("provider", e.Provider)
	set("operation", e.Operation)
	set("status", e.Status)
	set("code", e.Code)
	set("description", e.Description)
	if len(e.Raw) > 0 {
		meta["raw"] = e.Raw
	}

	return meta
}

// wrapProviderError attaches provider context and any normalized upstream
// detail to one of the package sentinels without mutating the sentinel.
func wrapProviderError(base *goerrors.Error, provider, operation string, err error) error {
	if base == nil {
		return err
	}

	meta := map[string]any{}
	if provider != "" {
		meta["provider"] = provider
	}
	if operation != "" {
		meta["operation"] = operation
	}

	var perr *ProviderError
	if errors.As(err, &perr) && perr != nil {
		for k, v := range perr.Metadata() {
			meta[k] = v
		}
	} else if err != nil {
		meta["error"] = err.Error()
	}

	wrapped := base.Clone()
	if wrapped == nil {
		wrapped = base
	}
	if err != nil {
		wrapped.Source = err
	}
	if len(meta) > 0 {
		wrapped.WithMetadata(meta)
	}

	return wrapped
}
