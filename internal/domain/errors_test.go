package domain

import (
	"errors"
	"net/http"
	"testing"
)

func TestFetchError(t *testing.T) {
	baseErr := errors.New("connection refused")

	t.Run("request error is retriable", func(t *testing.T) {
		err := NewRequestError(baseErr)

		if !err.IsRetriable() {
			t.Error("Expected request error to be retriable")
		}
		if err.Error() != "fetch request: connection refused" {
			t.Errorf("Error message = %q", err.Error())
		}
		if !errors.Is(err, baseErr) {
			t.Error("Expected error to wrap baseErr")
		}
	})

	t.Run("status errors", func(t *testing.T) {
		cases := []struct {
			code      int
			retriable bool
		}{
			{http.StatusTooManyRequests, true},
			{http.StatusBadGateway, true},
			{http.StatusNotFound, false},
			{http.StatusBadRequest, false},
		}
		for _, c := range cases {
			err := NewStatusError(c.code)
			if err.IsRetriable() != c.retriable {
				t.Errorf("status %d: retriable = %v, want %v", c.code, err.IsRetriable(), c.retriable)
			}
			if !errors.Is(err, ErrUnexpectedStatus) {
				t.Errorf("status %d: expected ErrUnexpectedStatus", c.code)
			}
		}
	})

	t.Run("decode error is fatal", func(t *testing.T) {
		err := NewDecodeError(baseErr)
		if err.IsRetriable() {
			t.Error("Decode error should not be retriable")
		}
	})

	t.Run("IsRetriable helper", func(t *testing.T) {
		if !IsRetriable(NewRequestError(baseErr)) {
			t.Error("IsRetriable should return true for request error")
		}
		if IsRetriable(NewDecodeError(baseErr)) {
			t.Error("IsRetriable should return false for decode error")
		}
		if IsRetriable(errors.New("plain error")) {
			t.Error("IsRetriable should return false for plain error")
		}
	})

	t.Run("errors.As through wrapping", func(t *testing.T) {
		wrapped := errors.Join(errors.New("context"), NewStatusError(http.StatusServiceUnavailable))
		var fe *FetchError
		if !errors.As(wrapped, &fe) {
			t.Fatal("Expected FetchError to be found")
		}
		if fe.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("StatusCode = %d", fe.StatusCode)
		}
	})
}

func TestConfigError(t *testing.T) {
	baseErr := errors.New("missing value")
	err := &ConfigError{Field: "api.coingecko.base_url", Err: baseErr}

	if err.IsRetriable() {
		t.Error("ConfigError should never be retriable")
	}

	expected := "config error [api.coingecko.base_url]: missing value"
	if err.Error() != expected {
		t.Errorf("Error message = %q, want %q", err.Error(), expected)
	}
}
