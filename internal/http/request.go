package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

const maxBodyBytes = 64 << 10

var errBadRequest = errors.New("bad request")

type (
	keysRequest struct {
		Keys      string `json:"keys"`
		Backspace int    `json:"backspace"`
		Clear     bool   `json:"clear"`
	}

	mercurialRequest struct {
		Kind string `json:"kind"`
	}

	selectRequest struct {
		Category string `json:"category"`
		Label    string `json:"label"`
	}

	payRequest struct {
		Method string `json:"method"`
	}

	currencyRequest struct {
		Index int `json:"index"`
	}

	popupRequest struct {
		Index int `json:"index"`
	}
)

// decodeJSON reads a small JSON body into v. An empty body leaves v as is.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// pathIndex reads a non-negative integer path value.
func pathIndex(r *http.Request, name string) (int, error) {
	raw := r.PathValue(name)
	i, err := strconv.Atoi(raw)
	if err != nil || i < 0 {
		return 0, fmt.Errorf("%w: invalid %s %q", errBadRequest, name, raw)
	}
	return i, nil
}

// sanitizeInput drops control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
