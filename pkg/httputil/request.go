package httputil

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/ums222/ClarityClaim-AI-sub001/pkg/types"
)

// MaxBodyBytes bounds request bodies
const MaxBodyBytes = 1 << 20

// IDParam returns the trimmed ?id= query value
func IDParam(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("id"))
}

// ListParams reads page, limit, status, search and the named foreign key filters.
// Unparseable page or limit values fall back to their defaults.
func ListParams(r *http.Request, filters ...string) types.ListParams {
	q := r.URL.Query()

	params := types.ListParams{
		Page:   atoiOr(q.Get("page"), types.DefaultPage),
		Limit:  atoiOr(q.Get("limit"), types.DefaultLimit),
		Status: strings.TrimSpace(q.Get("status")),
		Search: strings.TrimSpace(q.Get("search")),
	}

	for _, name := range filters {
		if v := strings.TrimSpace(q.Get(name)); v != "" {
			if params.Filters == nil {
				params.Filters = make(map[string]string, len(filters))
			}
			params.Filters[name] = v
		}
	}

	params.Normalize()
	return params
}

// DecodePayload reads a JSON object body. Numbers are kept as json.Number so that
// amounts reach the database unchanged.
func DecodePayload(r *http.Request) (types.Payload, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
	if err != nil {
		return nil, types.NewBadRequestError("Invalid request body")
	}
	if len(body) > MaxBodyBytes {
		return nil, types.NewBadRequestError("Request body too large")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return types.Payload{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var payload types.Payload
	if err := dec.Decode(&payload); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &syntaxErr), errors.As(err, &typeErr), errors.Is(err, io.ErrUnexpectedEOF):
			return nil, types.NewBadRequestError("Invalid JSON body")
		default:
			return nil, types.NewBadRequestError("Invalid request body")
		}
	}
	if payload == nil {
		payload = types.Payload{}
	}

	return payload, nil
}

// DecodeJSON decodes a JSON body into v
func DecodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return types.NewBadRequestError("Request body is required")
		}
		return types.NewBadRequestError("Invalid JSON body")
	}
	return nil
}

func atoiOr(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
