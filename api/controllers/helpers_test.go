package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angelmondragon/civicpulse-backend/api/middleware"
	"github.com/angelmondragon/civicpulse-backend/internal/policy"
	"github.com/angelmondragon/civicpulse-backend/pkg/types"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var (
	citizen = policy.Citizen{UserID: uuid.MustParse("11111111-1111-1111-1111-111111111111")}
	admin   = policy.Administrator{UserID: uuid.MustParse("22222222-2222-2222-2222-222222222222")}
)

func jsonRequest(method, target, body string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func asActor(req *http.Request, actor policy.Actor) *http.Request {
	return req.WithContext(middleware.WithActor(req.Context(), actor))
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) types.ErrorEnvelope {
	t.Helper()
	var env types.ErrorEnvelope
	decodeBody(t, rec, &env)
	return env
}
