package testutil

import (
	"net/http"

	"lokal/pkg/requestcontext"
)

// WithAuth sets subject, client and scopes as an issued access token would.
func WithAuth(req *http.Request, sub, clientID string, scopes ...string) *http.Request {
	ctx := requestcontext.WithSubject(req.Context(), sub)
	ctx = requestcontext.WithClientID(ctx, clientID)
	ctx = requestcontext.WithScopes(ctx, scopes)
	return req.WithContext(ctx)
}

// WithRequestID sets a fixed request id.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
