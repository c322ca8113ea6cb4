package middleware

import "context"

type ctxKey int

const (
	ctxAdminSubject ctxKey = iota
	ctxRequestID
)

// AdminSubjectFromContext returns the subject of the admin token that
// authorized the request, or "".
func AdminSubjectFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxAdminSubject).(string)
	return v
}

func WithAdminSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, ctxAdminSubject, subject)
}

// RequestIDFromContext returns the id assigned by RequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxRequestID).(string)
	return v
}

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxRequestID, id)
}
