package auth

import (
	"context"
	"strings"
)

type subjectContextKey struct{}

// ContextWithUser attaches the authenticated subject to the context.
func ContextWithUser(ctx context.Context, subject Subject) context.Context {
	subject.UserID = strings.TrimSpace(subject.UserID)
	return context.WithValue(ctx, subjectContextKey{}, subject)
}

// UserFromContext extracts the authenticated subject from the context.
func UserFromContext(ctx context.Context) (Subject, bool) {
	if ctx == nil {
		return Subject{}, false
	}
	v, ok := ctx.Value(subjectContextKey{}).(Subject)
	if !ok || v.UserID == "" {
		return Subject{}, false
	}
	return v, true
}

// UserIDFromContext extracts the authenticated user ID from context.
func UserIDFromContext(ctx context.Context) (string, bool) {
	subject, ok := UserFromContext(ctx)
	if !ok {
		return "", false
	}
	return subject.UserID, true
}
