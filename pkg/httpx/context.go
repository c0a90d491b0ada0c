package httpx

import (
	"context"

	"github.com/aula-cl/lectura/pkg/jwtx"
)

type ctxKey string

const (
	ctxKeySubject ctxKey = "subject"
	ctxKeyClaims  ctxKey = "claims"
)

// SubjectFromContext returns the authenticated token subject, if any.
func SubjectFromContext(ctx context.Context) (jwtx.Subject, bool) {
	s, ok := ctx.Value(ctxKeySubject).(jwtx.Subject)
	return s, ok
}

// ClaimsFromContext returns the full verified claims, if any.
func ClaimsFromContext(ctx context.Context) (jwtx.Claims, bool) {
	c, ok := ctx.Value(ctxKeyClaims).(jwtx.Claims)
	return c, ok
}

func contextWithAuth(ctx context.Context, claims jwtx.Claims, subject jwtx.Subject) context.Context {
	ctx = context.WithValue(ctx, ctxKeyClaims, claims)
	return context.WithValue(ctx, ctxKeySubject, subject)
}
