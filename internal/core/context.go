package core

// context.go
import (
	"context"
)

// CtxKey — тип ключей для context.Context (чтобы избежать коллизий строк)
type CtxKey string

const (
	// CtxNonce — ключ для CSP nonce (кладётся в request.Context в middleware)
	CtxNonce CtxKey = "nonce"
)

// WithNonce кладёт nonce текущего запроса в контекст.
func WithNonce(ctx context.Context, nonce string) context.Context {
	return context.WithValue(ctx, CtxNonce, nonce)
}

// NonceFromContext достаёт nonce; пустая строка, если middleware его не положил.
func NonceFromContext(ctx context.Context) string {
	nonce, _ := ctx.Value(CtxNonce).(string)
	return nonce
}
