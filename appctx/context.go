// Package appctx holds the request-scoped values shared by config, utils
// and models. It has no dependencies so none of them import each other
// just to read the tenant.
package appctx

import "context"

type Key int

const (
	BusinessId Key = iota
	UserId
	UserName
	CorrelationId
	// SkipTenantScope turns the gorm tenant guard off. Only the migration
	// and maintenance tools set it.
	SkipTenantScope
)

var keyNames = [...]string{"BusinessId", "UserId", "UserName", "CorrelationId", "SkipTenantScope"}

func (k Key) String() string {
	if int(k) < len(keyNames) {
		return keyNames[k]
	}
	return "Unknown"
}

// Value returns the value stored under key when it has type T.
func Value[T any](ctx context.Context, key Key) (T, bool) {
	v, ok := ctx.Value(key).(T)
	return v, ok
}

func With[T any](ctx context.Context, key Key, value T) context.Context {
	return context.WithValue(ctx, key, value)
}
