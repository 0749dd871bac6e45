package middleware

import "context"

type callerKey struct{}

// Caller identifies who made an authenticated request.
type Caller struct {
	UserID string
	// AccessID is the jti of the token that authenticated the request.
	AccessID string
}

// CallerFromContext returns the caller stored by Auth, or the zero Caller.
func CallerFromContext(ctx context.Context) Caller {
	if ctx == nil {
		return Caller{}
	}
	caller, _ := ctx.Value(callerKey{}).(Caller)
	return caller
}

// WithCaller stores caller on ctx, replacing any earlier one.
func WithCaller(ctx context.Context, caller Caller) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, callerKey{}, caller)
}

func UserIDFromContext(ctx context.Context) string {
	return CallerFromContext(ctx).UserID
}

func AccessIDFromContext(ctx context.Context) string {
	return CallerFromContext(ctx).AccessID
}

// WithUserID sets only the user id, keeping any access id already present.
func WithUserID(ctx context.Context, userID string) context.Context {
	caller := CallerFromContext(ctx)
	caller.UserID = userID
	return WithCaller(ctx, caller)
}

// WithAccessID sets only the access id, keeping any user id already present.
func WithAccessID(ctx context.Context, accessID string) context.Context {
	caller := CallerFromContext(ctx)
	caller.AccessID = accessID
	return WithCaller(ctx, caller)
}
