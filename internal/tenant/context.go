package tenant

import (
	"context"

	"github.com/ums222/ClarityClaim-AI-sub001/pkg/logger"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/types"
)

type principalKey struct{}

// WithPrincipal stores p in ctx together with the ids the logger reads
func WithPrincipal(ctx context.Context, p *types.Principal) context.Context {
	ctx = context.WithValue(ctx, principalKey{}, p)
	ctx = context.WithValue(ctx, logger.UserIDKey, p.UserID)
	if p.OrganizationID != "" {
		ctx = context.WithValue(ctx, logger.OrganizationIDKey, p.OrganizationID)
	}
	return ctx
}

// PrincipalFrom returns the principal stored by the auth middleware
func PrincipalFrom(ctx context.Context) (*types.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*types.Principal)
	return p, ok && p != nil
}
