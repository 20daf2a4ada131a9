package handlers

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/salesledger/internal/api/middleware"
	"github.com/andresuchdata/salesledger/internal/domain"
	"github.com/andresuchdata/salesledger/internal/service"
)

// BranchResolver maps a branch id to its name.
type BranchResolver interface {
	BranchName(ctx context.Context, id string) (string, error)
}

// branchScope returns the branch the caller is limited to. Users who may see
// every branch get the requested branch, possibly empty.
func branchScope(c *gin.Context, branches BranchResolver, requested string) (service.Scope, error) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return service.Scope{}, domain.ErrUnauthorized
	}
	if u.Role == domain.RoleAdmin || u.Permissions.CanViewAllBranches {
		return service.Scope{Branch: requested}, nil
	}
	if u.BranchID == "" {
		return service.Scope{}, fmt.Errorf("%w: no branch assigned", domain.ErrForbidden)
	}
	name, err := branches.BranchName(c.Request.Context(), u.BranchID)
	if err != nil {
		return service.Scope{}, fmt.Errorf("%w: assigned branch unavailable", domain.ErrForbidden)
	}
	if requested != "" && domain.NormalizeBranchName(requested) != domain.NormalizeBranchName(name) {
		return service.Scope{}, fmt.Errorf("%w: no access to branch %s", domain.ErrForbidden, requested)
	}
	return service.Scope{Branch: name}, nil
}
