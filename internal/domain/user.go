package domain

import "time"

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

type Permissions struct {
	CanAddSales        bool `json:"canAddSales"`
	CanEditSales       bool `json:"canEditSales"`
	CanDeleteSales     bool `json:"canDeleteSales"`
	CanViewReports     bool `json:"canViewReports"`
	CanExportReports   bool `json:"canExportReports"`
	CanManageBranches  bool `json:"canManageBranches"`
	CanManageUsers     bool `json:"canManageUsers"`
	CanViewAllBranches bool `json:"canViewAllBranches"`
}

// Permission names accepted by HasPermission.
const (
	PermAddSales        = "canAddSales"
	PermEditSales       = "canEditSales"
	PermDeleteSales     = "canDeleteSales"
	PermViewReports     = "canViewReports"
	PermExportReports   = "canExportReports"
	PermManageBranches  = "canManageBranches"
	PermManageUsers     = "canManageUsers"
	PermViewAllBranches = "canViewAllBranches"
)

func (p Permissions) Has(name string) bool {
	switch name {
	case PermAddSales:
		return p.CanAddSales
	case PermEditSales:
		return p.CanEditSales
	case PermDeleteSales:
		return p.CanDeleteSales
	case PermViewReports:
		return p.CanViewReports
	case PermExportReports:
		return p.CanExportReports
	case PermManageBranches:
		return p.CanManageBranches
	case PermManageUsers:
		return p.CanManageUsers
	case PermViewAllBranches:
		return p.CanViewAllBranches
	}
	return false
}

func DefaultPermissions(role Role) Permissions {
	if role == RoleAdmin {
		return Permissions{
			CanAddSales:        true,
			CanEditSales:       true,
			CanDeleteSales:     true,
			CanViewReports:     true,
			CanExportReports:   true,
			CanManageBranches:  true,
			CanManageUsers:     true,
			CanViewAllBranches: true,
		}
	}
	return Permissions{
		CanAddSales:    true,
		CanEditSales:   true,
		CanViewReports: true,
	}
}

type User struct {
	ID           string      `json:"id"`
	Username     string      `json:"username"`
	PasswordHash string      `json:"passwordHash,omitempty"`
	Role         Role        `json:"role"`
	Name         string      `json:"name"`
	Email        string      `json:"email,omitempty"`
	BranchID     string      `json:"branchId,omitempty"`
	Permissions  Permissions `json:"permissions"`
	IsActive     bool        `json:"isActive"`
	CreatedAt    time.Time   `json:"createdAt"`
}

func (u User) RecordID() string { return u.ID }

// Public strips the password hash.
func (u User) Public() User {
	u.PasswordHash = ""
	return u
}

func (u User) HasPermission(name string) bool {
	if u.Role == RoleAdmin {
		return true
	}
	return u.Permissions.Has(name)
}

// HasBranchAccess reports whether the user may see data for branchID.
func (u User) HasBranchAccess(branchID string) bool {
	if u.Role == RoleAdmin || u.Permissions.CanViewAllBranches {
		return true
	}
	return u.BranchID != "" && u.BranchID == branchID
}

// Actor is the authenticated caller attached to a request.
type Actor struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}
