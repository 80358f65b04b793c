package domain

// StaffRole enumerates dashboard roles.
type StaffRole string

const (
	StaffRoleOwner     StaffRole = "OWNER"
	StaffRoleAdmin     StaffRole = "ADMIN"
	StaffRoleManager   StaffRole = "MANAGER"
	StaffRoleModerator StaffRole = "MODERATOR"
	StaffRoleSupport   StaffRole = "SUPPORT"
)

// DefaultStaffRole is assigned when an administrator does not pick one.
const DefaultStaffRole = StaffRoleSupport

// Valid reports whether r is a known role.
func (r StaffRole) Valid() bool {
	switch r {
	case StaffRoleOwner, StaffRoleAdmin, StaffRoleManager, StaffRoleModerator, StaffRoleSupport:
		return true
	}
	return false
}

// Permissions is the effective set of dashboard capabilities for an account.
type Permissions struct {
	ViewDashboard     bool `json:"view_dashboard"`
	ManageStaff       bool `json:"manage_staff"`
	ManageInfractions bool `json:"manage_infractions"`
	ManageTickets     bool `json:"manage_tickets"`
	ManagePayouts     bool `json:"manage_payouts"`
	ManageQuotas      bool `json:"manage_quotas"`
	ViewAuditLog      bool `json:"view_audit_log"`
}

// PermissionOverrides flips individual flags on top of the role defaults.
// Nil fields keep whatever the base set says.
type PermissionOverrides struct {
	ViewDashboard     *bool `json:"view_dashboard,omitempty"`
	ManageStaff       *bool `json:"manage_staff,omitempty"`
	ManageInfractions *bool `json:"manage_infractions,omitempty"`
	ManageTickets     *bool `json:"manage_tickets,omitempty"`
	ManagePayouts     *bool `json:"manage_payouts,omitempty"`
	ManageQuotas      *bool `json:"manage_quotas,omitempty"`
	ViewAuditLog      *bool `json:"view_audit_log,omitempty"`
}

// DefaultPermissions returns the baseline flags for a role.
func DefaultPermissions(role StaffRole) Permissions {
	switch role {
	case StaffRoleOwner, StaffRoleAdmin:
		return Permissions{
			ViewDashboard:     true,
			ManageStaff:       true,
			ManageInfractions: true,
			ManageTickets:     true,
			ManagePayouts:     true,
			ManageQuotas:      true,
			ViewAuditLog:      true,
		}
	case StaffRoleManager:
		return Permissions{
			ViewDashboard:     true,
			ManageInfractions: true,
			ManageTickets:     true,
			ManageQuotas:      true,
			ViewAuditLog:      true,
		}
	case StaffRoleModerator:
		return Permissions{
			ViewDashboard:     true,
			ManageInfractions: true,
			ManageTickets:     true,
		}
	default:
		return Permissions{
			ViewDashboard: true,
			ManageTickets: true,
		}
	}
}

// Apply returns p with every non-nil override written over it.
func (p Permissions) Apply(o *PermissionOverrides) Permissions {
	if o == nil {
		return p
	}
	set := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	set(&p.ViewDashboard, o.ViewDashboard)
	set(&p.ManageStaff, o.ManageStaff)
	set(&p.ManageInfractions, o.ManageInfractions)
	set(&p.ManageTickets, o.ManageTickets)
	set(&p.ManagePayouts, o.ManagePayouts)
	set(&p.ManageQuotas, o.ManageQuotas)
	set(&p.ViewAuditLog, o.ViewAuditLog)
	return p
}

// Permission names a single capability flag.
type Permission string

const (
	PermissionViewDashboard     Permission = "view_dashboard"
	PermissionManageStaff       Permission = "manage_staff"
	PermissionManageInfractions Permission = "manage_infractions"
	PermissionManageTickets     Permission = "manage_tickets"
	PermissionManagePayouts     Permission = "manage_payouts"
	PermissionManageQuotas      Permission = "manage_quotas"
	PermissionViewAuditLog      Permission = "view_audit_log"
)

// Has reports whether the flag named by perm is set.
func (p Permissions) Has(perm Permission) bool {
	switch perm {
	case PermissionViewDashboard:
		return p.ViewDashboard
	case PermissionManageStaff:
		return p.ManageStaff
	case PermissionManageInfractions:
		return p.ManageInfractions
	case PermissionManageTickets:
		return p.ManageTickets
	case PermissionManagePayouts:
		return p.ManagePayouts
	case PermissionManageQuotas:
		return p.ManageQuotas
	case PermissionViewAuditLog:
		return p.ViewAuditLog
	}
	return false
}
