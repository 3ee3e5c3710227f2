package rbac

type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool { return r == RoleStudent || r == RoleAdmin }

// RolePermissions is the single permission table every route is checked against.
var RolePermissions = map[Role][]string{
	RoleStudent: {
		"subject:view",
		"lesson:view",
		"lesson:complete",
		"quiz:view",
		"quiz:submit",
		"result:view-own",
		"access:view-own",
		"chat:ask",
		"notification:own",
		"upload:create",
	},
	RoleAdmin: {
		"*", // everything
	},
}
