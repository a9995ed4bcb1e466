package permissions

// Permission keys referenced throughout the codebase. Keys live in two
// namespaces: request.* gates what a user may submit, admin.* gates
// moderation of other users' requests.
const (
	RequestMovies               = "request.movies"
	RequestTV                   = "request.tv"
	Request4K                   = "request.4k"
	RequestAutoApprove          = "request.auto_approve"
	RequestAutoApproveMovies    = "request.auto_approve_movies"
	RequestAutoApproveTV        = "request.auto_approve_tv"
	RequestViewOthers           = "request.view_others"
	RequestSeeRequesterIdentity = "request.see_requester_identity"

	AdminApproveRequests = "admin.approve_requests"
	AdminMarkAvailable   = "admin.mark_available"
	AdminDeleteRequests  = "admin.delete_requests"
	AdminManageUsers     = "admin.manage_users"
	AdminManageRoles     = "admin.manage_roles"
)

// AdminPrefix is the namespace escalated by the legacy admin flag.
const AdminPrefix = "admin."

// PermissionDefinition describes a single, specific permission
type PermissionDefinition struct {
	Key         string `json:"key"`         // unique key, e.g., "request.movies"
	Name        string `json:"name"`        // friendly name, e.g., "Request Movies"
	Description string `json:"description"` // detailed description of what the permission allows
}

// PermissionGroupDefinition groups related permissions
type PermissionGroupDefinition struct {
	Key         string                 `json:"key"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Permissions []PermissionDefinition `json:"permissions"`
}

// DefinedPermissionGroups holds all statically defined permission groups and their permissions
var DefinedPermissionGroups = []PermissionGroupDefinition{
	{
		Key:         "request",
		Name:        "Requesting",
		Description: "Permissions controlling what a user may request and how requests are admitted.",
		Permissions: []PermissionDefinition{
			{
				Key:         RequestMovies,
				Name:        "Request Movies",
				Description: "Allows submitting requests for movies.",
			},
			{
				Key:         RequestTV,
				Name:        "Request Series",
				Description: "Allows submitting requests for TV series.",
			},
			{
				Key:         Request4K,
				Name:        "Request 4K",
				Description: "Allows submitting requests for 4K / high-quality versions. Required in addition to the movie or series permission.",
			},
			{
				Key:         RequestAutoApprove,
				Name:        "Auto-Approve Requests",
				Description: "New requests of any kind are approved immediately without moderator action.",
			},
			{
				Key:         RequestAutoApproveMovies,
				Name:        "Auto-Approve Movie Requests",
				Description: "New movie requests are approved immediately without moderator action.",
			},
			{
				Key:         RequestAutoApproveTV,
				Name:        "Auto-Approve Series Requests",
				Description: "New series requests are approved immediately without moderator action.",
			},
			{
				Key:         RequestViewOthers,
				Name:        "View Other Users' Requests",
				Description: "Allows listing requests submitted by other users.",
			},
			{
				Key:         RequestSeeRequesterIdentity,
				Name:        "See Requester Identity",
				Description: "Shows which user submitted a request when viewing other users' requests.",
			},
		},
	},
	{
		Key:         "admin",
		Name:        "Administration",
		Description: "Permissions for moderating requests and managing users and roles.",
		Permissions: []PermissionDefinition{
			{
				Key:         AdminApproveRequests,
				Name:        "Approve / Reject Requests",
				Description: "Allows approving or rejecting pending requests from any user.",
			},
			{
				Key:         AdminMarkAvailable,
				Name:        "Mark Requests Available",
				Description: "Allows confirming that an approved request has been fulfilled and is available.",
			},
			{
				Key:         AdminDeleteRequests,
				Name:        "Delete Requests",
				Description: "Allows deleting any user's requests.",
			},
			{
				Key:         AdminManageUsers,
				Name:        "Manage Users",
				Description: "Allows creating, editing and deleting user accounts and their permission overrides.",
			},
			{
				Key:         AdminManageRoles,
				Name:        "Manage Roles",
				Description: "Allows creating, editing and deleting roles.",
			},
		},
	},
}

var (
	allPermissionKeysMap map[string]PermissionDefinition
	allPermissionKeys    []string
)

func init() {
	allPermissionKeysMap = make(map[string]PermissionDefinition)
	for _, group := range DefinedPermissionGroups {
		for _, perm := range group.Permissions {
			allPermissionKeysMap[perm.Key] = perm
			allPermissionKeys = append(allPermissionKeys, perm.Key)
		}
	}
}

// GetAllPermissionDefinitions returns a map of all defined permissions, keyed by their unique string key
func GetAllPermissionDefinitions() map[string]PermissionDefinition {
	return allPermissionKeysMap
}

// GetAllPermissionKeys returns a slice of all unique permission string keys
func GetAllPermissionKeys() []string {
	// return a copy to prevent modification of the internal slice
	keys := make([]string, len(allPermissionKeys))
	copy(keys, allPermissionKeys)
	return keys
}

// IsValidPermissionKey checks if a given permission key is defined
func IsValidPermissionKey(key string) bool {
	_, ok := allPermissionKeysMap[key]
	return ok
}

// GetPermissionDefinition retrieves a specific permission definition by its key.
// Returns the definition and true if found, otherwise an empty definition and false.
func GetPermissionDefinition(key string) (PermissionDefinition, bool) {
	def, ok := allPermissionKeysMap[key]
	return def, ok
}
