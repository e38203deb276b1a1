package ai

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

var SupportedRoles = []string{
	RoleSystem,
	RoleUser,
	RoleAssistant,
	RoleTool,
}
