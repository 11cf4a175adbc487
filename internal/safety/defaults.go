package safety

// defaultModelBlocklist matches configuration/scheduled-action/rule/access
// records, mail servers, payment models, automations and other backend
// plumbing that has no business being exposed to an LLM tool caller. User
// records (res.users) are not in this list.
var defaultModelBlocklist = map[string]bool{
	"ir.config_parameter": true,
	"ir.cron":             true,
	"ir.rule":             true,
	"ir.model.access":     true,
	"ir.model.data":       true,
	"ir.actions.server":   true,
	"ir.mail_server":      true,
	"payment.*":           true,
	"base.automation":     true,
}

// defaultFieldBlocklist covers secrets that must never round-trip through a
// tool response regardless of the active mode. Entries containing glob
// metacharacters (e.g. "*_token") match by pattern rather than exact name,
// so per-model token/secret fields introduced by later Odoo modules are
// covered without an explicit entry per field.
var defaultFieldBlocklist = map[string]bool{
	"password":       true,
	"password_crypt": true,
	"*_token":        true,
	"api_key":        true,
	"totp_secret":    true,
	"totp_enabled":   true,
	"signature":      true,
}

// defaultMethodBlocklist covers methods that escalate privilege, rewrite
// environment/context, invalidate caches, or manage module installation.
var defaultMethodBlocklist = map[string]bool{
	"sudo":                    true,
	"with_user":               true,
	"with_context":            true,
	"clear_caches":            true,
	"invalidate_cache":        true,
	"invalidate_all":          true,
	"button_immediate_install": true,
	"button_immediate_uninstall": true,
	"module_install":          true,
	"module_uninstall":        true,
}
