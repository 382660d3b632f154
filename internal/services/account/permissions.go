package account

import "github.com/pillarmind/account-service/internal/models"

// Operation операция, на которую проверяется право субъекта.
type Operation string

// Операции сервиса аккаунтов.
const (
	OpReadAccount     Operation = "read_account"
	OpUpdateProfile   Operation = "update_profile"
	OpUpdatePrivacy   Operation = "update_privacy"
	OpChangePassword  Operation = "change_password"
	OpDeactivateSelf  Operation = "deactivate_self"
	OpTransitionState Operation = "transition_state"
	OpChangeRole      Operation = "change_role"
	OpListAccounts    Operation = "list_accounts"
	OpReadAuditTrail  Operation = "read_audit_trail"
	OpBypassPrivacy   Operation = "bypass_privacy"
)

// capabilities таблица прав (роль, операция) для действий над ЧУЖИМИ
// учётными записями. Права над собственной записью проверяются отдельно:
// владелец всегда может читать и изменять своё, менять свой пароль
// и деактивировать себя.
var capabilities = map[models.Role]map[Operation]bool{
	models.RoleUser: {},
	models.RoleClinician: {
		// Клиницист читает профили пользователей, давших согласие;
		// приватность при этом не обходится.
		OpReadAccount: true,
	},
	models.RoleAdmin: {
		OpReadAccount:     true,
		OpUpdateProfile:   true,
		OpUpdatePrivacy:   true,
		OpTransitionState: true,
		OpChangeRole:      true,
		OpListAccounts:    true,
		OpReadAuditTrail:  true,
		OpBypassPrivacy:   true,
	},
}

// allowed сообщает, даёт ли роль право на операцию над чужой записью.
func allowed(role models.Role, op Operation) bool {
	return capabilities[role][op]
}

// selfOperations операции, всегда разрешённые над собственной записью.
var selfOperations = map[Operation]bool{
	OpReadAccount:    true,
	OpUpdateProfile:  true,
	OpUpdatePrivacy:  true,
	OpChangePassword: true,
	OpDeactivateSelf: true,
}

// authorize проверяет право субъекта principal выполнить операцию op
// над учётной записью targetUID. Возвращает ErrPermissionDenied при отказе.
func authorize(principal models.Principal, targetUID string, op Operation) error {
	if principal.IsSelf(targetUID) && selfOperations[op] {
		return nil
	}
	if allowed(principal.Role, op) {
		return nil
	}
	return models.ErrPermissionDenied
}
