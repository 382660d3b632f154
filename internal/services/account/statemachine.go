package account

import "github.com/pillarmind/account-service/internal/models"

// transitionRule ограничения перехода: кто вправе его выполнить
// и обязательна ли причина.
type transitionRule struct {
	AllowSelf     bool // Разрешён владельцу учётной записи
	AdminOnly     bool // Разрешён только администратору
	RequireReason bool // Нужна непустая причина
}

// transitions таблица допустимых переходов состояния. Любой переход,
// отсутствующий в таблице, отклоняется с ErrInvalidStateTransition;
// повторный переход в текущее состояние (active -> active) тоже.
// deleted — терминальное состояние без исходящих переходов.
var transitions = map[models.State]map[models.State]transitionRule{
	models.StateActive: {
		models.StateSuspended:   {AdminOnly: true, RequireReason: true},
		models.StateDeactivated: {AllowSelf: true},
		models.StateDeleted:     {AdminOnly: true},
	},
	models.StateSuspended: {
		models.StateActive:      {AdminOnly: true},
		models.StateDeactivated: {AdminOnly: true},
		models.StateDeleted:     {AdminOnly: true},
	},
	models.StateDeactivated: {
		models.StateActive:  {AdminOnly: true},
		models.StateDeleted: {AdminOnly: true},
	},
	models.StateDeleted: {},
}

// lookupTransition возвращает правило перехода from -> to, если он допустим.
func lookupTransition(from, to models.State) (transitionRule, bool) {
	rule, ok := transitions[from][to]
	return rule, ok
}
