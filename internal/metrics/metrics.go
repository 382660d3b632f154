// Package metrics регистрирует счётчики Prometheus для ключевых
// операций сервиса аккаунтов. Значения отдаются на /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RegistrationsTotal количество успешных регистраций.
	RegistrationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "account_registrations_total",
		Help: "Total number of successfully registered accounts.",
	})

	// LoginsTotal количество попыток входа по результату.
	LoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "account_logins_total",
		Help: "Total number of login attempts by result.",
	}, []string{"result"})

	// StateTransitionsTotal количество переходов состояния по целевому состоянию.
	StateTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "account_state_transitions_total",
		Help: "Total number of account state transitions by target state.",
	}, []string{"to_state"})
)
