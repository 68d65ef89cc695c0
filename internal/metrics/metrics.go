// Package metrics регистрирует prometheus-счётчики доменных операций.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BillingCyclesTotal — количество завершённых циклов биллинга.
	BillingCyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "proxy_manager_billing_cycles_total",
		Help: "Number of completed billing cycles.",
	})

	// ProxiesChargedTotal — количество успешных суточных списаний.
	ProxiesChargedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "proxy_manager_proxies_charged_total",
		Help: "Number of successful daily proxy charges.",
	})

	// ProxiesDisabledTotal — количество прокси, отключённых за недостаток средств.
	ProxiesDisabledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "proxy_manager_proxies_disabled_total",
		Help: "Number of proxies disabled for insufficient balance.",
	})

	// ProxiesProvisionedTotal — количество выданных пользователям прокси.
	ProxiesProvisionedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "proxy_manager_proxies_provisioned_total",
		Help: "Number of proxies provisioned for users.",
	})

	// ProxiesRestoredTotal — количество восстановленных после пополнения прокси.
	ProxiesRestoredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "proxy_manager_proxies_restored_total",
		Help: "Number of proxies re-enabled after a top-up.",
	})

	// PaymentsSettledTotal — платежи, переведённые в терминальный статус, по статусам.
	PaymentsSettledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "proxy_manager_payments_settled_total",
		Help: "Number of payments moved to a terminal status.",
	}, []string{"status"})

	// ServiceRestartsTotal — перезапуски прокси-сервиса, по инициатору.
	ServiceRestartsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "proxy_manager_service_restarts_total",
		Help: "Number of downstream service restarts.",
	}, []string{"initiator"})

	// RestartsDeferredTotal — перезапуски, отложенные из-за cooldown.
	RestartsDeferredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "proxy_manager_restarts_deferred_total",
		Help: "Number of restarts deferred due to the cooldown window.",
	})
)
