package service

import "github.com/prometheus/client_golang/prometheus"

var (
	complaintsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "complaints_created_total", Help: "Complaints submitted"},
		[]string{"type"},
	)
	complaintTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "complaint_transitions_total", Help: "Complaint status transitions"},
		[]string{"from", "to"},
	)
	complaintsDeleted = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "complaints_deleted_total", Help: "Complaints soft-deleted by owners"},
	)
)

func init() {
	prometheus.MustRegister(complaintsCreated, complaintTransitions, complaintsDeleted)
}
