package materials

import (
	"strings"

	"github.com/fieldops/fieldops/internal/platform/payload"
)

// statusTokens maps folded backend tokens, English and Spanish, onto the
// canonical status. Lookups go through statusToken so accents, case and
// separators do not matter.
var statusTokens = map[string]Status{
	"draft":    StatusDraft,
	"borrador": StatusDraft,

	"pending":      StatusPending,
	"pendiente":    StatusPending,
	"submitted":    StatusPending,
	"requested":    StatusPending,
	"solicitada":   StatusPending,
	"solicitado":   StatusPending,
	"en_revision":  StatusPending,
	"por_aprobar":  StatusPending,
	"en_espera":    StatusPending,
	"under_review": StatusPending,

	"approved":   StatusApproved,
	"aprobada":   StatusApproved,
	"aprobado":   StatusApproved,
	"autorizada": StatusApproved,
	"autorizado": StatusApproved,
	"authorized": StatusApproved,
	"accepted":   StatusApproved,
	"aceptada":   StatusApproved,

	"sent":                StatusSent,
	"enviado":             StatusSent,
	"enviada":             StatusSent,
	"envio_parcial":       StatusSent,
	"entrega_parcial":     StatusSent,
	"parcial":             StatusSent,
	"partial":             StatusSent,
	"partially_delivered": StatusSent,
	"in_transit":          StatusSent,
	"en_transito":         StatusSent,
	"en_camino":           StatusSent,
	"despachado":          StatusSent,
	"despachada":          StatusSent,
	"shipped":             StatusSent,

	"delivered":  StatusDelivered,
	"entregada":  StatusDelivered,
	"entregado":  StatusDelivered,
	"recibida":   StatusDelivered,
	"recibido":   StatusDelivered,
	"received":   StatusDelivered,
	"completed":  StatusDelivered,
	"completada": StatusDelivered,
	"completado": StatusDelivered,
	"finalizada": StatusDelivered,
	"cerrada":    StatusDelivered,
	"closed":     StatusDelivered,

	"rejected":  StatusRejected,
	"rechazada": StatusRejected,
	"rechazado": StatusRejected,
	"denied":    StatusRejected,
	"denegada":  StatusRejected,
	"cancelled": StatusRejected,
	"canceled":  StatusRejected,
	"cancelada": StatusRejected,
}

var priorityTokens = map[string]Priority{
	"high":     PriorityHigh,
	"alta":     PriorityHigh,
	"urgent":   PriorityHigh,
	"urgente":  PriorityHigh,
	"critical": PriorityHigh,
	"critica":  PriorityHigh,
	"medium":   PriorityMedium,
	"media":    PriorityMedium,
	"normal":   PriorityMedium,
	"low":      PriorityLow,
	"baja":     PriorityLow,
}

func statusToken(raw string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return '_'
		}
		return r
	}, payload.Fold(raw))
}

// ParseStatus maps a backend status token onto the canonical status.
// Unknown or empty tokens map to StatusPending.
func ParseStatus(raw string) Status {
	if status, ok := statusTokens[statusToken(raw)]; ok {
		return status
	}
	return StatusPending
}

// ParsePriority maps a priority label; ok is false for unrecognized labels.
func ParsePriority(raw string) (Priority, bool) {
	p, ok := priorityTokens[statusToken(raw)]
	return p, ok
}
