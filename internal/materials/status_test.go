package materials

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStatus(t *testing.T) {
	cases := map[string]Status{
		"APROBADA":         StatusApproved,
		"aprobado":         StatusApproved,
		"Rechazado":        StatusRejected,
		"rechazada":        StatusRejected,
		"Recibida":         StatusDelivered,
		"entregada":        StatusDelivered,
		"enviado":          StatusSent,
		"Envío parcial":    StatusSent,
		"envio-parcial":    StatusSent,
		"borrador":         StatusDraft,
		"En revisión":      StatusPending,
		"":                 StatusPending,
		"algo desconocido": StatusPending,
		"cancelada":        StatusRejected,
	}
	for raw, want := range cases {
		assert.Equal(t, want, ParseStatus(raw), raw)
	}
}

func TestStatusActions(t *testing.T) {
	assert.True(t, StatusPending.CanApprove())
	assert.False(t, StatusRejected.CanApprove())
	assert.True(t, StatusApproved.CanReject())
	assert.False(t, StatusSent.CanReject())
	assert.True(t, StatusSent.CanDeliver())
	assert.False(t, StatusDraft.CanDeliver())
	assert.True(t, StatusDelivered.IsTerminal())
	assert.False(t, Status("archived").IsValid())
}
