package shared

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type execStub struct {
	sql  string
	args []any
	err  error
}

func (s *execStub) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	s.sql = sql
	s.args = args
	return pgconn.NewCommandTag("INSERT 0 1"), s.err
}

func TestAuditLoggerRecord(t *testing.T) {
	stub := &execStub{}
	logger := NewAuditLogger(stub)
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.FixedZone("COT", -5*3600))

	err := logger.Record(context.Background(), AuditLog{
		Actor:    "u-7",
		Action:   "deliver",
		Entity:   "material_request",
		EntityID: "r1",
		Meta:     map[string]any{"deliveries": 2},
		At:       at,
	})
	require.NoError(t, err)
	assert.Contains(t, stub.sql, "material_action_journal")
	require.Len(t, stub.args, 7)
	assert.Equal(t, "u-7", stub.args[0])
	assert.Equal(t, "success", stub.args[4])
	assert.JSONEq(t, `{"deliveries":2}`, string(stub.args[5].([]byte)))
	ts, ok := stub.args[6].(*time.Time)
	require.True(t, ok)
	assert.Equal(t, time.UTC, ts.Location())
	assert.True(t, at.Equal(*ts))
}

func TestAuditLoggerValidation(t *testing.T) {
	var nilLogger *AuditLogger
	require.Error(t, nilLogger.Record(context.Background(), AuditLog{}))

	stub := &execStub{}
	err := NewAuditLogger(stub).Record(context.Background(), AuditLog{Action: "approve"})
	require.Error(t, err)
	assert.Empty(t, stub.sql)
}

func TestAuditLoggerPropagatesExecError(t *testing.T) {
	stub := &execStub{err: errors.New("db down")}
	err := NewAuditLogger(stub).Record(context.Background(), AuditLog{Action: "reject", Entity: "material_request", EntityID: "r1"})
	require.EqualError(t, err, "db down")
	assert.Nil(t, stub.args[6])
}

func TestScopeAllows(t *testing.T) {
	scope := Scope{ProjectIDs: ParseProjectIDs(" p1, ,p2,p1 ")}
	assert.Equal(t, []string{"p1", "p2"}, scope.ProjectIDs)
	assert.True(t, scope.Allows("p2"))
	assert.False(t, scope.Allows("p3"))
	assert.False(t, scope.Allows(""))
	assert.True(t, Scope{Unrestricted: true}.Allows(""))

	ctx := ContextWithScope(context.Background(), scope)
	got, ok := ScopeFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, scope, got)
}
