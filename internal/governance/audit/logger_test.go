package audit

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingExecer struct {
	sql  string
	args []any
	err  error
}

func (r *recordingExecer) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	r.sql = sql
	r.args = args
	return pgconn.NewCommandTag("INSERT 0 1"), r.err
}

func TestLogger_LogAttributeConfig(t *testing.T) {
	db := &recordingExecer{}
	l := NewLogger(db)

	err := l.LogAttributeConfig(context.Background(), ActionAttributeConfigCreate, "cfg-1", "alice",
		map[string]interface{}{"entity_type": "samples", "attr_name": "ph_level"})
	require.NoError(t, err)

	require.Contains(t, db.sql, "INSERT INTO audit_logs")
	require.Len(t, db.args, 6)
	assert.True(t, strings.HasPrefix(db.args[0].(string), "audit-"))
	assert.Equal(t, ActionAttributeConfigCreate, db.args[1])
	assert.Equal(t, "attribute_config", db.args[2])
	assert.Equal(t, "cfg-1", db.args[3])
	assert.Equal(t, "alice", db.args[4])

	var details map[string]string
	require.NoError(t, json.Unmarshal(db.args[5].([]byte), &details))
	assert.Equal(t, "ph_level", details["attr_name"])
}

func TestLogger_NilDetailsStoredAsNull(t *testing.T) {
	db := &recordingExecer{}
	require.NoError(t, NewLogger(db).LogAction(context.Background(), "x", "y", "z", "system", nil))
	assert.Nil(t, db.args[5])
}

func TestLogger_PropagatesWriteError(t *testing.T) {
	db := &recordingExecer{err: errors.New("relation does not exist")}
	err := NewLogger(db).LogAction(context.Background(), "x", "y", "z", "system", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write audit log")
}

func TestGenerateAuditID_Unique(t *testing.T) {
	assert.NotEqual(t, generateAuditID(), generateAuditID())
}
