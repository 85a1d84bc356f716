package migrations

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	script := `-- header; with a semicolon
CREATE TABLE a (x TEXT DEFAULT 'a;b'); -- trailing
INSERT INTO a VALUES ('it''s; fine');

;
SELECT 1`

	got := Split(script)
	require.Len(t, got, 3)
	assert.Equal(t, "CREATE TABLE a (x TEXT DEFAULT 'a;b')", got[0])
	assert.Equal(t, "INSERT INTO a VALUES ('it''s; fine')", got[1])
	assert.Equal(t, "SELECT 1", got[2])
}

func TestSplit_OnlyComments(t *testing.T) {
	assert.Empty(t, Split("-- nothing here\n\n-- still nothing;\n"))
}

func TestLoad_OrderAndSkipsEmpty(t *testing.T) {
	fsys := fstest.MapFS{
		"pg/002_views.sql": {Data: []byte("CREATE VIEW v AS SELECT 1;")},
		"pg/001_core.sql":  {Data: []byte("CREATE TABLE t (id INT); CREATE INDEX i ON t (id);")},
		"pg/003_empty.sql": {Data: []byte("-- intentionally empty\n")},
		"pg/README.md":     {Data: []byte("not sql")},
	}
	ms, err := load(fsys, "pg")
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, "001_core", ms[0].Version)
	assert.Len(t, ms[0].Statements, 2)
	assert.Equal(t, "002_views", ms[1].Version)
}

func TestLoad_Embedded(t *testing.T) {
	for _, dialect := range []string{"postgres", "clickhouse"} {
		ms, err := Load(dialect)
		require.NoError(t, err, dialect)
		assert.NotEmpty(t, ms, dialect)
	}
}
