package migration

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSource_Open(t *testing.T) {
	_, _, err := Source{}.open()
	assert.Error(t, err)

	drv, url, err := Source{Dir: "migrations", FS: fstest.MapFS{}}.open()
	require.NoError(t, err)
	assert.Nil(t, drv)
	assert.Equal(t, "file://migrations", url)

	embedded := fstest.MapFS{
		"000001_init.up.sql":   {Data: []byte("SELECT 1;")},
		"000001_init.down.sql": {Data: []byte("SELECT 1;")},
	}
	drv, url, err = Source{FS: embedded}.open()
	require.NoError(t, err)
	require.NotNil(t, drv)
	assert.Equal(t, "iofs", url)
	assert.NoError(t, drv.Close())
}

func TestMigrateLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := migrateLogger{zap.New(core).Sugar()}

	assert.True(t, l.Verbose())
	l.Printf("Finished 1/u init (read %v, ran %v)\n", "1ms", "2ms")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "Finished 1/u init (read 1ms, ran 2ms)", entries[0].Message)

	quiet, _ := observer.New(zapcore.InfoLevel)
	assert.False(t, migrateLogger{zap.New(quiet).Sugar()}.Verbose())
}
