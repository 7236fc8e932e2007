package schema

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `{
	"type": "object",
	"required": ["name"],
	"properties": {
		"name": {"type": "string"}
	}
}`

func TestNewValidator(t *testing.T) {
	t.Run("creates templates directory if missing", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "templates")
		v, err := NewValidator(dir)
		require.NoError(t, err)
		require.NotNil(t, v)
	})

	t.Run("rejects empty path", func(t *testing.T) {
		_, err := NewValidator("")
		assert.Error(t, err)
	})
}

func TestSaveAndLoadTemplate(t *testing.T) {
	v, err := NewValidator(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, v.SaveTemplate("thing", []byte(testSchema)))
	require.NoError(t, v.LoadTemplate("thing"))

	require.Error(t, v.LoadTemplate("missing"))
	assert.Error(t, v.SaveTemplate("bad", []byte("not json")))
}

func TestValidateStrict(t *testing.T) {
	v, err := NewValidator(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, v.SaveTemplate("thing", []byte(testSchema)))

	assert.NoError(t, v.ValidateStrict("thing", []byte(`{"name": "hi"}`)))
	assert.Error(t, v.ValidateStrict("thing", []byte(`{}`)))
	assert.Error(t, v.ValidateStrict("thing", []byte(`not json`)))
}

func TestConcurrentValidation(t *testing.T) {
	v, err := NewValidator(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, v.SaveTemplate("thing", []byte(testSchema)))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = v.ValidateStrict("thing", []byte(`{"name": "hi"}`))
		}()
	}
	wg.Wait()
}
