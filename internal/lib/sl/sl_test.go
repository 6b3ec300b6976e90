package sl

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErr(t *testing.T) {
	attr := Err(errors.New("boom"))
	assert.Equal(t, "error", attr.Key)
	assert.Equal(t, "boom", attr.Value.String())

	assert.Equal(t, "", Err(nil).Value.String())
}

func TestSecret(t *testing.T) {
	assert.Equal(t, "AIzaS***", Secret("AIzaSyExample").Value.String())
	assert.Equal(t, "***", Secret("abc").Value.String())
	assert.Equal(t, "?", Secret("").Value.String())
}

func TestModule(t *testing.T) {
	attr := Module("server")
	assert.Equal(t, "mod", attr.Key)
	assert.Equal(t, "server", attr.Value.String())
}
