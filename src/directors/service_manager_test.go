package directors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServiceManagerSingleton(t *testing.T) {
	ResetServiceManager()
	defer ResetServiceManager()

	assert.Nil(t, GetServiceManager().DatabaseManager)

	manager := newTestManager(t, t.TempDir(), nil)
	sm := InitServiceManager(manager, nil)
	assert.Same(t, manager, sm.DatabaseManager)

	// later initialisations keep the first manager
	InitServiceManager(newTestManager(t, t.TempDir(), nil), nil)
	assert.Same(t, manager, GetServiceManager().DatabaseManager)
}
