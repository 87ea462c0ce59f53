package directors

import (
	"errors"
	"testing"

	"recstore/src/engine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, manager *DatabaseManager, command string) *CommandResponse {
	t.Helper()
	resp, err := CommandDirector(manager, command, nil)
	require.NoError(t, err, command)
	return resp
}

func TestCommandDirectorSession(t *testing.T) {
	manager := newTestManager(t, t.TempDir(), nil)

	resp := run(t, manager, "CREATE DATABASE shop")
	assert.Equal(t, 1, resp.ResultCount)

	run(t, manager, "create collection shop users KEY id FIELDS id:string age:integer active:boolean;")

	resp = run(t, manager, "WRITE shop users u1;30;true")
	assert.Equal(t, "u1", resp.Result)

	resp = run(t, manager, "READ shop users u1")
	assert.Equal(t, 1, resp.ResultCount)
	assert.Equal(t, engine.Record{"u1", "30", "true"}, resp.Result)

	resp = run(t, manager, "READ shop users u1;")
	assert.Equal(t, 1, resp.ResultCount)
	assert.Equal(t, engine.Record{"u1", "30", "true"}, resp.Result)

	resp = run(t, manager, "READ shop users nobody")
	assert.Equal(t, 0, resp.ResultCount)
	assert.Equal(t, engine.Record{}, resp.Result)

	resp = run(t, manager, "UPDATE shop users u1 u1;31;false")
	assert.Equal(t, engine.Record{"u1", "31", "false"}, resp.Result)

	resp = run(t, manager, "LIST DATABASES")
	assert.Equal(t, []string{"shop"}, resp.Result)

	resp = run(t, manager, "LIST COLLECTIONS shop")
	assert.Equal(t, []string{"users"}, resp.Result)

	resp = run(t, manager, "LIST RECORDS shop users;")
	assert.Equal(t, 1, resp.ResultCount)
	assert.Equal(t, []engine.Record{{"u1", "31", "false"}}, resp.Result)
}

func TestCommandDirectorPayloadKeepsSpaces(t *testing.T) {
	manager := newTestManager(t, t.TempDir(), nil)
	run(t, manager, "CREATE DATABASE blog")
	run(t, manager, "CREATE COLLECTION blog posts KEY title FIELDS title:string body:string")

	run(t, manager, "WRITE blog posts first post;hello there, world")

	resp := run(t, manager, "READ blog posts first post")
	assert.Equal(t, engine.Record{"first post", "hello there, world"}, resp.Result)
}

func TestCommandDirectorScriptTagOption(t *testing.T) {
	manager := newTestManager(t, t.TempDir(), nil)
	run(t, manager, "CREATE DATABASE blog")
	run(t, manager, "CREATE COLLECTION blog strict KEY title FIELDS title:string body:string")
	run(t, manager, "CREATE COLLECTION blog loose KEY title FIELDS title:string body:string ALLOW SCRIPTS")

	_, err := CommandDirector(manager, "WRITE blog strict a;<script>x</script>", nil)
	assert.Equal(t, engine.ReasonForbiddenContent, engine.ReasonOf(err))

	run(t, manager, "WRITE blog loose a;<script>x</script>")
}

func TestCommandDirectorErrors(t *testing.T) {
	manager := newTestManager(t, t.TempDir(), nil)
	run(t, manager, "CREATE DATABASE shop")
	run(t, manager, "CREATE COLLECTION shop users KEY id FIELDS id:string age:integer active:boolean")

	tests := []struct {
		command string
		is      error
	}{
		{"", nil},
		{"DROP DATABASE shop", nil},
		{"CREATE", nil},
		{"CREATE TABLE shop users", nil},
		{"CREATE DATABASE shop", engine.ErrConflict},
		{"CREATE COLLECTION shop users KEY id", nil},
		{"CREATE COLLECTION shop items KEY id FIELDS id:string price:float", nil},
		{"CREATE COLLECTION shop items KEY id FIELDS id price:integer", nil},
		{"CREATE COLLECTION shop items KEY sku FIELDS id:string price:integer", engine.ErrSchema},
		{"CREATE COLLECTION shop users KEY id FIELDS id:string age:integer", engine.ErrConflict},
		{"CREATE COLLECTION ghost users KEY id FIELDS id:string age:integer", engine.ErrNotFound},
		{"WRITE shop users", nil},
		{"WRITE shop users u1;30", engine.ErrData},
		{"WRITE shop users u2;abc;true", engine.ErrData},
		{"WRITE shop ghost u1;30;true", engine.ErrNotFound},
		{"READ shop users", nil},
		{"UPDATE shop users u1", nil},
		{"UPDATE shop users nobody nobody;1;true", engine.ErrNotFound},
		{"LIST", nil},
		{"LIST TABLES", nil},
		{"LIST COLLECTIONS", nil},
		{"LIST RECORDS shop", nil},
		{"LIST RECORDS ghost users", engine.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			resp, err := CommandDirector(manager, tt.command, nil)
			require.Error(t, err)
			assert.Nil(t, resp)
			if tt.is != nil {
				assert.True(t, errors.Is(err, tt.is), "got %v", err)
			}
		})
	}
}

func TestSplitCommand(t *testing.T) {
	parts, rest := splitCommand("  WRITE  shop\tusers a b;c ", 3)
	assert.Equal(t, []string{"WRITE", "shop", "users"}, parts)
	assert.Equal(t, "a b;c ", rest)

	parts, rest = splitCommand("READ shop", 3)
	assert.Equal(t, []string{"READ", "shop"}, parts)
	assert.Empty(t, rest)
}
