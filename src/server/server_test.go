package server

import (
	"bufio"
	"encoding/json"
	"net"
	"testing"

	"recstore/src/auth"
	"recstore/src/directors"
	"recstore/src/engine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type client struct {
	t      *testing.T
	conn   net.Conn
	reader *bufio.Reader
}

func (c *client) send(line string) map[string]interface{} {
	c.t.Helper()
	_, err := c.conn.Write([]byte(line + "\n"))
	require.NoError(c.t, err)

	reply, err := c.reader.ReadString('\n')
	require.NoError(c.t, err)

	var resp map[string]interface{}
	require.NoError(c.t, json.Unmarshal([]byte(reply), &resp), reply)
	return resp
}

func startServer(t *testing.T, authEnabled bool) (*Server, *client) {
	t.Helper()

	store, err := engine.NewDatabaseStore(t.TempDir(), false, nil)
	require.NoError(t, err)
	users, err := auth.NewUserStore("", "")
	require.NoError(t, err)

	srv := NewServer("127.0.0.1", 0, authEnabled, directors.NewDatabaseManager(store, nil, nil), users, nil)
	require.NoError(t, srv.Start())
	t.Cleanup(func() { srv.Stop() })

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	reader := bufio.NewReader(conn)
	greeting, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, welcome+"\n", greeting)

	return srv, &client{t: t, conn: conn, reader: reader}
}

func TestServerCommands(t *testing.T) {
	_, c := startServer(t, false)

	resp := c.send("CREATE DATABASE shop")
	assert.Equal(t, "success", resp["status"])

	c.send("CREATE COLLECTION shop users KEY id FIELDS id:string age:integer active:boolean")

	resp = c.send("WRITE shop users u1;30;true")
	assert.Equal(t, "u1", resp["Result"])

	resp = c.send("READ shop users u1")
	assert.Equal(t, []interface{}{"u1", "30", "true"}, resp["Result"])

	resp = c.send("WRITE shop users u1;31;false")
	assert.Equal(t, "error", resp["status"])
	assert.Contains(t, resp["message"], "duplicate identity")

	resp = c.send("LIST DATABASES")
	assert.Equal(t, float64(1), resp["ResultCount"])

	resp = c.send("quit")
	assert.Equal(t, "bye", resp["message"])
}

func TestServerAuthentication(t *testing.T) {
	srv, c := startServer(t, true)
	require.NoError(t, srv.AddUser("admin", "admin123"))

	resp := c.send("LIST DATABASES")
	assert.Equal(t, "authentication required", resp["message"])

	resp = c.send("AUTH admin wrong")
	assert.Equal(t, "error", resp["status"])

	resp = c.send("AUTH admin admin123")
	assert.Equal(t, "success", resp["status"])

	resp = c.send("LIST DATABASES")
	assert.Equal(t, "success", resp["status"])
	assert.Equal(t, float64(0), resp["ResultCount"])
}

func TestGenerateConnectionIDUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := generateConnectionID()
		_, dup := seen[id]
		require.False(t, dup, "duplicate connection ID %s", id)
		seen[id] = struct{}{}
	}
}
