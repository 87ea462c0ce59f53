package directors

import (
	"errors"
	"fmt"
	"strings"

	"recstore/src/engine"
	"recstore/src/helpers"
	"recstore/src/settings"

	"go.uber.org/zap"
)

// CommandResponse is what a successful command returns to the client.
type CommandResponse struct {
	ResultCount int         `json:"ResultCount"`
	Result      interface{} `json:"Result"`
}

// CommandDirector parses one text command and runs it against the manager.
//
//	CREATE DATABASE <db>
//	CREATE COLLECTION <db> <coll> KEY <field> FIELDS <name>:<type> ... [ALLOW SCRIPTS]
//	WRITE <db> <coll> <v1;v2;...>
//	READ <db> <coll> <identity>
//	UPDATE <db> <coll> <identity> <v1;v2;...>
//	LIST DATABASES
//	LIST COLLECTIONS <db>
//	LIST RECORDS <db> <coll>
//
// Record payloads run to the end of the line and may contain spaces.
func CommandDirector(manager *DatabaseManager, command string, logger *zap.SugaredLogger) (*CommandResponse, error) {
	if manager == nil {
		return nil, errors.New("no database manager available")
	}
	command = strings.TrimSpace(command)
	parts, _ := splitCommand(command, 1)
	if len(parts) == 0 {
		return nil, errors.New("empty command")
	}

	switch strings.ToLower(parts[0]) {
	case "create":
		return createCommand(manager, strings.TrimSuffix(command, ";"), logger)
	case "write":
		return writeCommand(manager, command)
	case "read":
		return readCommand(manager, command)
	case "update":
		return updateCommand(manager, command)
	case "list":
		return listCommand(manager, strings.TrimSuffix(command, ";"))
	}

	return nil, fmt.Errorf("unknown command: %s", parts[0])
}

// splitCommand returns the first n whitespace-separated words of command and
// everything after them, untouched apart from leading whitespace.
func splitCommand(command string, n int) ([]string, string) {
	var parts []string
	rest := strings.TrimLeft(command, " \t")
	for len(parts) < n && rest != "" {
		i := strings.IndexAny(rest, " \t")
		if i < 0 {
			parts = append(parts, rest)
			rest = ""
			break
		}
		parts = append(parts, rest[:i])
		rest = strings.TrimLeft(rest[i:], " \t")
	}
	return parts, rest
}

func createCommand(manager *DatabaseManager, command string, logger *zap.SugaredLogger) (*CommandResponse, error) {
	parts := strings.Fields(command)
	if len(parts) < 2 {
		return nil, errors.New("CREATE requires DATABASE or COLLECTION")
	}

	switch strings.ToLower(parts[1]) {
	case "database":
		if len(parts) != 3 {
			return nil, errors.New("CREATE DATABASE usage: CREATE DATABASE <name>")
		}
		name := helpers.StripQuotes(parts[2])
		if err := manager.CreateDatabase(name); err != nil {
			return nil, err
		}
		return &CommandResponse{
			ResultCount: 1,
			Result:      fmt.Sprintf("Database '%s' created successfully.", name),
		}, nil

	case "collection":
		dbName, collName, schema, opts, err := parseCreateCollection(parts)
		if err != nil {
			return nil, err
		}
		if logger != nil {
			logger.Debugf("Parsed create collection command: %s.%s %+v", dbName, collName, schema)
		}
		if err := manager.CreateCollection(dbName, collName, schema, opts); err != nil {
			return nil, err
		}
		return &CommandResponse{
			ResultCount: 1,
			Result:      fmt.Sprintf("Collection '%s' created successfully in database '%s'.", collName, dbName),
		}, nil
	}

	return nil, fmt.Errorf("unknown command format: %s", command)
}

func parseCreateCollection(parts []string) (string, string, engine.Schema, engine.TableOptions, error) {
	const usage = "CREATE COLLECTION usage: CREATE COLLECTION <db> <collection> KEY <field> FIELDS <name>:<type> ..."

	var schema engine.Schema
	opts := engine.DefaultTableOptions()
	opts.NoScriptTags = settings.GetSettings().NoScriptTags

	if len(parts) < 8 || !strings.EqualFold(parts[4], "KEY") || !strings.EqualFold(parts[6], "FIELDS") {
		return "", "", schema, opts, errors.New(usage)
	}
	dbName := helpers.StripQuotes(parts[2])
	collName := helpers.StripQuotes(parts[3])
	schema.IdentityField = parts[5]

	fieldParts := parts[7:]
	if n := len(fieldParts); n >= 2 && strings.EqualFold(fieldParts[n-2], "ALLOW") && strings.EqualFold(fieldParts[n-1], "SCRIPTS") {
		opts.NoScriptTags = false
		fieldParts = fieldParts[:n-2]
	}

	for _, def := range fieldParts {
		name, typeName, ok := strings.Cut(def, ":")
		if !ok {
			return "", "", schema, opts, fmt.Errorf("invalid field definition '%s', expected <name>:<type>", def)
		}
		fieldType, err := engine.ParseFieldType(typeName)
		if err != nil {
			return "", "", schema, opts, err
		}
		schema.Fields = append(schema.Fields, engine.FieldDefinition{Name: name, Type: fieldType})
	}

	return dbName, collName, schema, opts, nil
}

func writeCommand(manager *DatabaseManager, command string) (*CommandResponse, error) {
	parts, payload := splitCommand(command, 3)
	if len(parts) < 3 || payload == "" {
		return nil, errors.New("WRITE usage: WRITE <db> <collection> <v1;v2;...>")
	}

	identity, err := manager.WriteRecord(parts[1], parts[2], engine.DecodeRecord(payload))
	if err != nil {
		return nil, err
	}
	return &CommandResponse{ResultCount: 1, Result: identity}, nil
}

func readCommand(manager *DatabaseManager, command string) (*CommandResponse, error) {
	parts, identity := splitCommand(command, 3)
	identity = strings.TrimSuffix(identity, ";")
	if len(parts) < 3 || identity == "" {
		return nil, errors.New("READ usage: READ <db> <collection> <identity>")
	}

	record, err := manager.ReadRecord(parts[1], parts[2], identity)
	if err != nil {
		return nil, err
	}
	if len(record) == 0 {
		return &CommandResponse{ResultCount: 0, Result: engine.Record{}}, nil
	}
	return &CommandResponse{ResultCount: 1, Result: record}, nil
}

func updateCommand(manager *DatabaseManager, command string) (*CommandResponse, error) {
	parts, payload := splitCommand(command, 4)
	if len(parts) < 4 || payload == "" {
		return nil, errors.New("UPDATE usage: UPDATE <db> <collection> <identity> <v1;v2;...>")
	}

	record, err := manager.UpdateRecord(parts[1], parts[2], parts[3], engine.DecodeRecord(payload))
	if err != nil {
		return nil, err
	}
	return &CommandResponse{ResultCount: 1, Result: record}, nil
}

func listCommand(manager *DatabaseManager, command string) (*CommandResponse, error) {
	parts := strings.Fields(command)
	if len(parts) < 2 {
		return nil, errors.New("LIST requires DATABASES, COLLECTIONS or RECORDS")
	}

	switch strings.ToLower(parts[1]) {
	case "databases":
		names := manager.ListDatabases()
		return &CommandResponse{ResultCount: len(names), Result: names}, nil

	case "collections":
		if len(parts) != 3 {
			return nil, errors.New("LIST COLLECTIONS usage: LIST COLLECTIONS <db>")
		}
		names, err := manager.ListCollections(parts[2])
		if err != nil {
			return nil, err
		}
		return &CommandResponse{ResultCount: len(names), Result: names}, nil

	case "records":
		if len(parts) != 4 {
			return nil, errors.New("LIST RECORDS usage: LIST RECORDS <db> <collection>")
		}
		records, err := manager.ListAllRecords(parts[2], parts[3])
		if err != nil {
			return nil, err
		}
		return &CommandResponse{ResultCount: len(records), Result: records}, nil
	}

	return nil, fmt.Errorf("unknown command format: %s", command)
}
