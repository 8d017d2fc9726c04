package graph

import (
	"fmt"
	"strings"
)

// Collection is the import target: a named container inside a database, partitioned on
// a single property.
type Collection struct {
	Database         string
	Name             string
	PartitionKeyPath string
	Throughput       int
}

// PartitionKeyProperty strips the leading path separator, e.g. "/pk" -> "pk".
func (c *Collection) PartitionKeyProperty() string {
	return strings.ReplaceAll(c.PartitionKeyPath, "/", "")
}

func (c *Collection) String() string {
	return fmt.Sprintf("%s.%s", c.Database, c.Name)
}

type ConnectionMode int

const (
	ConnectionModeDirect ConnectionMode = iota
	ConnectionModeGateway
)

func (m ConnectionMode) String() string {
	switch m {
	case ConnectionModeGateway:
		return "gateway"
	default:
		return "direct"
	}
}

func ParseConnectionMode(s string) (ConnectionMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "direct":
		return ConnectionModeDirect, nil
	case "gateway":
		return ConnectionModeGateway, nil
	}
	return ConnectionModeDirect, fmt.Errorf("unknown connection mode: %q", s)
}

type Protocol int

const (
	ProtocolTCP Protocol = iota
	ProtocolHTTP
)

func (p Protocol) String() string {
	switch p {
	case ProtocolHTTP:
		return "http"
	default:
		return "tcp"
	}
}

func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "tcp":
		return ProtocolTCP, nil
	case "http", "https":
		return ProtocolHTTP, nil
	}
	return ProtocolTCP, fmt.Errorf("unknown connection protocol: %q", s)
}

// ConnectionPolicy is shared read-only configuration for a store connection.
type ConnectionPolicy struct {
	Mode     ConnectionMode
	Protocol Protocol
}
