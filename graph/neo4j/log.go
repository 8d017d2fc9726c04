package neo4j

import (
	"fmt"
	"log/slog"

	neo4jLog "github.com/neo4j/neo4j-go-driver/v5/neo4j/log"

	"github.com/mikeblum/graph-bulk-import/conf"
)

// LogBridge routes driver and bolt protocol logs into slog.
type LogBridge struct {
	*slog.Logger
}

func neo4jLogBridge(log *conf.Log) *LogBridge {
	return &LogBridge{
		Logger: log.Logger.With("driver", "bolt"),
	}
}

func (l *LogBridge) LogClientMessage(context string, msg string, args ...any) {
	l.WithGroup(context).Debug(fmt.Sprintf(msg, args...), "direction", "client")
}

func (l *LogBridge) LogServerMessage(context string, msg string, args ...any) {
	l.WithGroup(context).Debug(fmt.Sprintf(msg, args...), "direction", "server")
}

func (l *LogBridge) Error(name string, id string, err error) {
	l.Logger.Error("Driver error", "component", name, "id", id, "error", err)
}

func (l *LogBridge) Warnf(name string, id string, msg string, args ...any) {
	l.Logger.Warn(fmt.Sprintf(msg, args...), "component", name, "id", id)
}

func (l *LogBridge) Infof(name string, id string, msg string, args ...any) {
	// driver info logs are connection chatter
	l.Logger.Debug(fmt.Sprintf(msg, args...), "component", name, "id", id)
}

func (l *LogBridge) Debugf(name string, id string, msg string, args ...any) {
	l.Logger.Debug(fmt.Sprintf(msg, args...), "component", name, "id", id)
}

// verify LogBridge implements the driver logging interfaces
var (
	_ neo4jLog.BoltLogger = &LogBridge{}
	_ neo4jLog.Logger     = &LogBridge{}
)
